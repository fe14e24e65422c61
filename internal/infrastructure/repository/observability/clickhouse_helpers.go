package observability

import "github.com/sideseat/sideseat-core/pkg/ulid"

// boolToUint8 converts a Go bool to the uint8 ClickHouse uses for Bool columns.
func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// ulidPtrToString renders an optional ULID as a pointer to its string form,
// for ClickHouse Nullable(String) columns.
func ulidPtrToString(id *ulid.ULID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// stringToUlidPtr parses an optional ULID string scanned from a
// Nullable(String) column, ignoring malformed values rather than failing
// the whole row.
func stringToUlidPtr(s *string) *ulid.ULID {
	if s == nil || *s == "" {
		return nil
	}
	id, err := ulid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}
