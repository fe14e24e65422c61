package observability

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sideseat/sideseat-core/pkg/ulid"
)

// PricingSnapshot is the per-million-token rate table for a model at a
// point in time, captured so historical cost figures stay stable even
// after a model's list price changes.
type PricingSnapshot struct {
	ModelName    string
	Pricing      map[string]decimal.Decimal // usage_type -> price per million units
	SnapshotTime time.Time
}

// PricingLookup resolves model pricing and turns raw token/unit usage
// into a cost figure, used while normalizing an OTLP span into an
// observation row.
type PricingLookup interface {
	GetPricingSnapshot(ctx context.Context, projectID *ulid.ULID, modelName string, atTime time.Time) (*PricingSnapshot, error)
	CalculateCost(usage map[string]uint64, pricing *PricingSnapshot) map[string]decimal.Decimal
}
