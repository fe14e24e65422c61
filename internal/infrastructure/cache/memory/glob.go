package memory

import "path"

// globMatch matches cache keys against simple glob patterns ("prefix:*")
// using the same syntax callers already use for Redis SCAN patterns, so a
// DeletePattern call behaves identically on both backends.
func globMatch(pattern, key string) (bool, error) {
	return path.Match(pattern, key)
}
