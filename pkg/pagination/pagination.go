package pagination

import (
	"fmt"
	"strconv"
)

// Params represents limit/offset query parameters
type Params struct {
	Limit  int
	Offset int
}

// Constants
const (
	// DefaultLimit is the page size used when the client sends none.
	// It doubles as the hard cap: call-history responses are bounded to
	// keep response cost predictable.
	DefaultLimit = 50
	MaxLimit     = 50
	MinLimit     = 1
)

// Parse parses limit/offset parameters from query strings, clamping the
// limit into [MinLimit, MaxLimit]
func Parse(limitStr, offsetStr string) (*Params, error) {
	limit := DefaultLimit
	offset := 0

	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, fmt.Errorf("invalid limit parameter: %w", err)
		}
		if l < MinLimit {
			limit = MinLimit
		} else if l > MaxLimit {
			limit = MaxLimit
		} else {
			limit = l
		}
	}

	if offsetStr != "" {
		o, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, fmt.Errorf("invalid offset parameter: %w", err)
		}
		if o > 0 {
			offset = o
		}
	}

	return &Params{Limit: limit, Offset: offset}, nil
}

// Clamp bounds an arbitrary limit into the allowed range, applying the
// default when it is zero or negative
func Clamp(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
