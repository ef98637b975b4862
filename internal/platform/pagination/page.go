// Package pagination normalizes page size requests.
package pagination

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidPageSize is returned for page sizes that are not positive integers.
var ErrInvalidPageSize = errors.New("page_size must be a positive integer")

// PageSizeConfig configures page size normalization.
type PageSizeConfig struct {
	Default int
	Max     int
}

// ClampPageSize applies defaults and limits for page sizes.
func ClampPageSize(value int, cfg PageSizeConfig) int {
	pageSize := value
	if pageSize <= 0 {
		pageSize = cfg.Default
	}
	if cfg.Max > 0 && pageSize > cfg.Max {
		pageSize = cfg.Max
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return pageSize
}

// ParsePageSize reads a page_size query value. Blank means the default;
// anything else must be a positive integer and is clamped to the maximum.
func ParsePageSize(raw string, cfg PageSizeConfig) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ClampPageSize(0, cfg), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, ErrInvalidPageSize
	}
	return ClampPageSize(n, cfg), nil
}
