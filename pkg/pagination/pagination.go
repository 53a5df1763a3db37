package pagination

import (
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is the page size when the caller does not ask for one.
	DefaultPageSize = 4
	// MaxPageSize caps how many rows any page query can request.
	MaxPageSize = 100
)

// Params holds page-number pagination inputs from controllers or services.
// PageNumber is 1-based.
type Params struct {
	PageNumber int
	PageSize   int
}

// Limits bounds Normalize; zero values fall back to the package defaults.
type Limits struct {
	DefaultSize int
	MaxSize     int
}

// Normalize clamps the params into a valid page request.
func (p Params) Normalize(limits Limits) Params {
	def := limits.DefaultSize
	if def <= 0 {
		def = DefaultPageSize
	}
	max := limits.MaxSize
	if max <= 0 {
		max = MaxPageSize
	}
	if p.PageNumber <= 0 {
		p.PageNumber = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = def
	}
	if p.PageSize > max {
		p.PageSize = max
	}
	return p
}

// Offset is the number of rows to skip for the page.
func (p Params) Offset() int {
	if p.PageNumber <= 1 {
		return 0
	}
	return (p.PageNumber - 1) * p.PageSize
}

// PageCount returns how many pages of size hold total rows.
func PageCount(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// ParseInt reads an optional positive integer query value; blank or invalid
// input yields 0 so Normalize applies the default.
func ParseInt(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
