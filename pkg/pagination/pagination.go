package pagination

import "strconv"

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 12
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 50
)

// Params holds page-number pagination inputs from controllers or services.
// Pages are 1-based.
type Params struct {
	Page  int
	Limit int
}

// Meta is returned alongside each page.
type Meta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	return NormalizeLimitWith(limit, DefaultLimit)
}

// NormalizeLimitWith applies a caller-specific default.
func NormalizeLimitWith(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize clamps page and limit into range.
func (p Params) Normalize(def int) Params {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return Params{Page: page, Limit: NormalizeLimitWith(p.Limit, def)}
}

// Offset returns the row offset for the page.
func (p Params) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// BuildMeta derives page counts from the total row count.
func BuildMeta(p Params, total int64) Meta {
	pages := 0
	if p.Limit > 0 && total > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Meta{
		Page:       p.Page,
		PageSize:   p.Limit,
		Total:      total,
		TotalPages: pages,
		HasMore:    p.Page < pages,
	}
}

// ParseInt reads an optional positive integer query value.
func ParseInt(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
