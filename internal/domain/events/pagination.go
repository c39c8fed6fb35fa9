package events

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageLimit = 6
	DefaultMaxLimit  = 50

	// MaxOffset bounds the row offset a page can address. Postgres rejects
	// larger OFFSET values once they wrap around on the way in.
	MaxOffset = math.MaxInt32
)

// PageRequest is a normalized offset page: Page >= 1 and 1 <= Limit <= max.
type PageRequest struct {
	Page  int
	Limit int
}

// ParsePageRequest reads page and limit from query values. Missing,
// unparsable or non-positive values fall back to page 1 and defaultLimit;
// limits above maxLimit are clamped, and pages past MaxOffset are clamped to
// the last addressable page.
func ParsePageRequest(values url.Values, defaultLimit, maxLimit int) PageRequest {
	if defaultLimit < 1 {
		defaultLimit = DefaultPageLimit
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	req := PageRequest{
		Page:  positiveInt(values.Get("page"), 1),
		Limit: positiveInt(values.Get("limit"), defaultLimit),
	}
	if req.Limit > maxLimit {
		req.Limit = maxLimit
	}
	if last := lastPage(req.Limit); req.Page > last {
		req.Page = last
	}
	return req
}

// Offset is (Page-1)*Limit, saturated at MaxOffset.
func (r PageRequest) Offset() int {
	if r.Page < 1 || r.Limit < 1 {
		return 0
	}
	if r.Page > lastPage(r.Limit) {
		return (lastPage(r.Limit) - 1) * r.Limit
	}
	return (r.Page - 1) * r.Limit
}

func lastPage(limit int) int {
	return MaxOffset/limit + 1
}

// TotalPages is ceil(total/limit).
func (r PageRequest) TotalPages(total int64) int {
	if r.Limit < 1 || total <= 0 {
		return 0
	}
	return int((total + int64(r.Limit) - 1) / int64(r.Limit))
}

// Page is one slice of a listing together with its totals.
type Page struct {
	Events     []Event
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

func positiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
