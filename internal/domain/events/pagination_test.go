package events

import (
	"math"
	"net/url"
	"testing"
)

func TestParsePageRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  PageRequest
	}{
		{"defaults", "", PageRequest{Page: 1, Limit: 6}},
		{"explicit", "page=3&limit=10", PageRequest{Page: 3, Limit: 10}},
		{"zero page", "page=0", PageRequest{Page: 1, Limit: 6}},
		{"negative limit", "limit=-4", PageRequest{Page: 1, Limit: 6}},
		{"zero limit", "limit=0", PageRequest{Page: 1, Limit: 6}},
		{"garbage", "page=abc&limit=x", PageRequest{Page: 1, Limit: 6}},
		{"clamped", "limit=1000", PageRequest{Page: 1, Limit: 50}},
		{"page past max offset", "page=9223372036854775807&limit=6", PageRequest{Page: math.MaxInt32/6 + 1, Limit: 6}},
		{"page overflowing int", "page=99999999999999999999", PageRequest{Page: 1, Limit: 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			got := ParsePageRequest(values, DefaultPageLimit, DefaultMaxLimit)
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParsePageRequestBadBounds(t *testing.T) {
	got := ParsePageRequest(url.Values{"limit": {"100"}}, 0, 0)
	if got.Limit != DefaultPageLimit {
		t.Fatalf("limit = %d, want %d", got.Limit, DefaultPageLimit)
	}
}

func TestPageRequestOffsetAndTotalPages(t *testing.T) {
	req := PageRequest{Page: 3, Limit: 6}
	if req.Offset() != 12 {
		t.Fatalf("offset = %d, want 12", req.Offset())
	}

	cases := map[int64]int{0: 0, 1: 1, 6: 1, 7: 2, 12: 2, 13: 3}
	for total, want := range cases {
		if got := req.TotalPages(total); got != want {
			t.Fatalf("TotalPages(%d) = %d, want %d", total, got, want)
		}
	}
}

func TestPageRequestOffsetStaysInRange(t *testing.T) {
	tests := []struct {
		name string
		req  PageRequest
	}{
		{"huge page", PageRequest{Page: math.MaxInt, Limit: 6}},
		{"huge page max limit", PageRequest{Page: math.MaxInt, Limit: DefaultMaxLimit}},
		{"parsed huge page", ParsePageRequest(url.Values{"page": {"9223372036854775807"}, "limit": {"6"}}, DefaultPageLimit, DefaultMaxLimit)},
		{"zero value", PageRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset := tt.req.Offset()
			if offset < 0 || offset > MaxOffset {
				t.Fatalf("offset = %d, want within [0, %d]", offset, MaxOffset)
			}
		})
	}
}
