package enums

import (
	"fmt"
	"strings"
)

// SearchOrder selects the ordering of search results.
type SearchOrder string

const (
	SearchOrderEndingSoonest SearchOrder = ""
	SearchOrderMake          SearchOrder = "make"
	SearchOrderNew           SearchOrder = "new"
)

// ParseSearchOrder accepts the orderBy query value; empty keeps the default.
func ParseSearchOrder(value string) (SearchOrder, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return SearchOrderEndingSoonest, nil
	case string(SearchOrderMake):
		return SearchOrderMake, nil
	case string(SearchOrderNew):
		return SearchOrderNew, nil
	default:
		return "", fmt.Errorf("invalid orderBy %q", value)
	}
}

// SearchFilter selects which auctions are returned by end time.
type SearchFilter string

const (
	SearchFilterLive       SearchFilter = ""
	SearchFilterFinished   SearchFilter = "finished"
	SearchFilterEndingSoon SearchFilter = "endingsoon"
)

// ParseSearchFilter accepts the filterBy query value case-insensitively.
func ParseSearchFilter(value string) (SearchFilter, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return SearchFilterLive, nil
	case string(SearchFilterFinished):
		return SearchFilterFinished, nil
	case string(SearchFilterEndingSoon):
		return SearchFilterEndingSoon, nil
	default:
		return "", fmt.Errorf("invalid filterBy %q", value)
	}
}
