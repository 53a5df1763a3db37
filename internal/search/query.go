package search

import (
	"time"

	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	"github.com/angelmondragon/carbidz-backend/pkg/pagination"
)

// Query is a parsed search request.
type Query struct {
	Term    string
	Seller  string
	Winner  string
	OrderBy enums.SearchOrder
	Filter  enums.SearchFilter
	Page    pagination.Params
}

// endWindow returns the auction_end bounds for the filter. A nil bound is open.
func endWindow(filter enums.SearchFilter, now time.Time, endingSoon time.Duration) (after, before *time.Time) {
	now = now.UTC()
	switch filter {
	case enums.SearchFilterFinished:
		return nil, &now
	case enums.SearchFilterEndingSoon:
		limit := now.Add(endingSoon)
		return &now, &limit
	default:
		return &now, nil
	}
}

func orderClauses(order enums.SearchOrder) []string {
	switch order {
	case enums.SearchOrderMake:
		return []string{"make ASC", "model ASC"}
	case enums.SearchOrderNew:
		return []string{"created_at DESC"}
	default:
		return []string{"auction_end ASC"}
	}
}
