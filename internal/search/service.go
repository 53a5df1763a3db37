package search

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/carbidz-backend/pkg/errors"
	"github.com/angelmondragon/carbidz-backend/pkg/pagination"
)

const defaultEndingSoon = 6 * time.Hour

type Service interface {
	Search(ctx context.Context, q Query) (*ResultPage, error)
}

type ServiceParams struct {
	Repo       *Repository
	EndingSoon time.Duration
	PageLimits pagination.Limits
	Now        func() time.Time
}

type service struct {
	repo       *Repository
	endingSoon time.Duration
	limits     pagination.Limits
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("search repository required")
	}
	endingSoon := params.EndingSoon
	if endingSoon <= 0 {
		endingSoon = defaultEndingSoon
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, endingSoon: endingSoon, limits: params.PageLimits, now: now}, nil
}

func (s *service) Search(ctx context.Context, q Query) (*ResultPage, error) {
	q.Page = q.Page.Normalize(s.limits)
	items, total, err := s.repo.Search(ctx, q, s.now(), s.endingSoon)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search auctions")
	}
	results := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		results = append(results, toItemDTO(item))
	}
	return &ResultPage{
		Results:    results,
		PageCount:  pagination.PageCount(total, q.Page.PageSize),
		TotalCount: total,
	}, nil
}
