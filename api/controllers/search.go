package controllers

import (
	"net/http"

	"github.com/angelmondragon/carbidz-backend/api/responses"
	"github.com/angelmondragon/carbidz-backend/api/validators"
	"github.com/angelmondragon/carbidz-backend/internal/search"
	"github.com/angelmondragon/carbidz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carbidz-backend/pkg/errors"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
	"github.com/angelmondragon/carbidz-backend/pkg/pagination"
)

const maxSearchTermLen = 128

func SearchAuctions(svc search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		order, err := enums.ParseSearchOrder(q.Get("orderBy"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid orderBy"))
			return
		}
		filter, err := enums.ParseSearchFilter(q.Get("filterBy"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid filterBy"))
			return
		}
		pageNumber, err := validators.ParseQueryInt(r, "pageNumber", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		// oversized pages are clamped by the service rather than rejected
		pageSize := pagination.ParseInt(q.Get("pageSize"))

		page, err := svc.Search(r.Context(), search.Query{
			Term:    validators.SanitizeString(q.Get("searchTerm"), maxSearchTermLen),
			Seller:  validators.SanitizeString(q.Get("seller"), maxSearchTermLen),
			Winner:  validators.SanitizeString(q.Get("winner"), maxSearchTermLen),
			OrderBy: order,
			Filter:  filter,
			Page:    pagination.Params{PageNumber: pageNumber, PageSize: pageSize},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
