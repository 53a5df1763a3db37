package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/carbidz-backend/api/middleware"
	"github.com/angelmondragon/carbidz-backend/api/responses"
	"github.com/angelmondragon/carbidz-backend/api/validators"
	"github.com/angelmondragon/carbidz-backend/internal/auctions"
	pkgerrors "github.com/angelmondragon/carbidz-backend/pkg/errors"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
)

type createAuctionRequest struct {
	Make         string    `json:"make" validate:"required,notblank,max=64"`
	Model        string    `json:"model" validate:"required,notblank,max=64"`
	Year         int       `json:"year" validate:"required,gte=1886,lte=2100"`
	Color        string    `json:"color" validate:"required,notblank,max=32"`
	Mileage      int       `json:"mileage" validate:"gte=0"`
	ImageURL     string    `json:"imageUrl" validate:"omitempty,url"`
	ReservePrice int64     `json:"reservePrice" validate:"gte=0"`
	AuctionEnd   time.Time `json:"auctionEnd" validate:"required"`
}

type updateAuctionRequest struct {
	Make     *string `json:"make" validate:"omitempty,notblank,max=64"`
	Model    *string `json:"model" validate:"omitempty,notblank,max=64"`
	Year     *int    `json:"year" validate:"omitempty,gte=1886,lte=2100"`
	Color    *string `json:"color" validate:"omitempty,notblank,max=32"`
	Mileage  *int    `json:"mileage" validate:"omitempty,gte=0"`
	ImageURL *string `json:"imageUrl" validate:"omitempty,url"`
}

func ListAuctions(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since, err := validators.ParseQueryTime(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), since)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetAuction(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func CreateAuction(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seller, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		var body createAuctionRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Create(r.Context(), seller, auctions.CreateAuctionInput{
			Make:         strings.TrimSpace(body.Make),
			Model:        strings.TrimSpace(body.Model),
			Year:         body.Year,
			Color:        strings.TrimSpace(body.Color),
			Mileage:      body.Mileage,
			ImageURL:     strings.TrimSpace(body.ImageURL),
			ReservePrice: body.ReservePrice,
			AuctionEnd:   body.AuctionEnd,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func UpdateAuction(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateAuctionRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Update(r.Context(), caller, id, auctions.UpdateAuctionInput{
			Make:     body.Make,
			Model:    body.Model,
			Year:     body.Year,
			Color:    body.Color,
			Mileage:  body.Mileage,
			ImageURL: body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func DeleteAuction(svc auctions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), caller, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func requireIdentity(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return identity, true
}
