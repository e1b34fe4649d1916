package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jortega-dev/riverside-backend/api/responses"
	"github.com/jortega-dev/riverside-backend/api/validators"
	"github.com/jortega-dev/riverside-backend/internal/availability"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
	"github.com/jortega-dev/riverside-backend/pkg/logger"
	"github.com/jortega-dev/riverside-backend/pkg/types"
)

// AvailabilityList returns the block calendar for a resource on one date.
func AvailabilityList(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, err := validators.ParsePathUUID(chi.URLParam(r, "resourceId"), "resourceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		blocks, err := svc.ListBlocks(r.Context(), resourceID, date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBlockResponses(blocks))
	}
}

type generateBlocksRequest struct {
	Date         string `json:"date" validate:"required"`
	Open         string `json:"open" validate:"required"`
	Close        string `json:"close" validate:"required"`
	BlockMinutes int    `json:"blockMinutes" validate:"required,gt=0"`
}

// AvailabilityGenerate builds the slot calendar for a service resource.
func AvailabilityGenerate(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, err := validators.ParsePathUUID(chi.URLParam(r, "resourceId"), "resourceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req generateBlocksRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD"))
			return
		}
		open, err := types.ParseTimeOfDay(req.Open)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid open time"))
			return
		}
		closeAt, err := types.ParseTimeOfDay(req.Close)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid close time"))
			return
		}

		created, err := svc.GenerateBlocks(r.Context(), resourceID, date, open, closeAt, req.BlockMinutes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]int{"created": created})
	}
}

type blackoutRequest struct {
	Date      string  `json:"date" validate:"required"`
	SlotStart *string `json:"slotStart,omitempty"`
	Reason    string  `json:"reason" validate:"required"`
}

// AvailabilityBlackout closes a day or a single slot for maintenance or
// similar operator reasons.
func AvailabilityBlackout(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, err := validators.ParsePathUUID(chi.URLParam(r, "resourceId"), "resourceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req blackoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD"))
			return
		}
		var slot *types.TimeOfDay
		if req.SlotStart != nil {
			parsed, err := types.ParseTimeOfDay(*req.SlotStart)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid slot start"))
				return
			}
			slot = &parsed
		}

		if err := svc.Blackout(r.Context(), resourceID, date, slot, req.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "blocked"})
	}
}

// AvailabilityClearBlackout reopens a previously blacked-out day or slot.
func AvailabilityClearBlackout(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, err := validators.ParsePathUUID(chi.URLParam(r, "resourceId"), "resourceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		slot, err := validators.ParseQueryClock(r, "slotStart")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ClearBlackout(r.Context(), resourceID, date, slot); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "open"})
	}
}
