package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jortega-dev/riverside-backend/api/middleware"
	"github.com/jortega-dev/riverside-backend/api/responses"
	"github.com/jortega-dev/riverside-backend/api/validators"
	"github.com/jortega-dev/riverside-backend/internal/inventory"
	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
	"github.com/jortega-dev/riverside-backend/pkg/logger"
)

// ItemAvailability reports the live available quantity for one item.
func ItemAvailability(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParsePathUUID(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		qty, err := validators.ParseQueryInt(r, "qty", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, err := validators.ParseQueryTime(r, "start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseQueryTime(r, "end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ok, available, err := svc.CheckAvailability(r.Context(), nil, itemID, qty, start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"available":    ok,
			"availableQty": available,
			"requestedQty": qty,
		})
	}
}

// ResourceItems lists the reservable equipment attached to a resource.
func ResourceItems(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, err := validators.ParsePathUUID(chi.URLParam(r, "resourceId"), "resourceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListReservableItems(r.Context(), resourceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toItemResponses(items))
	}
}

type movementRequest struct {
	Kind string  `json:"kind" validate:"required"`
	Qty  int     `json:"qty" validate:"required,gt=0"`
	Note *string `json:"note,omitempty"`
}

// ItemRecordMovement applies a manual stock movement. This is the only way
// total quantity changes.
func ItemRecordMovement(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParsePathUUID(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req movementRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseMovementKind(req.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement kind"))
			return
		}
		actorID, err := customerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RecordMovement(r.Context(), itemID, kind, req.Qty, &actorID, req.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records := toMovementResponses([]models.MovementRecord{*record})
		responses.WriteSuccessStatus(w, http.StatusCreated, records[0])
	}
}

// ItemMovements returns the movement ledger for one item, newest first.
func ItemMovements(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParsePathUUID(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var since *time.Time
		if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "since must be an RFC3339 timestamp"))
				return
			}
			since = &parsed
		}

		records, err := svc.ListMovements(r.Context(), itemID, since, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toMovementResponses(records))
	}
}

// ItemRecompute rebuilds the cached available counter from live reservation
// lines. Idempotent; the operator answer to an audit discrepancy.
func ItemRecompute(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParsePathUUID(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.RecomputeAvailability(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"item_id":       item.ID,
				"available_qty": item.AvailableQty,
				"actor":         middleware.CustomerIDFromContext(r.Context()),
			})
			logg.Info(ctx, "inventory.recompute")
		}
		responses.WriteSuccess(w, toItemResponse(item))
	}
}
