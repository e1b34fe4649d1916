package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jortega-dev/riverside-backend/api/middleware"
	"github.com/jortega-dev/riverside-backend/api/responses"
	"github.com/jortega-dev/riverside-backend/api/validators"
	"github.com/jortega-dev/riverside-backend/internal/inventory"
	"github.com/jortega-dev/riverside-backend/internal/reservations"
	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
	"github.com/jortega-dev/riverside-backend/pkg/logger"
)

const defaultListLimit = 50

func customerFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.CustomerIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing customer identity")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid customer identity")
	}
	return id, nil
}

type lineRequest struct {
	ItemID string `json:"itemId" validate:"required,uuid"`
	Qty    int    `json:"qty" validate:"required,gt=0"`
}

func toLineRequests(lines []lineRequest) ([]inventory.LineRequest, error) {
	out := make([]inventory.LineRequest, 0, len(lines))
	for _, line := range lines {
		itemID, err := uuid.Parse(line.ItemID)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id must be a uuid")
		}
		out = append(out, inventory.LineRequest{ItemID: itemID, Qty: line.Qty})
	}
	return out, nil
}

type createReservationRequest struct {
	ResourceID string        `json:"resourceId" validate:"required,uuid"`
	StartsAt   time.Time     `json:"startsAt" validate:"required"`
	EndsAt     time.Time     `json:"endsAt" validate:"required"`
	Lines      []lineRequest `json:"lines,omitempty" validate:"dive"`
	Notes      *string       `json:"notes,omitempty"`
}

// ReservationCreate books a resource for the authenticated customer.
func ReservationCreate(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req createReservationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resourceID, err := uuid.Parse(req.ResourceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "resource id must be a uuid"))
			return
		}
		lines, err := toLineRequests(req.Lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservation, err := svc.Create(r.Context(), reservations.CreateInput{
			ResourceID: resourceID,
			CustomerID: customerID,
			StartsAt:   req.StartsAt,
			EndsAt:     req.EndsAt,
			Lines:      lines,
			Notes:      req.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toReservationResponse(reservation))
	}
}

// ReservationDetail returns one reservation. Customers only see their own;
// staff tokens see everything.
func ReservationDetail(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservation, err := loadOwnedReservation(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toReservationResponse(reservation))
	}
}

// ReservationList returns the authenticated customer's reservations, newest
// first, optionally filtered by status.
func ReservationList(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var statuses []enums.ReservationStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				status, err := enums.ParseReservationStatus(strings.TrimSpace(part))
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
					return
				}
				statuses = append(statuses, status)
			}
		}

		list, err := svc.ListByCustomer(r.Context(), customerID, statuses, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toReservationResponses(list))
	}
}

type transitionRequest struct {
	Target string `json:"target" validate:"required"`
}

// ReservationTransition moves a reservation along the lifecycle table.
func ReservationTransition(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservation, err := loadOwnedReservation(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req transitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseReservationStatus(req.Target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}
		actorID, _ := customerFromContext(r)

		updated, err := svc.Transition(r.Context(), reservation.ID, target, &actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toReservationResponse(updated))
	}
}

type confirmPaymentRequest struct {
	Amount      string  `json:"amount" validate:"required"`
	Method      string  `json:"method" validate:"required"`
	ExternalRef *string `json:"externalRef,omitempty"`
}

// ReservationConfirmPayment records payment and confirms the reservation. The
// amount must match the stored total exactly.
func ReservationConfirmPayment(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservation, err := loadOwnedReservation(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string"))
			return
		}
		method, err := enums.ParsePaymentMethod(req.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		confirmed, err := svc.ConfirmWithPayment(r.Context(), reservation.ID, amount, method, req.ExternalRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toReservationResponse(confirmed))
	}
}

func loadOwnedReservation(r *http.Request, svc reservations.Service) (*models.Reservation, error) {
	id, err := validators.ParsePathUUID(chi.URLParam(r, "reservationId"), "reservationId")
	if err != nil {
		return nil, err
	}
	reservation, err := svc.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if middleware.PrivilegedFromContext(r.Context()) {
		return reservation, nil
	}
	customerID, err := customerFromContext(r)
	if err != nil {
		return nil, err
	}
	// Other customers' reservations read as missing, not forbidden.
	if reservation.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
	}
	return reservation, nil
}
