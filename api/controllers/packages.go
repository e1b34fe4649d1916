package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jortega-dev/riverside-backend/api/middleware"
	"github.com/jortega-dev/riverside-backend/api/responses"
	"github.com/jortega-dev/riverside-backend/api/validators"
	"github.com/jortega-dev/riverside-backend/internal/packages"
	"github.com/jortega-dev/riverside-backend/pkg/db/models"
	"github.com/jortega-dev/riverside-backend/pkg/enums"
	pkgerrors "github.com/jortega-dev/riverside-backend/pkg/errors"
	"github.com/jortega-dev/riverside-backend/pkg/logger"
)

type memberSpecRequest struct {
	ResourceID string        `json:"resourceId" validate:"required,uuid"`
	StartsAt   time.Time     `json:"startsAt" validate:"required"`
	EndsAt     time.Time     `json:"endsAt" validate:"required"`
	Lines      []lineRequest `json:"lines,omitempty" validate:"dive"`
}

func toMemberSpec(req memberSpecRequest) (packages.MemberSpec, error) {
	resourceID, err := uuid.Parse(req.ResourceID)
	if err != nil {
		return packages.MemberSpec{}, pkgerrors.New(pkgerrors.CodeValidation, "member resource id must be a uuid")
	}
	lines, err := toLineRequests(req.Lines)
	if err != nil {
		return packages.MemberSpec{}, err
	}
	return packages.MemberSpec{
		ResourceID: resourceID,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
		Lines:      lines,
	}, nil
}

type createPackageRequest struct {
	Name     string              `json:"name" validate:"required"`
	Lodging  *memberSpecRequest  `json:"lodging,omitempty"`
	Services []memberSpecRequest `json:"services,omitempty" validate:"dive"`
	Notes    *string             `json:"notes,omitempty"`
}

// PackageCreate books every member reservation in one transaction.
func PackageCreate(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := customerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req createPackageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := packages.CreateInput{
			CustomerID: customerID,
			Name:       req.Name,
			Notes:      req.Notes,
		}
		if req.Lodging != nil {
			lodging, err := toMemberSpec(*req.Lodging)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Lodging = &lodging
		}
		for _, raw := range req.Services {
			spec, err := toMemberSpec(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Services = append(input.Services, spec)
		}

		pkg, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toPackageResponse(pkg))
	}
}

// PackageDetail returns one package with its members.
func PackageDetail(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pkg, err := loadOwnedPackage(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPackageResponse(pkg))
	}
}

// PackageList returns the authenticated customer's packages.
func PackageList(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
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

		list, err := svc.ListByCustomer(r.Context(), customerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPackageResponses(list))
	}
}

// PackageConfirm records the payment and confirms every member atomically.
func PackageConfirm(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pkg, err := loadOwnedPackage(r, svc)
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

		confirmed, err := svc.Confirm(r.Context(), pkg.ID, amount, method, req.ExternalRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPackageResponse(confirmed))
	}
}

// PackageCancel cancels the package and cascades to its live members.
func PackageCancel(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pkg, err := loadOwnedPackage(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID, err := customerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cancelled, err := svc.Cancel(r.Context(), pkg.ID, &actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPackageResponse(cancelled))
	}
}

type quoteResponse struct {
	Total        decimal.Decimal `json:"total"`
	Percent      decimal.Decimal `json:"percent"`
	Discount     decimal.Decimal `json:"discount"`
	Final        decimal.Decimal `json:"final"`
	StayDays     int             `json:"stayDays"`
	ServiceCount int             `json:"serviceCount"`
}

// PackageQuote previews the discount without persisting anything.
func PackageQuote(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pkg, err := loadOwnedPackage(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.QuoteDiscount(r.Context(), pkg.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quoteResponse{
			Total:        quote.Total,
			Percent:      quote.Percent,
			Discount:     quote.Discount,
			Final:        quote.Final,
			StayDays:     quote.StayDays,
			ServiceCount: quote.ServiceCnt,
		})
	}
}

// PackageApplyDiscount persists the quoted discount. Operator-only; rejected
// once the package leaves pending.
func PackageApplyDiscount(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "packageId"), "packageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.ApplyDiscount(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPackageResponse(updated))
	}
}

func loadOwnedPackage(r *http.Request, svc packages.Service) (*models.Package, error) {
	id, err := validators.ParsePathUUID(chi.URLParam(r, "packageId"), "packageId")
	if err != nil {
		return nil, err
	}
	pkg, err := svc.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if middleware.PrivilegedFromContext(r.Context()) {
		return pkg, nil
	}
	customerID, err := customerFromContext(r)
	if err != nil {
		return nil, err
	}
	if pkg.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
	}
	return pkg, nil
}
