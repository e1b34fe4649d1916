package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jortega-dev/riverside-backend/pkg/db/models"
)

type lineResponse struct {
	ID        uuid.UUID       `json:"id"`
	ItemID    uuid.UUID       `json:"itemId"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type reservationResponse struct {
	ID         uuid.UUID       `json:"id"`
	ResourceID uuid.UUID       `json:"resourceId"`
	CustomerID uuid.UUID       `json:"customerId"`
	PackageID  *uuid.UUID      `json:"packageId,omitempty"`
	StartsAt   time.Time       `json:"startsAt"`
	EndsAt     time.Time       `json:"endsAt"`
	Status     string          `json:"status"`
	BasePrice  decimal.Decimal `json:"basePrice"`
	ItemsPrice decimal.Decimal `json:"itemsPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Notes      *string         `json:"notes,omitempty"`
	Items      []lineResponse  `json:"items,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func toReservationResponse(r *models.Reservation) reservationResponse {
	resp := reservationResponse{
		ID:         r.ID,
		ResourceID: r.ResourceID,
		CustomerID: r.CustomerID,
		PackageID:  r.PackageID,
		StartsAt:   r.StartsAt,
		EndsAt:     r.EndsAt,
		Status:     string(r.Status),
		BasePrice:  r.BasePrice,
		ItemsPrice: r.ItemsPrice,
		TotalPrice: r.TotalPrice,
		Notes:      r.Notes,
		CreatedAt:  r.CreatedAt,
	}
	for _, line := range r.Items {
		resp.Items = append(resp.Items, lineResponse{
			ID:        line.ID,
			ItemID:    line.ItemID,
			Qty:       line.Qty,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		})
	}
	return resp
}

func toReservationResponses(list []models.Reservation) []reservationResponse {
	out := make([]reservationResponse, 0, len(list))
	for i := range list {
		out = append(out, toReservationResponse(&list[i]))
	}
	return out
}

type packageResponse struct {
	ID         uuid.UUID             `json:"id"`
	CustomerID uuid.UUID             `json:"customerId"`
	Name       string                `json:"name"`
	Status     string                `json:"status"`
	StartsAt   time.Time             `json:"startsAt"`
	EndsAt     time.Time             `json:"endsAt"`
	Total      decimal.Decimal       `json:"total"`
	Discount   decimal.Decimal       `json:"discount"`
	Final      decimal.Decimal       `json:"final"`
	Notes      *string               `json:"notes,omitempty"`
	Members    []reservationResponse `json:"members,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
}

func toPackageResponse(p *models.Package) packageResponse {
	resp := packageResponse{
		ID:         p.ID,
		CustomerID: p.CustomerID,
		Name:       p.Name,
		Status:     string(p.Status),
		StartsAt:   p.StartsAt,
		EndsAt:     p.EndsAt,
		Total:      p.Total,
		Discount:   p.Discount,
		Final:      p.Final,
		Notes:      p.Notes,
		CreatedAt:  p.CreatedAt,
	}
	for i := range p.Members {
		resp.Members = append(resp.Members, toReservationResponse(&p.Members[i]))
	}
	return resp
}

func toPackageResponses(list []models.Package) []packageResponse {
	out := make([]packageResponse, 0, len(list))
	for i := range list {
		out = append(out, toPackageResponse(&list[i]))
	}
	return out
}

type blockResponse struct {
	ID           uuid.UUID        `json:"id"`
	Date         string           `json:"date"`
	StartsAt     *string          `json:"startsAt,omitempty"`
	EndsAt       *string          `json:"endsAt,omitempty"`
	Available    bool             `json:"available"`
	Reason       string           `json:"reason,omitempty"`
	SpecialPrice *decimal.Decimal `json:"specialPrice,omitempty"`
}

func toBlockResponses(blocks []models.AvailabilityBlock) []blockResponse {
	out := make([]blockResponse, 0, len(blocks))
	for _, block := range blocks {
		resp := blockResponse{
			ID:           block.ID,
			Date:         block.Date.Format("2006-01-02"),
			Available:    block.Available,
			Reason:       block.Reason,
			SpecialPrice: block.SpecialPrice,
		}
		if block.StartsAt != nil {
			s := block.StartsAt.String()
			resp.StartsAt = &s
		}
		if block.EndsAt != nil {
			e := block.EndsAt.String()
			resp.EndsAt = &e
		}
		out = append(out, resp)
	}
	return out
}

type itemResponse struct {
	ID           uuid.UUID       `json:"id"`
	ResourceID   uuid.UUID       `json:"resourceId"`
	Name         string          `json:"name"`
	TotalQty     int             `json:"totalQty"`
	AvailableQty int             `json:"availableQty"`
	Reservable   bool            `json:"reservable"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
}

func toItemResponse(item *models.InventoryItem) itemResponse {
	return itemResponse{
		ID:           item.ID,
		ResourceID:   item.ResourceID,
		Name:         item.Name,
		TotalQty:     item.TotalQty,
		AvailableQty: item.AvailableQty,
		Reservable:   item.Reservable,
		UnitPrice:    item.UnitReservationPrice,
	}
}

func toItemResponses(items []models.InventoryItem) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for i := range items {
		out = append(out, toItemResponse(&items[i]))
	}
	return out
}

type movementResponse struct {
	ID          uuid.UUID `json:"id"`
	ItemID      uuid.UUID `json:"itemId"`
	Kind        string    `json:"kind"`
	Qty         int       `json:"qty"`
	StockBefore int       `json:"stockBefore"`
	StockAfter  int       `json:"stockAfter"`
	Note        *string   `json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toMovementResponses(records []models.MovementRecord) []movementResponse {
	out := make([]movementResponse, 0, len(records))
	for _, record := range records {
		out = append(out, movementResponse{
			ID:          record.ID,
			ItemID:      record.ItemID,
			Kind:        string(record.Kind),
			Qty:         record.Qty,
			StockBefore: record.StockBefore,
			StockAfter:  record.StockAfter,
			Note:        record.Note,
			CreatedAt:   record.CreatedAt,
		})
	}
	return out
}
