package dto

import (
	"time"

	"github.com/dukasync/storesync/internal/domain/model"
)

// OrderItemResponse is one snapshot line of a committed order.
type OrderItemResponse struct {
	Name     string  `json:"name"`
	Size     string  `json:"size"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// OrderResponse is the back-office view of one order.
type OrderResponse struct {
	ID             string              `json:"id"`
	RemoteID       string              `json:"remote_id,omitempty"`
	Items          []OrderItemResponse `json:"items"`
	Total          float64             `json:"total"`
	TotalPaid      float64             `json:"total_paid"`
	Codes          []string            `json:"codes"`
	Verification   string              `json:"verification"`
	Status         string              `json:"status"`
	DeliveryStatus string              `json:"delivery_status,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// OrderFromModel maps an order record to its API shape.
func OrderFromModel(o model.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			Name:     item.Name,
			Size:     item.Size,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	return OrderResponse{
		ID:             o.ID,
		RemoteID:       o.RemoteID,
		Items:          items,
		Total:          o.Total,
		TotalPaid:      o.TotalPaid,
		Codes:          o.CodeStrings(),
		Verification:   string(o.Verification),
		Status:         string(o.Status),
		DeliveryStatus: o.DeliveryStatus,
		CreatedAt:      o.CreatedAt,
	}
}

// DeliveryStatusRequest changes the delivery state of an order.
type DeliveryStatusRequest struct {
	Status string `json:"status"`
}
