package dto

import (
	"time"

	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/usecase"
)

// CheckoutItem is one cart line.
type CheckoutItem struct {
	Name     string `json:"name"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// CheckoutRequest opens a session from a cart snapshot.
type CheckoutRequest struct {
	Items []CheckoutItem `json:"items"`
}

// ToItems maps cart lines onto order items.
func (r CheckoutRequest) ToItems() []model.OrderItem {
	items := make([]model.OrderItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, model.OrderItem{
			Name:     item.Name,
			Size:     item.Size,
			Quantity: item.Quantity,
		})
	}
	return items
}

// SessionResponse is the state of one checkout session.
type SessionResponse struct {
	SessionID string  `json:"session_id"`
	Total     float64 `json:"total"`
	Paid      float64 `json:"paid"`
	Remaining float64 `json:"remaining"`
	Done      bool    `json:"done"`
	Status    string  `json:"status"`
	Codes     int     `json:"codes"`
}

// SessionFromView maps the use case view to its API shape.
func SessionFromView(v *usecase.SessionView) SessionResponse {
	return SessionResponse{
		SessionID: v.ID,
		Total:     v.Total,
		Paid:      v.Paid,
		Remaining: v.Remaining,
		Done:      v.Done,
		Status:    string(v.Status),
		Codes:     v.Codes,
	}
}

// CodeRequest submits one payment code.
type CodeRequest struct {
	Code string `json:"code"`
}

// CodeResponse reports the verification verdict and the updated balance.
type CodeResponse struct {
	State         string     `json:"state"`
	Reason        string     `json:"reason,omitempty"`
	Amount        float64    `json:"amount,omitempty"`
	TransactionAt *time.Time `json:"transaction_at,omitempty"`
	BoundOrder    string     `json:"bound_order,omitempty"`
	Remaining     float64    `json:"remaining"`
	Done          bool       `json:"done"`
}

// CodeFromResult maps the use case result to its API shape.
func CodeFromResult(r *usecase.CodeResult) CodeResponse {
	resp := CodeResponse{
		State:      string(r.Verdict.State),
		Amount:     r.Verdict.Amount,
		BoundOrder: r.Verdict.BoundOrder,
		Remaining:  r.Remaining,
		Done:       r.Done,
	}
	if err := r.Verdict.State.Err(); err != nil {
		resp.Reason = err.Error()
	}
	if !r.Verdict.TransactionAt.IsZero() {
		at := r.Verdict.TransactionAt
		resp.TransactionAt = &at
	}
	return resp
}

// TierResult is the per-store outcome of a commit.
type TierResult struct {
	Tier  string `json:"tier"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// CommitResponse reports where a committed order landed.
type CommitResponse struct {
	OrderID  string       `json:"order_id"`
	RemoteID string       `json:"remote_id,omitempty"`
	Status   string       `json:"status"`
	Warning  string       `json:"warning,omitempty"`
	Tiers    []TierResult `json:"tiers,omitempty"`
}

// CommitFromResult maps the use case result to its API shape.
func CommitFromResult(r *usecase.CommitResult) CommitResponse {
	resp := CommitResponse{
		OrderID:  r.Order.ID,
		RemoteID: r.Order.RemoteID,
		Status:   string(r.Order.Status),
		Warning:  r.Warning,
	}
	for _, tier := range r.Outcome {
		tr := TierResult{Tier: string(tier.Tier), OK: tier.Success}
		if tier.Err != nil {
			tr.Error = tier.Err.Error()
		}
		resp.Tiers = append(resp.Tiers, tr)
	}
	return resp
}
