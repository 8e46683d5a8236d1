package model

import "time"

// OrderStatus describes the commit lifecycle of an order.
type OrderStatus string

const (
	OrderStatusDraft             OrderStatus = "DRAFT"
	OrderStatusVerifying         OrderStatus = "VERIFYING"
	OrderStatusPartiallyPaid     OrderStatus = "PARTIALLY_PAID"
	OrderStatusCommitLocal       OrderStatus = "COMMIT_LOCAL"
	OrderStatusCommittedRemote   OrderStatus = "COMMITTED_REMOTE"
	OrderStatusPendingRemoteSync OrderStatus = "PENDING_REMOTE_SYNC"
	OrderStatusRolledBack        OrderStatus = "ROLLED_BACK"
)

// VerificationStatus summarizes payment verification for an order record.
type VerificationStatus string

const (
	VerificationPending   VerificationStatus = "pending"
	VerificationVerified  VerificationStatus = "verified"
	VerificationDuplicate VerificationStatus = "duplicate"
	VerificationFailed    VerificationStatus = "failed"
)

// OrderItem is a snapshot of a product at checkout time, never a live
// reference into the catalog.
type OrderItem struct {
	Name     string  `json:"name"`
	Size     string  `json:"size"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order is one checkout attempt.
type Order struct {
	ID             string             `json:"id"`
	RemoteID       string             `json:"remote_id,omitempty"`
	Items          []OrderItem        `json:"items"`
	Total          float64            `json:"total"`
	Codes          []PaymentCode      `json:"codes"`
	TotalPaid      float64            `json:"total_paid"`
	Verification   VerificationStatus `json:"verification"`
	Status         OrderStatus        `json:"status"`
	DeliveryStatus string             `json:"delivery_status,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// PaymentEpsilon absorbs currency rounding: an order is eligible for commit
// once TotalPaid >= Total - PaymentEpsilon.
const PaymentEpsilon = 1.0

// Paid reports whether accumulated verified payments satisfy the total.
func (o Order) Paid() bool {
	return o.TotalPaid >= o.Total-PaymentEpsilon
}

// CodeStrings returns the normalized codes attached to the order.
func (o Order) CodeStrings() []string {
	out := make([]string, 0, len(o.Codes))
	for _, c := range o.Codes {
		out = append(out, c.Code)
	}
	return out
}
