package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodQR       PaymentMethod = "qr"
	PaymentMethodOmise    PaymentMethod = "omise"
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

func (m PaymentMethod) Offline() bool {
	return m == PaymentMethodCash || m == PaymentMethodTransfer
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type Payment struct {
	ID               int64           `json:"id"`
	BookingID        int64           `json:"booking_id"`
	UserID           int64           `json:"user_id"`
	Amount           decimal.Decimal `json:"amount"`
	Method           PaymentMethod   `json:"method"`
	Status           PaymentStatus   `json:"status"`
	ExternalChargeID *string         `json:"external_charge_id,omitempty"`
	QRCode           *string         `json:"qr_code,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type PaymentFilter struct {
	UserID    *int64
	BookingID *int64
	Status    *PaymentStatus
	Limit     int
	Offset    int
}

// ChargeRequest is what the payment gateway needs to open a charge.
type ChargeRequest struct {
	AmountMinor int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// Charge is the gateway's view of a charge, as returned on creation or lookup.
type Charge struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Paid        bool      `json:"paid"`
	AmountMinor int64     `json:"amount"`
	QRImageURL  string    `json:"qr_image_url,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

const (
	ChargeStatusSuccessful = "successful"
	ChargeStatusFailed     = "failed"
	ChargeStatusExpired    = "expired"
	ChargeStatusPending    = "pending"
)

func (c Charge) Succeeded() bool {
	return c.Paid || c.Status == ChargeStatusSuccessful
}

func (c Charge) Failed() bool {
	return !c.Succeeded() && (c.Status == ChargeStatusFailed || c.Status == ChargeStatusExpired)
}

const (
	ChargeEventComplete = "charge.complete"
	ChargeEventFailed   = "charge.failed"
)

// ChargeEvent is the webhook payload delivered by the gateway.
type ChargeEvent struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Data struct {
		ID     string `json:"id"`
		Paid   bool   `json:"paid"`
		Status string `json:"status"`
	} `json:"data"`
}
