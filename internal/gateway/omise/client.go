// Package omise adapts the Omise API to the payment service's Gateway contract.
// Charges are PromptPay: a source is created first and the charge carries its QR code.
package omise

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

const sourceTypePromptPay = "promptpay"

type Client struct {
	omc     *omise.Client
	timeout time.Duration
}

func NewClient(publicKey, secretKey string, timeout time.Duration) (*Client, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}
	c.SetDebug(false)
	return &Client{omc: c, timeout: timeout}, nil
}

type chargeResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Paid        bool      `json:"paid"`
	Amount      int64     `json:"amount"`
	ExpiresAt   time.Time `json:"expires_at"`
	FailureCode *string   `json:"failure_code"`
	Source      *struct {
		ID            string `json:"id"`
		Type          string `json:"type"`
		ScannableCode *struct {
			Image struct {
				DownloadURI string `json:"download_uri"`
			} `json:"image"`
		} `json:"scannable_code"`
	} `json:"source"`
}

type sourceResponse struct {
	ID string `json:"id"`
}

func (c *Client) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("%w: charge amount must be positive", domain.ErrValidation)
	}

	src := &sourceResponse{}
	if err := c.do(ctx, src, &operations.CreateSource{
		Type:     sourceTypePromptPay,
		Amount:   req.AmountMinor,
		Currency: req.Currency,
	}); err != nil {
		return nil, fmt.Errorf("%w: create source: %w", domain.ErrGateway, err)
	}

	metadata := make(map[string]interface{}, len(req.Metadata))
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	ch := &chargeResponse{}
	if err := c.do(ctx, ch, &operations.CreateCharge{
		Amount:      req.AmountMinor,
		Currency:    req.Currency,
		Source:      src.ID,
		Description: req.Description,
		Metadata:    metadata,
	}); err != nil {
		return nil, fmt.Errorf("%w: create charge: %w", domain.ErrGateway, err)
	}
	return toCharge(ch)
}

func (c *Client) GetCharge(ctx context.Context, chargeID string) (*domain.Charge, error) {
	ch := &chargeResponse{}
	if err := c.do(ctx, ch, &operations.RetrieveCharge{ChargeID: chargeID}); err != nil {
		return nil, fmt.Errorf("%w: retrieve charge %s: %w", domain.ErrGateway, chargeID, err)
	}
	return toCharge(ch)
}

func toCharge(ch *chargeResponse) (*domain.Charge, error) {
	if ch.ID == "" {
		return nil, fmt.Errorf("%w: charge without id", domain.ErrGateway)
	}
	charge := &domain.Charge{
		ID:          ch.ID,
		Status:      ch.Status,
		Paid:        ch.Paid,
		AmountMinor: ch.Amount,
		ExpiresAt:   ch.ExpiresAt,
	}
	if ch.Source != nil && ch.Source.ScannableCode != nil {
		charge.QRImageURL = ch.Source.ScannableCode.Image.DownloadURI
	}
	return charge, nil
}

// do runs a blocking SDK call but returns as soon as ctx or the client timeout expires.
func (c *Client) do(ctx context.Context, result interface{}, op interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- c.call(result, op)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) call(result interface{}, op interface{}) error {
	switch o := op.(type) {
	case *operations.CreateSource:
		return c.omc.Do(result, o)
	case *operations.CreateCharge:
		return c.omc.Do(result, o)
	case *operations.RetrieveCharge:
		return c.omc.Do(result, o)
	}
	return errors.New("unsupported omise operation")
}
