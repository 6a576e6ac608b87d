// Package pricing computes booking totals from a court's hourly rate and rented equipment.
// All money is decimal; nothing here touches the store.
package pricing

import (
	"fmt"
	"sort"

	"github.com/Domenick1991/courtbooking/internal/domain"
	"github.com/shopspring/decimal"
)

var minutesPerHour = decimal.NewFromInt(60)

type Line struct {
	EquipmentID int64           `json:"equipment_id"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Price       decimal.Decimal `json:"price"`
}

type Quote struct {
	CourtPrice decimal.Decimal `json:"court_price"`
	Lines      []Line          `json:"lines"`
	Total      decimal.Decimal `json:"total"`
}

// CourtPrice is rate * minutes / 60, unrounded. The multiplication happens first
// so a 20 minute slot does not carry a truncated third of an hour.
func CourtPrice(rate decimal.Decimal, minutes int) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(int64(minutes))).Div(minutesPerHour)
}

// MergeRequests validates equipment requests and folds duplicate ids together.
// The result is sorted by equipment id so callers lock rows in a stable order.
func MergeRequests(reqs []domain.EquipmentRequest) ([]domain.EquipmentRequest, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	qty := make(map[int64]int, len(reqs))
	for _, r := range reqs {
		if r.EquipmentID <= 0 {
			return nil, fmt.Errorf("%w: equipment_id is required", domain.ErrValidation)
		}
		if r.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for equipment %d must be positive", domain.ErrValidation, r.EquipmentID)
		}
		qty[r.EquipmentID] += r.Quantity
	}

	merged := make([]domain.EquipmentRequest, 0, len(qty))
	for id, q := range qty {
		merged = append(merged, domain.EquipmentRequest{EquipmentID: id, Quantity: q})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].EquipmentID < merged[j].EquipmentID })
	return merged, nil
}

// Compute prices a booking: rate * minutes / 60 plus rental_price * quantity per item.
// inventory must reflect the current (locked) equipment rows; any missing item or
// shortfall rejects the whole quote.
func Compute(rate decimal.Decimal, minutes int, reqs []domain.EquipmentRequest, inventory map[int64]domain.Equipment) (Quote, error) {
	if rate.IsNegative() {
		return Quote{}, fmt.Errorf("%w: negative hourly rate", domain.ErrValidation)
	}
	if minutes <= 0 {
		return Quote{}, fmt.Errorf("%w: duration must be positive", domain.ErrValidation)
	}

	q := Quote{CourtPrice: CourtPrice(rate, minutes)}
	total := q.CourtPrice
	for _, r := range reqs {
		item, ok := inventory[r.EquipmentID]
		if !ok {
			return Quote{}, fmt.Errorf("%w: id %d", domain.ErrEquipmentNotFound, r.EquipmentID)
		}
		if r.Quantity > item.Stock {
			return Quote{}, fmt.Errorf("%w: %s has %d left, %d requested", domain.ErrInsufficientStock, item.Name, item.Stock, r.Quantity)
		}
		price := item.RentalPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
		q.Lines = append(q.Lines, Line{
			EquipmentID: item.ID,
			Name:        item.Name,
			Quantity:    r.Quantity,
			UnitPrice:   item.RentalPrice,
			Price:       price,
		})
		total = total.Add(price)
	}
	q.CourtPrice = q.CourtPrice.Round(2)
	q.Total = total.Round(2)
	return q, nil
}

// MinorUnits converts an amount to the gateway's smallest currency unit (satang, cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
