package core

import (
	"errors"
	"strings"
	"time"
)

// DefaultDueDay is used whenever a Configuration is created implicitly or
// saved with a non-positive due day.
const DefaultDueDay = 5

type (
	// Property identifies one rented unit. Properties are never deleted.
	Property struct {
		ID       int64
		Label    string
		Address  string
		Locality string
	}

	// Configuration holds the fixed billing parameters of a Property.
	// Exactly one row exists per Property.
	Configuration struct {
		PropertyID     int64
		LandlordName   string
		LandlordDoc    string
		TenantName     string
		TenantDoc      string
		DueDay         int
		Bank           string
		Branch         string
		Account        string
		AccountType    string
		Holder         string
		HolderDoc      string
		PixKey         string
		ReceiptContact string
	}

	// ChargeLine is one billable item: an amount plus a free-text note.
	ChargeLine struct {
		Amount Money
		Note   string
	}

	// LedgerRecord holds the variable charges of one Property for one
	// calendar month. Keyed by (PropertyID, Month).
	LedgerRecord struct {
		PropertyID     int64
		Month          string
		Rent           ChargeLine
		CondoFee       ChargeLine
		PropertyTax    ChargeLine
		Water          ChargeLine
		FireInsurance  ChargeLine
		OtherFees      ChargeLine
		OtherDiscounts ChargeLine
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}
)

var (
	ErrNotFound      = errors.New("not found")
	ErrEmptyLabel    = errors.New("empty label")
	ErrEmptyAddress  = errors.New("empty address")
	ErrEmptyLocality = errors.New("empty locality")
	ErrInvalidMonth  = errors.New("invalid month")
)

// IsValidation reports whether err belongs to the validation family,
// as opposed to not-found or infrastructure failures.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyLabel) ||
		errors.Is(err, ErrEmptyAddress) ||
		errors.Is(err, ErrEmptyLocality) ||
		errors.Is(err, ErrInvalidMonth)
}

// Normalize trims the text fields in place and validates that none of the
// required fields is blank.
func (p *Property) Normalize() error {
	p.Label = strings.TrimSpace(p.Label)
	p.Address = strings.TrimSpace(p.Address)
	p.Locality = strings.TrimSpace(p.Locality)
	if p.Label == "" {
		return ErrEmptyLabel
	}
	if p.Address == "" {
		return ErrEmptyAddress
	}
	if p.Locality == "" {
		return ErrEmptyLocality
	}
	return nil
}

// Normalize applies the due-day default. A non-positive due day falls back
// to DefaultDueDay; any other value is kept as entered.
func (c *Configuration) Normalize() {
	if c.DueDay <= 0 {
		c.DueDay = DefaultDueDay
	}
}

// Subtotal sums the six charge lines. Discounts are excluded.
func (r LedgerRecord) Subtotal() Money {
	return Money{Cents: r.Rent.Amount.Cents +
		r.CondoFee.Amount.Cents +
		r.PropertyTax.Amount.Cents +
		r.Water.Amount.Cents +
		r.FireInsurance.Amount.Cents +
		r.OtherFees.Amount.Cents}
}

// Total is subtotal minus discounts. It may be negative when the discount
// exceeds the subtotal; that is accepted, not an error.
func (r LedgerRecord) Total() Money {
	return Money{Cents: r.Subtotal().Cents - r.OtherDiscounts.Amount.Cents}
}
