// Package validation is the pre-submission gate: every rule here runs locally
// and synchronously, before any collaborator is contacted. The gate never
// mutates the session; failures come back as field errors for display.
package validation

import (
	"fmt"
	"regexp"

	d "github.com/Jukingen/Regkasse-sub000/internal/domain"
)

// minimumTotal is the smallest amount the register will submit.
const minimumTotal = 0.01

// FieldErrors maps a field name to the message shown next to it.
type FieldErrors map[string]string

func (e FieldErrors) Ok() bool {
	return len(e) == 0
}

// Config carries the compliance identifiers of this register and the formats
// they must satisfy. The values come from configuration, not from call sites.
type Config struct {
	FiscalTaxID       string
	RegisterID        string
	FiscalTaxIDFormat string
	RegisterIDFormat  string
}

type Gate struct {
	cfg           Config
	fiscalTaxIDRe *regexp.Regexp
	registerIDRe  *regexp.Regexp
}

func NewGate(cfg Config) (*Gate, error) {
	taxRe, err := regexp.Compile(cfg.FiscalTaxIDFormat)
	if err != nil {
		return nil, fmt.Errorf("invalid fiscal tax id format: %w", err)
	}
	regRe, err := regexp.Compile(cfg.RegisterIDFormat)
	if err != nil {
		return nil, fmt.Errorf("invalid register id format: %w", err)
	}
	return &Gate{cfg: cfg, fiscalTaxIDRe: taxRe, registerIDRe: regRe}, nil
}

// Validate checks the session against the business rules. It returns the
// collected field errors; an empty result means the session may be submitted.
func (g *Gate) Validate(session *d.CheckoutSession) FieldErrors {
	errs := FieldErrors{}

	if session.TableID == "" {
		errs["table_id"] = "a table must be assigned"
	}
	if len(session.Items) == 0 {
		errs["items"] = "at least one line item is required"
	}

	total := session.TotalAmount()
	if total <= minimumTotal {
		errs["total_amount"] = fmt.Sprintf("total must be greater than %.2f", minimumTotal)
	}

	if session.Method == d.PaymentMethodCash {
		if session.AmountTendered < 0 {
			errs["amount_tendered"] = "tendered amount must not be negative"
		} else if session.AmountTendered < total {
			errs["amount_tendered"] = fmt.Sprintf("tendered %.2f does not cover total %.2f", session.AmountTendered, total)
		}
	}

	if !g.fiscalTaxIDRe.MatchString(g.cfg.FiscalTaxID) {
		errs["fiscal_tax_id"] = "fiscal tax id does not match the required format"
	}
	if !g.registerIDRe.MatchString(g.cfg.RegisterID) {
		errs["register_id"] = "register id does not match the required format"
	}

	return errs
}

// FiscalTaxID returns the configured merchant VAT registration number.
func (g *Gate) FiscalTaxID() string { return g.cfg.FiscalTaxID }

// RegisterID returns the configured terminal identifier.
func (g *Gate) RegisterID() string { return g.cfg.RegisterID }
