package orders

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/orderdesk/api/validators"
	internalorders "github.com/angelmondragon/orderdesk/internal/orders"
	"github.com/angelmondragon/orderdesk/internal/pricing"
	"github.com/angelmondragon/orderdesk/internal/proforma"
	"github.com/angelmondragon/orderdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
	"github.com/angelmondragon/orderdesk/pkg/types"
)

const (
	maxNotesLen = 500
	maxTextLen  = 200
)

type partyRequest struct {
	ID           uuid.UUID `json:"id" validate:"required"`
	BusinessName string    `json:"businessName" validate:"required,max=200"`
	Email        string    `json:"email" validate:"omitempty,email"`
	Phone        string    `json:"phone" validate:"max=20"`
	City         string    `json:"city" validate:"max=100"`
	State        string    `json:"state" validate:"max=100"`
	Pincode      string    `json:"pincode" validate:"omitempty,len=6,numeric"`
	GSTNumber    string    `json:"gstNumber" validate:"max=15"`
}

func (p partyRequest) toParty() internalorders.Party {
	return internalorders.Party{
		ID:           p.ID,
		BusinessName: validators.SanitizeString(p.BusinessName, maxTextLen),
		Email:        strings.TrimSpace(p.Email),
		Phone:        strings.TrimSpace(p.Phone),
		City:         validators.SanitizeString(p.City, maxTextLen),
		State:        validators.SanitizeString(p.State, maxTextLen),
		Pincode:      strings.TrimSpace(p.Pincode),
		GSTNumber:    strings.TrimSpace(p.GSTNumber),
	}
}

type lineRequest struct {
	Name                  string       `json:"name" validate:"required,max=200"`
	SKU                   string       `json:"sku" validate:"max=64"`
	Quantity              types.Amount `json:"quantity" validate:"gte=0"`
	PricingMode           string       `json:"pricingMode"`
	MRP                   types.Amount `json:"mrp" validate:"gte=0"`
	BasePrice             types.Amount `json:"basePrice" validate:"gte=0"`
	FinalPrice            types.Amount `json:"finalPrice" validate:"gte=0"`
	GSTRate               types.Amount `json:"gstRate" validate:"gte=0,lte=28"`
	ItemDiscountPct       types.Amount `json:"itemDiscountPct" validate:"gte=0,lte=100"`
	ItemDiscountAmt       types.Amount `json:"itemDiscountAmt" validate:"gte=0"`
	ItemDiscountChangedBy string       `json:"itemDiscountChangedBy"`
}

type chargesRequest struct {
	Delivery  types.Amount `json:"delivery" validate:"gte=0"`
	Packing   types.Amount `json:"packing" validate:"gte=0"`
	Insurance types.Amount `json:"insurance" validate:"gte=0"`
	Other     types.Amount `json:"other" validate:"gte=0"`
}

func (c chargesRequest) toCharges() proforma.Charges {
	return proforma.Charges{
		Delivery:  c.Delivery.Decimal(),
		Packing:   c.Packing.Decimal(),
		Insurance: c.Insurance.Decimal(),
		Other:     c.Other.Decimal(),
	}
}

type discountRequest struct {
	Pct    types.Amount `json:"pct" validate:"gte=0,lte=100"`
	Amt    types.Amount `json:"amt" validate:"gte=0"`
	Source string       `json:"source"`
}

type roundingRequest struct {
	Enabled bool   `json:"enabled"`
	Rule    string `json:"rule"`
}

type createOrderRequest struct {
	As          string        `json:"as" validate:"required,oneof=buyer seller"`
	Buyer       partyRequest  `json:"buyer"`
	Seller      partyRequest  `json:"seller"`
	Lines       []lineRequest `json:"lines" validate:"required,min=1,dive"`
	PaymentMode string        `json:"paymentMode"`
	IsPaid      bool          `json:"isPaid"`
	Notes       string        `json:"notes"`
}

type quoteRequest struct {
	Lines              []lineRequest    `json:"lines" validate:"omitempty,min=1,dive"`
	Charges            chargesRequest   `json:"charges"`
	Discount           discountRequest  `json:"discount"`
	Rounding           *roundingRequest `json:"rounding"`
	ExpectedGrandTotal types.Amount     `json:"expectedGrandTotal" validate:"omitempty,gte=0"`
	Notes              string           `json:"notes"`
}

// expectedTotal is nil when the client sent no total to check against.
func (q quoteRequest) expectedTotal() *decimal.Decimal {
	if !q.ExpectedGrandTotal.Present {
		return nil
	}
	total := q.ExpectedGrandTotal.Decimal()
	return &total
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"`
}

type previewRequest struct {
	Lines    []lineRequest    `json:"lines" validate:"omitempty,min=1,dive"`
	Charges  *chargesRequest  `json:"charges"`
	Discount *discountRequest `json:"discount"`
	Rounding *roundingRequest `json:"rounding"`
}

func toLines(reqs []lineRequest) ([]pricing.Line, error) {
	if reqs == nil {
		return nil, nil
	}
	lines := make([]pricing.Line, 0, len(reqs))
	for i, req := range reqs {
		line := pricing.Line{
			Name:            validators.SanitizeString(req.Name, maxTextLen),
			SKU:             strings.TrimSpace(req.SKU),
			Quantity:        req.Quantity.Decimal(),
			MRP:             req.MRP.Decimal(),
			BasePrice:       req.BasePrice.Decimal(),
			FinalPrice:      req.FinalPrice.Decimal(),
			GSTRate:         req.GSTRate.Decimal(),
			ItemDiscountPct: req.ItemDiscountPct.Decimal(),
			ItemDiscountAmt: req.ItemDiscountAmt.Decimal(),
		}
		if strings.TrimSpace(req.PricingMode) != "" {
			mode, err := enums.ParsePricingMode(req.PricingMode)
			if err != nil {
				return nil, fieldError("lines", i, "pricingMode", err)
			}
			line.PricingMode = mode
		}
		if strings.TrimSpace(req.ItemDiscountChangedBy) != "" {
			source, err := parseDiscountSource(req.ItemDiscountChangedBy)
			if err != nil {
				return nil, fieldError("lines", i, "itemDiscountChangedBy", err)
			}
			line.ItemDiscountChangedBy = source
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (d discountRequest) toDiscount() (proforma.Discount, error) {
	discount := proforma.Discount{Pct: d.Pct.Decimal(), Amt: d.Amt.Decimal()}
	if strings.TrimSpace(d.Source) == "" {
		return discount, nil
	}
	source, err := parseDiscountSource(d.Source)
	if err != nil {
		return proforma.Discount{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount source").
			WithDetails(map[string]string{"discount.source": "must be one of PCT AMT"})
	}
	discount.Source = source
	return discount, nil
}

func (r roundingRequest) toRounding() (proforma.Rounding, error) {
	rounding := proforma.Rounding{Enabled: r.Enabled, Rule: enums.RoundingNearest}
	if strings.TrimSpace(r.Rule) == "" {
		return rounding, nil
	}
	rule, err := enums.ParseRoundingRule(r.Rule)
	if err != nil {
		return proforma.Rounding{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rounding rule").
			WithDetails(map[string]string{"rounding.rule": "must be one of NEAREST UP DOWN"})
	}
	rounding.Rule = rule
	return rounding, nil
}

func parseDiscountSource(raw string) (enums.DiscountSource, error) {
	source := enums.DiscountSource(strings.ToUpper(strings.TrimSpace(raw)))
	if !source.IsValid() {
		return "", fmt.Errorf("invalid discount source %q", raw)
	}
	return source, nil
}

func fieldError(collection string, index int, field string, err error) error {
	key := fmt.Sprintf("%s[%d].%s", collection, index, field)
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed").
		WithDetails(map[string]string{key: "is invalid"})
}
