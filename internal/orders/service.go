package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk/internal/invoices"
	"github.com/angelmondragon/orderdesk/internal/ledger"
	"github.com/angelmondragon/orderdesk/internal/pricing"
	"github.com/angelmondragon/orderdesk/internal/proforma"
	"github.com/angelmondragon/orderdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
	"github.com/angelmondragon/orderdesk/pkg/logger"
	"github.com/angelmondragon/orderdesk/pkg/outbox"
	"github.com/angelmondragon/orderdesk/pkg/outbox/payloads"
	"github.com/angelmondragon/orderdesk/pkg/pincode"
)

type ledgerStore interface {
	Propagate(ctx context.Context, doc ledger.Document, hooks ...ledger.TxHook) error
	LoadForParty(ctx context.Context, orderID, partyID uuid.UUID) (*ledger.Document, error)
}

type invoiceService interface {
	Materialize(ctx context.Context, src invoices.Source) (*invoices.Invoice, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*invoices.Invoice, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PincodeLookup resolves a postal code to its locality.
type PincodeLookup interface {
	Lookup(ctx context.Context, code string) (*pincode.Place, error)
}

// InventoryAdjuster deducts stock for an order once it ships. The deduction
// joins tx so it commits with the order's primary copy.
type InventoryAdjuster interface {
	Deduct(ctx context.Context, tx *gorm.DB, order *Order) error
}

// Service drives orders through their lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Result, error)
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*Order, error)
	Quote(ctx context.Context, input QuoteInput) (*Result, error)
	Transition(ctx context.Context, input TransitionInput) (*Result, error)
	Preview(ctx context.Context, input PreviewInput) (*proforma.Result, error)
	GetInvoice(ctx context.Context, orderID uuid.UUID, actor Actor) (*invoices.Invoice, error)
}

// ServiceParams wires the order service. Pincodes and Inventory are optional.
type ServiceParams struct {
	Ledger    ledgerStore
	Invoices  invoiceService
	Outbox    outboxPublisher
	Pincodes  PincodeLookup
	Inventory InventoryAdjuster
	Logger    *logger.Logger
	Defaults  Defaults
	Clock     func() time.Time
}

type service struct {
	ledger    ledgerStore
	invoices  invoiceService
	outbox    outboxPublisher
	pincodes  PincodeLookup
	inventory InventoryAdjuster
	logg      *logger.Logger
	defaults  Defaults
	now       func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger synchronizer required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice materializer required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	defaults := params.Defaults
	defaults.DirectCharges = defaults.DirectCharges.Sanitized()
	if !defaults.Rounding.Rule.IsValid() {
		defaults.Rounding.Rule = enums.RoundingNearest
	}
	return &service{
		ledger:    params.Ledger,
		invoices:  params.Invoices,
		outbox:    params.Outbox,
		pincodes:  params.Pincodes,
		inventory: params.Inventory,
		logg:      params.Logger,
		defaults:  defaults,
		now:       now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Result, error) {
	if err := validateCreate(&input); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	order := &Order{
		ID:               uuid.New(),
		Buyer:            trimParty(input.Buyer),
		Seller:           trimParty(input.Seller),
		Lines:            normalizeLines(input.Lines),
		Rounding:         s.defaults.Rounding,
		StatusTimestamps: map[string]time.Time{},
		Payment:          Payment{Mode: input.PaymentMode, IsPaid: input.IsPaid},
		CreatedBy:        input.As,
		CreatedAt:        now,
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	ctx = s.logg.WithActor(ctx, input.Actor.ID.String(), input.As.String())

	s.fillLocality(ctx, &order.Buyer)
	s.fillLocality(ctx, &order.Seller)

	initial := enums.OrderStatusRequested
	if input.As == enums.NamespaceSeller {
		initial = enums.OrderStatusAssigned
		s.reprice(order)
	}
	stamp(order, initial, input.Actor, input.Notes, now)
	order.Revision = 1

	result := &Result{Order: order}
	created := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		OccurredAt:    now,
		Data: payloads.OrderCreatedEvent{
			OrderID:   order.ID,
			BuyerID:   order.Buyer.ID,
			SellerID:  order.Seller.ID,
			Status:    order.Status,
			CreatedBy: input.As,
			LineCount: len(order.Lines),
		},
	}
	if err := s.persist(ctx, order, input.As, input.Actor, created); err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodePartialPropagation) {
			return nil, err
		}
		result.warn(err)
	}
	s.logg.Info(ctx, "order created")
	return result, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*Order, error) {
	order, _, err := s.load(ctx, orderID, actor)
	return order, err
}

func (s *service) Quote(ctx context.Context, input QuoteInput) (*Result, error) {
	order, _, err := s.load(ctx, input.OrderID, input.Actor)
	if err != nil {
		return nil, err
	}
	ns, err := Authorize(order, enums.OrderStatusQuoted, input.Actor)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithActor(s.logg.WithOrderID(ctx, order.ID.String()), input.Actor.ID.String(), ns.String())

	if input.Lines != nil {
		if err := validateLines(input.Lines); err != nil {
			return nil, err
		}
		order.Lines = normalizeLines(input.Lines)
	}
	order.Charges = input.Charges.Sanitized()
	order.Discount = input.Discount
	if input.Rounding != nil {
		order.Rounding = *input.Rounding
	}
	computed := s.reprice(order)
	if input.ExpectedGrandTotal != nil {
		if err := proforma.Verify(*input.ExpectedGrandTotal, computed); err != nil {
			return nil, err
		}
	}

	from := order.Status
	if _, err := Transition(order, enums.OrderStatusQuoted, input.Actor, input.Notes, s.now()); err != nil {
		return nil, err
	}
	result := &Result{Order: order}
	if err := s.persist(ctx, order, ns, input.Actor, s.statusChanged(order, from, input.Notes), s.quoted(order)); err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodePartialPropagation) {
			return nil, err
		}
		result.warn(err)
	}
	s.logg.Info(s.logg.WithField(ctx, "grand_total", computed.GrandTotal.StringFixed(2)), "order quoted")
	return result, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*Result, error) {
	order, _, err := s.load(ctx, input.OrderID, input.Actor)
	if err != nil {
		return nil, err
	}
	target := input.Status
	ns, err := Authorize(order, target, input.Actor)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithActor(s.logg.WithOrderID(ctx, order.ID.String()), input.Actor.ID.String(), ns.String())
	result := &Result{Order: order}

	if target == enums.OrderStatusInvoiced {
		invoice, err := s.requireInvoice(ctx, order)
		if err != nil {
			return nil, err
		}
		result.Invoice = invoice
	}

	var events []outbox.DomainEvent
	switch target {
	case enums.OrderStatusDirect:
		if order.Charges.Total().IsZero() {
			order.Charges = s.defaults.DirectCharges
		}
		s.reprice(order)
	case enums.OrderStatusQuoted:
		s.reprice(order)
	}

	from := order.Status
	if _, err := Transition(order, target, input.Actor, input.Notes, s.now()); err != nil {
		return nil, err
	}
	var prepare ledger.TxHook
	if target == enums.OrderStatusShipped {
		prepare = s.syncInventory(ctx, order)
	}

	events = append(events, s.statusChanged(order, from, input.Notes))
	if target == enums.OrderStatusQuoted {
		events = append(events, s.quoted(order))
	}
	if err := s.persistWith(ctx, order, ns, input.Actor, prepare, events...); err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodePartialPropagation) {
			return nil, err
		}
		result.warn(err)
	}
	s.logg.Info(s.logg.WithTransition(ctx, from.String(), target.String()), "order transitioned")

	if target == enums.OrderStatusDelivered {
		invoice, err := s.invoices.Materialize(ctx, invoiceSource(order))
		switch {
		case err == nil, pkgerrors.IsCode(err, pkgerrors.CodeMaterializationSkipped):
			result.Invoice = invoice
		default:
			s.logg.Error(ctx, "invoice materialization failed", err)
			result.warn(err)
		}
	}
	return result, nil
}

// requireInvoice materializes the order's invoice, or finds the one already
// stored. A skip with nothing stored means another caller is still creating
// it, so the transition is refused until the invoice exists.
func (s *service) requireInvoice(ctx context.Context, order *Order) (*invoices.Invoice, error) {
	invoice, err := s.invoices.Materialize(ctx, invoiceSource(order))
	switch {
	case err == nil:
		if invoice != nil {
			return invoice, nil
		}
	case !pkgerrors.IsCode(err, pkgerrors.CodeMaterializationSkipped):
		return nil, err
	case invoice != nil:
		return invoice, nil
	}
	stored, err := s.invoices.GetByOrderID(ctx, order.ID)
	if err == nil && stored != nil {
		return stored, nil
	}
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice materialization in progress; retry the transition").
		WithDetails(map[string]any{"orderId": order.ID.String(), "retryable": true})
}

func (s *service) Preview(ctx context.Context, input PreviewInput) (*proforma.Result, error) {
	order, _, err := s.load(ctx, input.OrderID, input.Actor)
	if err != nil {
		return nil, err
	}
	in := order.PricingInput()
	if input.Lines != nil {
		if err := validateLines(input.Lines); err != nil {
			return nil, err
		}
		in.Lines = input.Lines
	}
	if input.Charges != nil {
		in.Charges = *input.Charges
	}
	if input.Discount != nil {
		in.Discount = *input.Discount
	}
	if input.Rounding != nil {
		in.Rounding = *input.Rounding
	}
	result := proforma.Compute(in)
	return &result, nil
}

func (s *service) GetInvoice(ctx context.Context, orderID uuid.UUID, actor Actor) (*invoices.Invoice, error) {
	if _, _, err := s.load(ctx, orderID, actor); err != nil {
		return nil, err
	}
	return s.invoices.GetByOrderID(ctx, orderID)
}

// load reads the actor's copy of the order, repairing it if stale.
func (s *service) load(ctx context.Context, orderID uuid.UUID, actor Actor) (*Order, enums.Namespace, error) {
	if orderID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if actor.ID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	doc, err := s.ledger.LoadForParty(ctx, orderID, actor.ID)
	if err != nil {
		return nil, "", err
	}
	var order Order
	if err := json.Unmarshal(doc.Body, &order); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode order document").
			WithDetails(map[string]any{"orderId": orderID.String(), "namespace": doc.Namespace.String()})
	}
	return &order, doc.Namespace, nil
}

// persist hands the order to the ledger with the events queued in the
// same transaction as the acting party's copy.
func (s *service) persist(ctx context.Context, order *Order, ns enums.Namespace, actor Actor, events ...outbox.DomainEvent) error {
	return s.persistWith(ctx, order, ns, actor, nil, events...)
}

// persistWith runs prepare inside the primary transaction before the order is
// encoded, so changes it makes to the order land in the stored copy.
func (s *service) persistWith(ctx context.Context, order *Order, ns enums.Namespace, actor Actor, prepare ledger.TxHook, events ...outbox.DomainEvent) error {
	owner, peer := order.PartyIDs(ns)
	ref := &outbox.ActorRef{ActorID: actor.ID, Name: actor.Name, Namespace: ns}
	emit := func(tx *gorm.DB) error {
		for _, event := range events {
			event.Actor = ref
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	}
	return s.ledger.Propagate(ctx, ledger.Document{
		OrderID:   order.ID,
		Namespace: ns,
		OwnerID:   owner,
		PeerID:    peer,
		Status:    order.Status,
		Revision:  order.Revision,
		Render: func(tx *gorm.DB) (json.RawMessage, error) {
			if prepare != nil {
				if err := prepare(tx); err != nil {
					return nil, err
				}
			}
			body, err := json.Marshal(order)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order document")
			}
			return body, nil
		},
	}, emit)
}

// reprice recomputes the breakdown from the order's current terms and stores
// the discount in canonical form: the amount, with the percentage derived.
func (s *service) reprice(order *Order) proforma.Breakdown {
	computed := proforma.Calculate(order.PricingInput())
	order.Breakdown = &computed
	order.Discount = proforma.Discount{Amt: computed.DiscountAmt, Pct: computed.DiscountPct}
	return computed
}

func (s *service) fillLocality(ctx context.Context, party *Party) {
	if s.pincodes == nil || party.Pincode == "" || (party.City != "" && party.State != "") {
		return
	}
	place, err := s.pincodes.Lookup(ctx, party.Pincode)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"pincode": party.Pincode, "error": err.Error()}), "pincode lookup failed; keeping address as entered")
		return
	}
	if party.City == "" {
		party.City = place.City
	}
	if party.State == "" {
		party.State = place.State
	}
}

// syncInventory deducts stock inside the primary transaction. A failed
// deduction leaves the order unsynced without failing the transition.
func (s *service) syncInventory(ctx context.Context, order *Order) ledger.TxHook {
	if s.inventory == nil || order.InventorySynced {
		return nil
	}
	return func(tx *gorm.DB) error {
		if err := s.inventory.Deduct(ctx, tx, order); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "inventory sync failed; order left unsynced")
			order.InventorySynced = false
			return nil
		}
		order.InventorySynced = true
		return nil
	}
}

func (s *service) statusChanged(order *Order, from enums.OrderStatus, notes string) outbox.DomainEvent {
	at := order.StatusTimestamps[order.Status.TimestampKey()]
	return outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		OccurredAt:    at,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:  order.ID,
			BuyerID:  order.Buyer.ID,
			SellerID: order.Seller.ID,
			From:     from,
			To:       order.Status,
			Notes:    notes,
			Revision: order.Revision,
			At:       at,
		},
	}
}

func (s *service) quoted(order *Order) outbox.DomainEvent {
	data := payloads.OrderQuotedEvent{
		OrderID:  order.ID,
		BuyerID:  order.Buyer.ID,
		SellerID: order.Seller.ID,
		Revision: order.Revision,
	}
	if order.Breakdown != nil {
		data.TaxType = order.Breakdown.TaxType
		data.GrandTotal = order.Breakdown.GrandTotal
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderQuoted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		OccurredAt:    order.StatusTimestamps[order.Status.TimestampKey()],
		Data:          data,
	}
}

func invoiceSource(order *Order) invoices.Source {
	return invoices.Source{
		OrderID:     order.ID,
		Buyer:       invoiceParty(order.Buyer),
		Seller:      invoiceParty(order.Seller),
		Breakdown:   order.Breakdown,
		Pricing:     order.PricingInput(),
		PaymentMode: order.Payment.Mode,
		IsPaid:      order.Payment.IsPaid,
	}
}

func invoiceParty(p Party) invoices.Party {
	return invoices.Party{
		BusinessName: p.BusinessName,
		Email:        p.Email,
		Phone:        p.Phone,
		City:         p.City,
		State:        p.State,
		GSTNumber:    p.GSTNumber,
	}
}

func validateCreate(input *CreateInput) error {
	if input.Actor.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	own := &input.Buyer
	switch input.As {
	case enums.NamespaceBuyer:
	case enums.NamespaceSeller:
		own = &input.Seller
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid namespace %q", input.As))
	}
	if own.ID == uuid.Nil {
		own.ID = input.Actor.ID
	}
	if own.ID != input.Actor.ID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "actor must be the "+input.As.String()+" of the order")
	}
	switch {
	case input.Buyer.ID == uuid.Nil || input.Seller.ID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller are required")
	case input.Buyer.ID == input.Seller.ID:
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller must differ")
	case strings.TrimSpace(input.Buyer.BusinessName) == "" || strings.TrimSpace(input.Seller.BusinessName) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "business names are required")
	}
	for _, p := range []Party{input.Buyer, input.Seller} {
		if p.Pincode != "" && !pincode.Valid(p.Pincode) {
			return pkgerrors.New(pkgerrors.CodeValidation, "pincode must be six digits").
				WithDetails(map[string]any{"pincode": p.Pincode})
		}
	}
	if input.PaymentMode == "" {
		input.PaymentMode = enums.PaymentModeCash
	}
	if !input.PaymentMode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment mode %q", input.PaymentMode))
	}
	return validateLines(input.Lines)
}

func validateLines(lines []pricing.Line) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	for i, line := range lines {
		if strings.TrimSpace(line.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "line name is required").
				WithDetails(map[string]any{"line": i})
		}
		if line.Quantity.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "line quantity cannot be negative").
				WithDetails(map[string]any{"line": i})
		}
	}
	return nil
}

func normalizeLines(lines []pricing.Line) []pricing.Line {
	out := make([]pricing.Line, len(lines))
	for i, line := range lines {
		line.Name = strings.TrimSpace(line.Name)
		line.SKU = strings.TrimSpace(line.SKU)
		out[i] = line.Normalized()
	}
	return out
}

func trimParty(p Party) Party {
	p.BusinessName = strings.TrimSpace(p.BusinessName)
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
	p.City = strings.TrimSpace(p.City)
	p.State = strings.TrimSpace(p.State)
	p.Pincode = strings.TrimSpace(p.Pincode)
	p.GSTNumber = strings.ToUpper(strings.TrimSpace(p.GSTNumber))
	return p
}
