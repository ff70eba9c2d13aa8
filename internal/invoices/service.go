package invoices

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk/internal/proforma"
	"github.com/angelmondragon/orderdesk/pkg/db"
	"github.com/angelmondragon/orderdesk/pkg/db/models"
	"github.com/angelmondragon/orderdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
	"github.com/angelmondragon/orderdesk/pkg/logger"
	"github.com/angelmondragon/orderdesk/pkg/metrics"
	"github.com/angelmondragon/orderdesk/pkg/outbox"
	"github.com/angelmondragon/orderdesk/pkg/outbox/payloads"
)

const (
	guardScope        = "invoice"
	defaultGuardTTL   = 30 * time.Second
	defaultPrefix     = "INV"
	uxInvoicesOrderID = "ux_invoices_order_id"
	uxInvoicesNumber  = "ux_invoices_invoice_number"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Guard is a short-lived once-only lock, satisfied by the redis client.
type Guard interface {
	GuardKey(scope, id string) string
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Service materializes and reads invoices.
type Service interface {
	Materialize(ctx context.Context, src Source) (*Invoice, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Invoice, error)
}

// ServiceParams wires the materializer. Guard, Outbox and Metrics are optional.
type ServiceParams struct {
	Repo         Repository
	Tx           txRunner
	Outbox       outboxEmitter
	Guard        Guard
	Logger       *logger.Logger
	Metrics      *metrics.LedgerMetrics
	NumberPrefix string
	GuardTTL     time.Duration
	Clock        func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxEmitter
	guard    Guard
	logg     *logger.Logger
	metrics  *metrics.LedgerMetrics
	prefix   string
	guardTTL time.Duration
	now      func() time.Time
}

// NewService validates dependencies and returns the materializer.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	prefix := strings.TrimSpace(params.NumberPrefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	ttl := params.GuardTTL
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		guard:    params.Guard,
		logg:     params.Logger,
		metrics:  params.Metrics,
		prefix:   prefix,
		guardTTL: ttl,
		now:      now,
	}, nil
}

// Materialize creates the order's invoice exactly once. When one already
// exists (or another caller holds the guard) it returns the existing invoice,
// if known, with a MATERIALIZATION_SKIPPED error.
func (s *service) Materialize(ctx context.Context, src Source) (*Invoice, error) {
	if src.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ctx = s.logg.WithOrderID(ctx, src.OrderID.String())

	existing, err := s.find(ctx, src.OrderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.skipped(ctx, src.OrderID, existing)
	}

	if s.guard != nil {
		key := s.guard.GuardKey(guardScope, src.OrderID.String())
		acquired, err := s.guard.Acquire(ctx, key, s.guardTTL)
		switch {
		case err != nil:
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "invoice guard unavailable; relying on unique index")
		case !acquired:
			return s.skipped(ctx, src.OrderID, nil)
		default:
			defer func() {
				if err := s.guard.Del(context.WithoutCancel(ctx), key); err != nil {
					s.logg.Error(ctx, "failed to release invoice guard", err)
				}
			}()
		}
	}

	invoice := s.build(src)
	document, err := json.Marshal(invoice)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode invoice document")
	}
	row := &models.Invoice{
		ID:            invoice.ID,
		OrderID:       invoice.OrderID,
		InvoiceNumber: invoice.InvoiceNumber,
		Status:        invoice.Status,
		PaymentStatus: invoice.Payment.Status,
		GrandTotal:    invoice.Totals.GrandTotal,
		Document:      document,
		IssuedAt:      invoice.IssuedAt,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return err
		}
		if s.outbox == nil {
			return nil
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceMaterialized,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   invoice.ID,
			OccurredAt:    invoice.IssuedAt,
			Data: payloads.InvoiceMaterializedEvent{
				InvoiceID:     invoice.ID,
				OrderID:       invoice.OrderID,
				InvoiceNumber: invoice.InvoiceNumber,
				GrandTotal:    invoice.Totals.GrandTotal,
				PaymentStatus: invoice.Payment.Status,
				IssuedAt:      invoice.IssuedAt,
			},
		})
	})
	if err != nil {
		if s.isDuplicate(ctx, err, row) {
			existing, findErr := s.find(ctx, src.OrderID)
			if findErr != nil {
				existing = nil
			}
			return s.skipped(ctx, src.OrderID, existing)
		}
		s.metrics.IncInvoice(metrics.OutcomeFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice").
			WithDetails(map[string]any{"orderId": src.OrderID.String()})
	}

	s.metrics.IncInvoice(metrics.OutcomeCreated)
	s.logg.Info(s.logg.WithField(ctx, "invoice_number", invoice.InvoiceNumber), "invoice materialized")
	return invoice, nil
}

func (s *service) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	invoice, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found").
			WithDetails(map[string]any{"orderId": orderID.String()})
	}
	return invoice, nil
}

func (s *service) find(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	row, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	var invoice Invoice
	if err := json.Unmarshal(row.Document, &invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode invoice document")
	}
	return &invoice, nil
}

func (s *service) skipped(ctx context.Context, orderID uuid.UUID, existing *Invoice) (*Invoice, error) {
	s.metrics.IncInvoice(metrics.OutcomeSkipped)
	details := map[string]any{"orderId": orderID.String()}
	if existing != nil {
		details["invoiceNumber"] = existing.InvoiceNumber
	}
	s.logg.Info(s.logg.WithFields(ctx, details), "invoice materialization skipped")
	return existing, pkgerrors.New(pkgerrors.CodeMaterializationSkipped, "invoice already exists").WithDetails(details)
}

func (s *service) build(src Source) *Invoice {
	issuedAt := s.now().UTC()

	var (
		totals proforma.Breakdown
		lines  []proforma.LineTotal
	)
	if len(src.Pricing.Lines) > 0 || src.Breakdown == nil {
		computed := proforma.Compute(src.Pricing)
		totals, lines = computed.Breakdown, computed.Lines
	}
	if src.Breakdown != nil {
		totals = *src.Breakdown
	}

	return &Invoice{
		ID:            uuid.New(),
		OrderID:       src.OrderID,
		InvoiceNumber: InvoiceNumber(s.prefix, src.OrderID, issuedAt),
		Buyer:         Party{BusinessName: src.Buyer.BusinessName, Email: src.Buyer.Email, Phone: src.Buyer.Phone, City: src.Buyer.City, State: src.Buyer.State},
		Seller:        src.Seller,
		Totals:        totals,
		Lines:         lines,
		Payment:       paymentFor(src.PaymentMode, src.IsPaid),
		IssuedAt:      issuedAt,
		Status:        enums.InvoiceStatusIssued,
	}
}

// InvoiceNumber formats PREFIX-YYYYMMDD-<order id as 32 hex digits>. The full
// id keeps numbers unique across orders.
func InvoiceNumber(prefix string, orderID uuid.UUID, issuedAt time.Time) string {
	hex := strings.ReplaceAll(orderID.String(), "-", "")
	return fmt.Sprintf("%s-%s-%s", prefix, issuedAt.UTC().Format("20060102"), strings.ToUpper(hex))
}

// isDuplicate reports a second invoice for the same order. A number clash
// counts only when the stored number belongs to this order.
func (s *service) isDuplicate(ctx context.Context, err error, row *models.Invoice) bool {
	if db.IsUniqueViolation(err, uxInvoicesOrderID) || db.IsUniqueViolation(err, "invoices.order_id") {
		return true
	}
	if !db.IsUniqueViolation(err, uxInvoicesNumber) && !db.IsUniqueViolation(err, "invoices.invoice_number") {
		return false
	}
	stored, findErr := s.repo.FindByNumber(ctx, row.InvoiceNumber)
	return findErr == nil && stored.OrderID == row.OrderID
}
