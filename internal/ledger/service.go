package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/orderdesk/pkg/db"
	"github.com/angelmondragon/orderdesk/pkg/db/models"
	"github.com/angelmondragon/orderdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
	"github.com/angelmondragon/orderdesk/pkg/logger"
	"github.com/angelmondragon/orderdesk/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// Document is one serialized order as owned by a namespace.
type Document struct {
	OrderID   uuid.UUID
	Namespace enums.Namespace
	OwnerID   uuid.UUID
	PeerID    uuid.UUID
	Status    enums.OrderStatus
	Revision  int64
	Body      json.RawMessage
	// Render, when set, produces Body inside the primary transaction.
	Render func(tx *gorm.DB) (json.RawMessage, error)
}

// TxHook runs inside the transaction that writes the primary copy.
type TxHook func(tx *gorm.DB) error

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service keeps the buyer and seller copies of each order in step.
type Service interface {
	Propagate(ctx context.Context, doc Document, hooks ...TxHook) error
	Load(ctx context.Context, orderID uuid.UUID, ns enums.Namespace) (*Document, error)
	LoadForParty(ctx context.Context, orderID, partyID uuid.UUID) (*Document, error)
	ReconcilePending(ctx context.Context, limit, maxAttempts int) (ReconcileResult, error)
}

// ReconcileResult summarizes one reconciler pass.
type ReconcileResult struct {
	Scanned int
	Synced  int
	Failed  int
}

// ServiceParams wires the synchronizer.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Logger  *logger.Logger
	Metrics *metrics.LedgerMetrics
	// InlineMirror attempts the counterparty write right after commit.
	InlineMirror bool
	Clock        func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
	inline  bool
	now     func() time.Time
}

// NewService validates dependencies and returns the synchronizer.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		logg:    params.Logger,
		metrics: params.Metrics,
		inline:  params.InlineMirror,
		now:     now,
	}, nil
}

func (s *service) Propagate(ctx context.Context, doc Document, hooks ...TxHook) error {
	if err := validateDocument(doc); err != nil {
		return err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":  doc.OrderID.String(),
		"namespace": doc.Namespace.String(),
		"revision":  doc.Revision,
	})

	primary := recordFromDocument(doc)
	target := doc.Namespace.Counterparty()
	pending := &models.MirrorWrite{
		OrderID:         doc.OrderID,
		SourceNamespace: doc.Namespace,
		TargetNamespace: target,
		TargetOwnerID:   doc.PeerID,
		Revision:        doc.Revision,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if doc.Render != nil {
			body, err := doc.Render(tx)
			if err != nil {
				return err
			}
			if len(body) == 0 || !json.Valid(body) {
				return pkgerrors.New(pkgerrors.CodeValidation, "order document must be valid json")
			}
			doc.Body = body
			primary.Document = append(json.RawMessage(nil), body...)
		}
		repo := s.repo.WithTx(tx)
		if err := repo.Upsert(ctx, primary); err != nil {
			if errors.Is(err, ErrStaleRevision) {
				return pkgerrors.New(pkgerrors.CodeConflict, "order was changed by another request; reload and retry").
					WithDetails(map[string]any{"orderId": doc.OrderID.String(), "revision": doc.Revision})
			}
			return err
		}
		if err := repo.EnqueueMirror(ctx, pending); err != nil {
			return err
		}
		for _, hook := range hooks {
			if hook == nil {
				continue
			}
			if err := hook(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.IncPropagation(doc.Namespace.String(), metrics.OutcomePrimaryFailed)
		if pkgErr := pkgerrors.As(err); pkgErr != nil {
			return pkgErr
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write primary order copy").
			WithDetails(map[string]any{
				"orderId":   doc.OrderID.String(),
				"namespace": doc.Namespace.String(),
				"status":    doc.Status.String(),
			})
	}

	if !s.inline {
		s.metrics.IncPropagation(doc.Namespace.String(), metrics.OutcomeQueued)
		return nil
	}

	mirror := recordFromDocument(doc)
	mirror.Namespace = target
	mirror.OwnerID = doc.PeerID
	mirror.PeerID = doc.OwnerID
	if err := s.repo.Upsert(ctx, mirror); err != nil && !errors.Is(err, ErrStaleRevision) {
		s.metrics.IncPropagation(doc.Namespace.String(), metrics.OutcomeMirrorFailed)
		if markErr := s.repo.MarkMirrorFailed(ctx, pending.ID, err); markErr != nil {
			s.logg.Error(ctx, "failed to record mirror failure", markErr)
		}
		s.logg.Warn(ctx, "counterparty copy write failed; left for reconciler")
		return pkgerrors.Wrap(pkgerrors.CodePartialPropagation, err, "counterparty copy not yet updated").
			WithDetails(map[string]any{
				"orderId":   doc.OrderID.String(),
				"namespace": target.String(),
				"status":    doc.Status.String(),
			})
	}
	if err := s.repo.MarkMirrorsSynced(ctx, doc.OrderID, target, doc.Revision, s.now().UTC()); err != nil {
		s.logg.Error(ctx, "failed to settle mirror write", err)
	}
	s.metrics.IncPropagation(doc.Namespace.String(), metrics.OutcomeMirrored)
	return nil
}

func (s *service) Load(ctx context.Context, orderID uuid.UUID, ns enums.Namespace) (*Document, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !ns.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid namespace %q", ns))
	}

	records, err := s.repo.FindCopies(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order copies")
	}
	own, peer := splitCopies(records, ns)
	if own == nil && peer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
			WithDetails(map[string]any{"orderId": orderID.String()})
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":  orderID.String(),
		"namespace": ns.String(),
	})

	switch {
	case own == nil || (peer != nil && peer.Revision > own.Revision):
		repaired := mirrorOf(*peer, ns)
		s.repair(ctx, &repaired)
		return documentFromRecord(repaired), nil
	case peer == nil || own.Revision > peer.Revision:
		repaired := mirrorOf(*own, ns.Counterparty())
		s.repair(ctx, &repaired)
	}
	return documentFromRecord(*own), nil
}

// LoadForParty resolves which namespace partyID owns and loads that copy.
// A party that is neither owner nor peer gets FORBIDDEN.
func (s *service) LoadForParty(ctx context.Context, orderID, partyID uuid.UUID) (*Document, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if partyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	records, err := s.repo.FindCopies(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order copies")
	}
	if len(records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
			WithDetails(map[string]any{"orderId": orderID.String()})
	}
	ns, ok := namespaceOf(records, partyID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a party to this order").
			WithDetails(map[string]any{"orderId": orderID.String()})
	}
	return s.Load(ctx, orderID, ns)
}

func namespaceOf(records []models.OrderRecord, partyID uuid.UUID) (enums.Namespace, bool) {
	for _, rec := range records {
		switch partyID {
		case rec.OwnerID:
			return rec.Namespace, true
		case rec.PeerID:
			return rec.Namespace.Counterparty(), true
		}
	}
	return "", false
}

// repair overwrites a stale copy. Failures are logged; the caller still gets the fresh copy.
func (s *service) repair(ctx context.Context, record *models.OrderRecord) {
	if err := s.repo.Upsert(ctx, record); err != nil {
		if errors.Is(err, ErrStaleRevision) {
			return
		}
		s.logg.Error(ctx, "read repair failed", err)
		return
	}
	s.metrics.IncReadRepair(record.Namespace.String())
	if err := s.repo.MarkMirrorsSynced(ctx, record.OrderID, record.Namespace, record.Revision, s.now().UTC()); err != nil {
		s.logg.Error(ctx, "failed to settle mirror writes after repair", err)
	}
}

// ReconcilePending drains mirror writes that were not applied inline. The copy
// with the higher revision always wins; the pending row only names the order.
func (s *service) ReconcilePending(ctx context.Context, limit, maxAttempts int) (ReconcileResult, error) {
	var result ReconcileResult
	writes, err := s.repo.ListPendingMirrors(ctx, limit, maxAttempts)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending mirror writes")
	}
	result.Scanned = len(writes)

	var errs error
	for _, write := range writes {
		if err := s.reconcileOne(ctx, write); err != nil {
			result.Failed++
			s.metrics.IncReconciled(metrics.OutcomeMirrorFailed)
			if markErr := s.repo.MarkMirrorFailed(ctx, write.ID, err); markErr != nil {
				err = multierr.Append(err, markErr)
			}
			errs = multierr.Append(errs, fmt.Errorf("mirror write %s: %w", write.ID, err))
			continue
		}
		result.Synced++
		s.metrics.IncReconciled(metrics.OutcomeMirrored)
	}
	return result, errs
}

func (s *service) reconcileOne(ctx context.Context, write models.MirrorWrite) error {
	records, err := s.repo.FindCopies(ctx, write.OrderID)
	if err != nil {
		return err
	}
	target, source := splitCopies(records, write.TargetNamespace)
	if source == nil {
		return fmt.Errorf("primary copy for order %s missing", write.OrderID)
	}
	now := s.now().UTC()
	if target != nil && target.Revision >= source.Revision {
		return s.repo.MarkMirrorsSynced(ctx, write.OrderID, write.TargetNamespace, target.Revision, now)
	}
	mirror := mirrorOf(*source, write.TargetNamespace)
	if target != nil {
		mirror.ID = target.ID
	}
	if err := s.repo.Upsert(ctx, &mirror); err != nil && !errors.Is(err, ErrStaleRevision) {
		return err
	}
	return s.repo.MarkMirrorsSynced(ctx, write.OrderID, write.TargetNamespace, mirror.Revision, now)
}

func validateDocument(doc Document) error {
	switch {
	case doc.OrderID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	case !doc.Namespace.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid namespace %q", doc.Namespace))
	case doc.OwnerID == uuid.Nil || doc.PeerID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "both parties are required")
	case !doc.Status.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", doc.Status))
	case doc.Render == nil && (len(doc.Body) == 0 || !json.Valid(doc.Body)):
		return pkgerrors.New(pkgerrors.CodeValidation, "order document must be valid json")
	}
	return nil
}

func splitCopies(records []models.OrderRecord, ns enums.Namespace) (own, peer *models.OrderRecord) {
	for i := range records {
		switch records[i].Namespace {
		case ns:
			own = &records[i]
		case ns.Counterparty():
			peer = &records[i]
		}
	}
	return own, peer
}

// mirrorOf copies a record into the other namespace, swapping ownership.
func mirrorOf(src models.OrderRecord, ns enums.Namespace) models.OrderRecord {
	out := models.OrderRecord{
		OrderID:   src.OrderID,
		Namespace: ns,
		OwnerID:   src.OwnerID,
		PeerID:    src.PeerID,
		Status:    src.Status,
		Revision:  src.Revision,
		Document:  append(json.RawMessage(nil), src.Document...),
	}
	if ns != src.Namespace {
		out.OwnerID, out.PeerID = src.PeerID, src.OwnerID
	}
	return out
}

func recordFromDocument(doc Document) *models.OrderRecord {
	return &models.OrderRecord{
		OrderID:   doc.OrderID,
		Namespace: doc.Namespace,
		OwnerID:   doc.OwnerID,
		PeerID:    doc.PeerID,
		Status:    doc.Status,
		Revision:  doc.Revision,
		Document:  append(json.RawMessage(nil), doc.Body...),
	}
}

func documentFromRecord(rec models.OrderRecord) *Document {
	return &Document{
		OrderID:   rec.OrderID,
		Namespace: rec.Namespace,
		OwnerID:   rec.OwnerID,
		PeerID:    rec.PeerID,
		Status:    rec.Status,
		Revision:  rec.Revision,
		Body:      rec.Document,
	}
}

var _ txRunner = (*db.Client)(nil)
