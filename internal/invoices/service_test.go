package invoices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk/internal/pricing"
	"github.com/angelmondragon/orderdesk/internal/proforma"
	"github.com/angelmondragon/orderdesk/pkg/db"
	"github.com/angelmondragon/orderdesk/pkg/db/models"
	"github.com/angelmondragon/orderdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
	"github.com/angelmondragon/orderdesk/pkg/logger"
	"github.com/angelmondragon/orderdesk/pkg/outbox"
)

var issuedAt = time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)

func setupInvoicesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Invoice{}, &models.OutboxEvent{}))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

type memoryGuard struct {
	mu      sync.Mutex
	held    map[string]bool
	err     error
	release int
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{held: map[string]bool{}}
}

func (g *memoryGuard) GuardKey(scope, id string) string {
	return "od:guard:" + scope + ":" + id
}

func (g *memoryGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.held[key] {
		return false, nil
	}
	g.held[key] = true
	return true, nil
}

func (g *memoryGuard) Del(ctx context.Context, keys ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, key := range keys {
		delete(g.held, key)
	}
	g.release++
	return nil
}

// blindRepository never sees existing invoices, like a concurrent caller that
// read before the other committed.
type blindRepository struct {
	Repository
}

func (b blindRepository) WithTx(tx *gorm.DB) Repository {
	return blindRepository{Repository: b.Repository.WithTx(tx)}
}

func (b blindRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error) {
	return nil, gorm.ErrRecordNotFound
}

type fixture struct {
	conn  *gorm.DB
	repo  Repository
	guard *memoryGuard
	svc   Service
}

func newFixture(t *testing.T, wrap func(Repository) Repository) fixture {
	t.Helper()
	conn := setupInvoicesTestDB(t)
	repo := NewRepository(conn)
	svcRepo := repo
	if wrap != nil {
		svcRepo = wrap(repo)
	}
	logg := logger.New(logger.Options{ServiceName: "invoices-test", Output: io.Discard})
	guard := newMemoryGuard()
	svc, err := NewService(ServiceParams{
		Repo:     svcRepo,
		Tx:       db.NewFromGorm(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logg),
		Guard:    guard,
		Logger:   logg,
		GuardTTL: time.Second,
		Clock:    func() time.Time { return issuedAt },
	})
	require.NoError(t, err)
	return fixture{conn: conn, repo: repo, guard: guard, svc: svc}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func basmatiSource(orderID uuid.UUID) Source {
	return Source{
		OrderID: orderID,
		Buyer:   Party{BusinessName: "Sharma General Store", Email: "sharma@example.in", City: "Mysuru", State: "Karnataka", GSTNumber: "ignored"},
		Seller:  Party{BusinessName: "Annapurna Traders", City: "Bengaluru", State: "Karnataka", GSTNumber: "29ABCDE1234F1Z5"},
		Pricing: proforma.Input{
			Lines: []pricing.Line{{
				Name:        "Basmati 1kg",
				Quantity:    dec("1"),
				PricingMode: enums.PricingModeMRPInclusive,
				MRP:         dec("236"),
				GSTRate:     dec("18"),
			}},
			BuyerState:  "Karnataka",
			SellerState: "karnataka ",
		},
		PaymentMode: enums.PaymentModeUPI,
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestMaterializeComputesFallbackBreakdown(t *testing.T) {
	f := newFixture(t, nil)
	orderID := uuid.MustParse("3f2a9c1e-7b44-4d1a-9e0f-0123456789ab")

	inv, err := f.svc.Materialize(context.Background(), basmatiSource(orderID))
	require.NoError(t, err)
	require.NotNil(t, inv)

	assert.Equal(t, "INV-20260314-3F2A9C1E7B444D1A9E0F0123456789AB", inv.InvoiceNumber)
	assert.Equal(t, enums.InvoiceStatusIssued, inv.Status)
	assert.True(t, inv.IssuedAt.Equal(issuedAt))
	assert.Equal(t, enums.TaxTypeCGSTSGST, inv.Totals.TaxType)
	assert.True(t, inv.Totals.TaxableBase.Equal(dec("200")), "taxable %s", inv.Totals.TaxableBase)
	assert.True(t, inv.Totals.TaxBreakup.CGST.Equal(dec("18")))
	assert.True(t, inv.Totals.TaxBreakup.SGST.Equal(dec("18")))
	assert.True(t, inv.Totals.GrandTotal.Equal(dec("236")))
	require.NoError(t, inv.Totals.Check())
	require.Len(t, inv.Lines, 1)
	assert.Empty(t, inv.Buyer.GSTNumber)
	assert.Equal(t, "29ABCDE1234F1Z5", inv.Seller.GSTNumber)
	assert.Equal(t, Payment{Mode: enums.PaymentModeUPI, IsPaid: false, Status: enums.PaymentStatusUnpaid}, inv.Payment)
	assert.Equal(t, 1, f.guard.release)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.EventInvoiceMaterialized, inv.ID).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestMaterializeUsesQuotedBreakdown(t *testing.T) {
	f := newFixture(t, nil)
	src := basmatiSource(uuid.New())
	quoted := proforma.Calculate(src.Pricing)
	quoted.Delivery = dec("40")
	quoted.TaxableBase = quoted.TaxableBase.Add(dec("40"))
	quoted.GrandTotal = quoted.GrandTotal.Add(dec("40"))
	src.Breakdown = &quoted
	src.IsPaid = true
	src.PaymentMode = ""

	inv, err := f.svc.Materialize(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, inv.Totals.GrandTotal.Equal(dec("276")))
	assert.True(t, inv.Totals.Delivery.Equal(dec("40")))
	assert.Equal(t, enums.PaymentModeCash, inv.Payment.Mode)
	assert.Equal(t, enums.PaymentStatusPaid, inv.Payment.Status)

	row, err := f.repo.FindByOrderID(context.Background(), src.OrderID)
	require.NoError(t, err)
	assert.True(t, row.GrandTotal.Equal(dec("276")))
	assert.Equal(t, enums.PaymentStatusPaid, row.PaymentStatus)
}

func TestMaterializeIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	src := basmatiSource(uuid.New())

	first, err := f.svc.Materialize(context.Background(), src)
	require.NoError(t, err)

	second, err := f.svc.Materialize(context.Background(), src)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMaterializationSkipped))
	require.NotNil(t, second)
	assert.Equal(t, first.InvoiceNumber, second.InvoiceNumber)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.conn.Model(&models.Invoice{}).Where("order_id = ?", src.OrderID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMaterializeSkipsWhenGuardHeld(t *testing.T) {
	f := newFixture(t, nil)
	src := basmatiSource(uuid.New())
	f.guard.held[f.guard.GuardKey(guardScope, src.OrderID.String())] = true

	inv, err := f.svc.Materialize(context.Background(), src)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMaterializationSkipped))
	assert.Nil(t, inv)

	_, err = f.repo.FindByOrderID(context.Background(), src.OrderID)
	assert.True(t, db.IsNotFound(err))
}

func TestMaterializeProceedsWhenGuardUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	f.guard.err = errors.New("redis down")

	inv, err := f.svc.Materialize(context.Background(), basmatiSource(uuid.New()))
	require.NoError(t, err)
	assert.NotNil(t, inv)
}

func TestMaterializeConcurrentDuplicateCaughtByUniqueIndex(t *testing.T) {
	f := newFixture(t, func(r Repository) Repository { return blindRepository{Repository: r} })
	src := basmatiSource(uuid.New())

	_, err := f.svc.Materialize(context.Background(), src)
	require.NoError(t, err)

	_, err = f.svc.Materialize(context.Background(), src)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMaterializationSkipped), "got %v", err)

	var count int64
	require.NoError(t, f.conn.Model(&models.Invoice{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetByOrderID(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.GetByOrderID(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.GetByOrderID(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	src := basmatiSource(uuid.New())
	created, err := f.svc.Materialize(context.Background(), src)
	require.NoError(t, err)

	got, err := f.svc.GetByOrderID(context.Background(), src.OrderID)
	require.NoError(t, err)
	assert.Equal(t, created.InvoiceNumber, got.InvoiceNumber)
	assert.True(t, got.Totals.GrandTotal.Equal(created.Totals.GrandTotal))
}

func TestInvoiceNumber(t *testing.T) {
	id := uuid.MustParse("00ab12cd-0000-4000-8000-000000000000")
	got := InvoiceNumber("OD", id, time.Date(2026, 12, 31, 23, 30, 0, 0, time.FixedZone("IST", 5*3600+1800)))
	assert.Equal(t, "OD-20261231-00AB12CD000040008000000000000000", got)
}

func TestMaterializeDistinctOrdersSharingIDPrefix(t *testing.T) {
	f := newFixture(t, nil)
	first := basmatiSource(uuid.MustParse("deadbeef-0000-4000-8000-000000000001"))
	second := basmatiSource(uuid.MustParse("deadbeef-1111-4000-8000-000000000002"))

	a, err := f.svc.Materialize(context.Background(), first)
	require.NoError(t, err)
	b, err := f.svc.Materialize(context.Background(), second)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.NotEqual(t, a.InvoiceNumber, b.InvoiceNumber)

	row, err := f.repo.FindByOrderID(context.Background(), second.OrderID)
	require.NoError(t, err)
	assert.Equal(t, b.InvoiceNumber, row.InvoiceNumber)
}

func TestMaterializeNumberClashIsNotSkipped(t *testing.T) {
	f := newFixture(t, nil)
	src := basmatiSource(uuid.New())
	require.NoError(t, f.conn.Create(&models.Invoice{
		ID:            uuid.New(),
		OrderID:       uuid.New(),
		InvoiceNumber: InvoiceNumber(defaultPrefix, src.OrderID, issuedAt),
		Status:        enums.InvoiceStatusIssued,
		PaymentStatus: enums.PaymentStatusUnpaid,
		Document:      []byte(`{}`),
		IssuedAt:      issuedAt,
	}).Error)

	inv, err := f.svc.Materialize(context.Background(), src)
	require.Error(t, err)
	assert.Nil(t, inv)
	assert.False(t, pkgerrors.IsCode(err, pkgerrors.CodeMaterializationSkipped))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
