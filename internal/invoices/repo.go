package invoices

import (
	"context"

	"github.com/angelmondragon/orderdesk/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists invoices.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error)
	FindByNumber(ctx context.Context, number string) (*models.Invoice, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an invoice repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(invoice).Error
}

// FindByOrderID returns gorm.ErrRecordNotFound when the order has no invoice.
func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).
		Where("invoice_number = ?", number).
		First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}
