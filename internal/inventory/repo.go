package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/orderdesk/pkg/db/models"
)

// Repository persists seller stock levels.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, item *models.InventoryItem) error
	Get(ctx context.Context, sellerID uuid.UUID, sku string) (*models.InventoryItem, error)
	Decrement(ctx context.Context, sellerID uuid.UUID, sku string, qty decimal.Decimal) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Upsert(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "seller_id"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{"available_qty", "updated_at"}),
		}).
		Create(item).Error
}

// Get returns gorm.ErrRecordNotFound when the SKU is not stocked.
func (r *repository) Get(ctx context.Context, sellerID uuid.UUID, sku string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("seller_id = ? AND sku = ?", sellerID, sku).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Decrement subtracts qty only when enough stock is available. It reports
// false when the row is missing or short.
func (r *repository) Decrement(ctx context.Context, sellerID uuid.UUID, sku string, qty decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("seller_id = ? AND sku = ? AND available_qty >= ?", sellerID, sku, qty).
		Updates(map[string]any{
			"available_qty": gorm.Expr("available_qty - ?", qty),
			"updated_at":    gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
