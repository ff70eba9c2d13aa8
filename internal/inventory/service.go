package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk/internal/orders"
	"github.com/angelmondragon/orderdesk/pkg/db"
	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
	"github.com/angelmondragon/orderdesk/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Adjuster deducts shipped quantities from the seller's stock.
type Adjuster struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewAdjuster validates dependencies and returns the stock adjuster.
func NewAdjuster(repo Repository, tx txRunner, logg *logger.Logger) (*Adjuster, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Adjuster{repo: repo, tx: tx, logg: logg}, nil
}

// Deduct removes every stocked SKU on the order in one transaction. Lines
// without a SKU, or SKUs the seller does not track, are left alone. A short
// SKU rolls back the whole order. With a non-nil tx the deduction runs in a
// savepoint of that transaction and commits only with it.
func (a *Adjuster) Deduct(ctx context.Context, tx *gorm.DB, order *orders.Order) error {
	if order == nil || order.Seller.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order seller is required")
	}
	wanted := quantitiesBySKU(order)
	if len(wanted) == 0 {
		return nil
	}
	skus := make([]string, 0, len(wanted))
	for sku := range wanted {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	var skipped []string
	deduct := func(tx *gorm.DB) error {
		skipped = skipped[:0]
		repo := a.repo.WithTx(tx)
		for _, sku := range skus {
			qty := wanted[sku]
			ok, err := repo.Decrement(ctx, order.Seller.ID, sku, qty)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement inventory")
			}
			if ok {
				continue
			}
			item, err := repo.Get(ctx, order.Seller.ID, sku)
			if db.IsNotFound(err) {
				skipped = append(skipped, sku)
				continue
			}
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient inventory").
				WithDetails(map[string]any{
					"sku":       sku,
					"requested": qty.String(),
					"available": item.AvailableQty.String(),
				})
		}
		return nil
	}
	var err error
	if tx != nil {
		err = tx.WithContext(ctx).Transaction(deduct)
	} else {
		err = a.tx.WithTx(ctx, deduct)
	}
	if err != nil {
		return err
	}
	if len(skipped) > 0 {
		a.logg.Info(a.logg.WithField(ctx, "untracked_skus", strings.Join(skipped, ",")), "inventory not tracked for some skus")
	}
	return nil
}

func quantitiesBySKU(order *orders.Order) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, line := range order.Lines {
		sku := strings.TrimSpace(line.SKU)
		qty := line.Qty()
		if sku == "" || !qty.IsPositive() {
			continue
		}
		out[sku] = out[sku].Add(qty)
	}
	return out
}
