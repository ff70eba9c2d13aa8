package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/orderdesk/pkg/db/models"
	"github.com/angelmondragon/orderdesk/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for party copies and pending mirror writes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, record *models.OrderRecord) error
	FindCopies(ctx context.Context, orderID uuid.UUID) ([]models.OrderRecord, error)
	EnqueueMirror(ctx context.Context, write *models.MirrorWrite) error
	ListPendingMirrors(ctx context.Context, limit, maxAttempts int) ([]models.MirrorWrite, error)
	MarkMirrorsSynced(ctx context.Context, orderID uuid.UUID, target enums.Namespace, upTo int64, at time.Time) error
	MarkMirrorFailed(ctx context.Context, id uuid.UUID, cause error) error
	DeleteSyncedMirrorsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ErrStaleRevision reports an upsert skipped because the stored copy already
// carries a higher revision.
var ErrStaleRevision = errors.New("stored copy has a newer revision")

// Upsert writes a copy keyed by (order_id, namespace). The existing row id is
// kept, and a stored copy with a higher revision is left untouched.
func (r *repository) Upsert(ctx context.Context, record *models.OrderRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "namespace"}},
			DoUpdates: clause.AssignmentColumns([]string{"owner_id", "peer_id", "status", "revision", "document", "updated_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "order_records.revision <= excluded.revision"},
			}},
		}).
		Create(record)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRevision
	}
	return nil
}

func (r *repository) FindCopies(ctx context.Context, orderID uuid.UUID) ([]models.OrderRecord, error) {
	var records []models.OrderRecord
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("namespace ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) EnqueueMirror(ctx context.Context, write *models.MirrorWrite) error {
	if write.ID == uuid.Nil {
		write.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(write).Error
}

func (r *repository) ListPendingMirrors(ctx context.Context, limit, maxAttempts int) ([]models.MirrorWrite, error) {
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).
		Where("synced_at IS NULL")
	if maxAttempts > 0 {
		query = query.Where("attempt_count < ?", maxAttempts)
	}
	var writes []models.MirrorWrite
	if err := query.
		Order("created_at ASC").
		Limit(limit).
		Find(&writes).Error; err != nil {
		return nil, err
	}
	return writes, nil
}

// MarkMirrorsSynced settles every pending write for the target copy at or below upTo.
func (r *repository) MarkMirrorsSynced(ctx context.Context, orderID uuid.UUID, target enums.Namespace, upTo int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.MirrorWrite{}).
		Where("order_id = ? AND target_namespace = ? AND revision <= ? AND synced_at IS NULL", orderID, target, upTo).
		Updates(map[string]any{
			"synced_at":  at,
			"last_error": nil,
		}).Error
}

func (r *repository) MarkMirrorFailed(ctx context.Context, id uuid.UUID, cause error) error {
	updates := map[string]any{
		"attempt_count": gorm.Expr("attempt_count + 1"),
	}
	if cause != nil {
		updates["last_error"] = cause.Error()
	}
	return r.db.WithContext(ctx).
		Model(&models.MirrorWrite{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteSyncedMirrorsBefore removes settled mirror writes older than cutoff.
func (r *repository) DeleteSyncedMirrorsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("synced_at IS NOT NULL AND synced_at < ?", cutoff).
		Delete(&models.MirrorWrite{})
	return res.RowsAffected, res.Error
}
