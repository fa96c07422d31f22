package groupbuys

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streetconnect/streetconnect-backend/pkg/db/models"
	"github.com/streetconnect/streetconnect-backend/pkg/pagination"
)

// Repository is the persistence surface for group buys.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, gb *models.GroupBuy) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.GroupBuy, error)
	// UpdateVersioned writes the aggregate columns guarded by the version
	// token. It reports false when no row matched (version moved).
	UpdateVersioned(ctx context.Context, gb *models.GroupBuy, expectedVersion int64) (bool, error)
	InsertParticipant(ctx context.Context, p *models.GroupBuyParticipant) error
	UpdateParticipantQuantity(ctx context.Context, groupBuyID, vendorID uuid.UUID, quantity int) error
	DeleteParticipant(ctx context.Context, groupBuyID, vendorID uuid.UUID) error
	ListActive(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.GroupBuy, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.GroupBuy, error)
	ListOpenPastDeadline(ctx context.Context, now time.Time, limit int) ([]models.GroupBuy, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a group-buy repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, gb *models.GroupBuy) error {
	if gb.ID == uuid.Nil {
		gb.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(gb).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.GroupBuy, error) {
	var gb models.GroupBuy
	err := r.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC")
		}).
		Where("id = ?", id).
		First(&gb).Error
	if err != nil {
		return nil, err
	}
	return &gb, nil
}

func (r *repository) UpdateVersioned(ctx context.Context, gb *models.GroupBuy, expectedVersion int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.GroupBuy{}).
		Where("id = ? AND version = ?", gb.ID, expectedVersion).
		Updates(map[string]any{
			"status":           gb.Status,
			"current_quantity": gb.CurrentQuantity,
			"confirmed_at":     gb.ConfirmedAt,
			"expired_at":       gb.ExpiredAt,
			"cancelled_at":     gb.CancelledAt,
			"version":          expectedVersion + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) InsertParticipant(ctx context.Context, p *models.GroupBuyParticipant) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) UpdateParticipantQuantity(ctx context.Context, groupBuyID, vendorID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.GroupBuyParticipant{}).
		Where("group_buy_id = ? AND vendor_id = ?", groupBuyID, vendorID).
		Update("quantity", quantity).Error
}

func (r *repository) DeleteParticipant(ctx context.Context, groupBuyID, vendorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("group_buy_id = ? AND vendor_id = ?", groupBuyID, vendorID).
		Delete(&models.GroupBuyParticipant{}).Error
}

func (r *repository) ListActive(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.GroupBuy, error) {
	query := r.db.WithContext(ctx).
		Preload("Participants").
		Where("status = ?", "open")
	return r.listPage(query, cursor, limit)
}

func (r *repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.GroupBuy, error) {
	query := r.db.WithContext(ctx).
		Preload("Participants").
		Where(
			"initiator_id = ? OR id IN (?)",
			vendorID,
			r.db.Model(&models.GroupBuyParticipant{}).
				Select("group_buy_id").
				Where("vendor_id = ?", vendorID),
		)
	return r.listPage(query, cursor, limit)
}

func (r *repository) ListOpenPastDeadline(ctx context.Context, now time.Time, limit int) ([]models.GroupBuy, error) {
	var rows []models.GroupBuy
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Where("status = ? AND deadline <= ?", "open", now).
		Order("deadline ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) listPage(query *gorm.DB, cursor *pagination.Cursor, limit int) ([]models.GroupBuy, error) {
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var rows []models.GroupBuy
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
