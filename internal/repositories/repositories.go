package repositories

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository provides access to remote order rows
type OrderRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB, readOnlyDB *gorm.DB) *OrderRepository {
	return &OrderRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// PullWindow fetches the rows a device needs: every non-terminal order plus
// anything created after the window cutoff, so recent receipts stay
// available for the per-day reporting views without unbounded growth.
func (r *OrderRepository) PullWindow(ctx context.Context, tenantID string, cutoff time.Time) ([]OrderRow, error) {
	var rows []OrderRow
	// Use read-only DB for reads
	err := r.readOnlyDB.WithContext(ctx).
		Where("tenant_id = ? AND (status <> ? OR created_at >= ?)", tenantID, "DELIVERED", cutoff).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to pull order window")
	}
	return rows, nil
}

// Upsert writes the whole row, last writer wins. There is no version check;
// two terminals editing the same order race at row granularity.
func (r *OrderRepository) Upsert(ctx context.Context, row *OrderRow) error {
	// Use write DB for writes
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}

// DeleteBefore removes archived rows created before the given date. This is
// the explicit history purge, the only true delete besides factory reset.
func (r *OrderRepository) DeleteBefore(ctx context.Context, tenantID string, before time.Time) error {
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND created_at < ?", tenantID, before).
		Delete(&OrderRow{}).Error
	return errors.Wrap(err, "failed to purge order history")
}

// DeleteAll removes every order row of the tenant (factory reset).
func (r *OrderRepository) DeleteAll(ctx context.Context, tenantID string) error {
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&OrderRow{}).Error
	return errors.Wrap(err, "failed to delete orders")
}

// MenuRepository provides access to remote menu rows
type MenuRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewMenuRepository creates a new menu repository
func NewMenuRepository(db *gorm.DB, readOnlyDB *gorm.DB) *MenuRepository {
	return &MenuRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// List fetches every menu row of the tenant
func (r *MenuRepository) List(ctx context.Context, tenantID string) ([]MenuItemRow, error) {
	var rows []MenuItemRow
	// Use read-only DB for reads
	err := r.readOnlyDB.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list menu items")
	}
	return rows, nil
}

// Upsert writes the whole menu row
func (r *MenuRepository) Upsert(ctx context.Context, row *MenuItemRow) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}

// Delete removes a menu row
func (r *MenuRepository) Delete(ctx context.Context, tenantID, id string) error {
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&MenuItemRow{}).Error
	return errors.Wrap(err, "failed to delete menu item")
}

// ProfileRepository provides access to the tenant profile row
type ProfileRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB, readOnlyDB *gorm.DB) *ProfileRepository {
	return &ProfileRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Get fetches the profile row, or nil when the tenant has none yet
func (r *ProfileRepository) Get(ctx context.Context, tenantID string) (*ProfileRow, error) {
	var row ProfileRow
	err := r.readOnlyDB.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get profile")
	}
	return &row, nil
}

// Save writes the whole profile row
func (r *ProfileRepository) Save(ctx context.Context, row *ProfileRow) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}

// MarketingRepository provides access to promotion/automation/social rows
type MarketingRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewMarketingRepository creates a new marketing repository
func NewMarketingRepository(db *gorm.DB, readOnlyDB *gorm.DB) *MarketingRepository {
	return &MarketingRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// ListPromotions fetches every promotion row of the tenant
func (r *MarketingRepository) ListPromotions(ctx context.Context, tenantID string) ([]PromotionRow, error) {
	var rows []PromotionRow
	err := r.readOnlyDB.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list promotions")
	}
	return rows, nil
}

// UpsertPromotion writes the whole promotion row
func (r *MarketingRepository) UpsertPromotion(ctx context.Context, row *PromotionRow) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}

// ListAutomations fetches every automation row of the tenant
func (r *MarketingRepository) ListAutomations(ctx context.Context, tenantID string) ([]AutomationRow, error) {
	var rows []AutomationRow
	err := r.readOnlyDB.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list automations")
	}
	return rows, nil
}

// UpsertAutomation writes the whole automation row
func (r *MarketingRepository) UpsertAutomation(ctx context.Context, row *AutomationRow) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}

// ListSocialPosts fetches every social post row of the tenant
func (r *MarketingRepository) ListSocialPosts(ctx context.Context, tenantID string) ([]SocialPostRow, error) {
	var rows []SocialPostRow
	err := r.readOnlyDB.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list social posts")
	}
	return rows, nil
}

// UpsertSocialPost writes the whole social post row
func (r *MarketingRepository) UpsertSocialPost(ctx context.Context, row *SocialPostRow) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}
