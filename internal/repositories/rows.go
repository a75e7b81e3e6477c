package repositories

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// OrderRow is the remote shape of an order. Items is the raw JSON items
// payload, including the side-channel metadata element the sync codec owns;
// nothing else reads it directly.
type OrderRow struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	TenantID     string         `gorm:"not null;index" json:"tenant_id"`
	TableNumber  string         `gorm:"not null" json:"table_number"`
	Status       string         `gorm:"not null" json:"status"`
	Items        []byte         `gorm:"type:jsonb;not null" json:"items"`
	Staff        string         `json:"staff"`
	LastActivity time.Time      `json:"last_activity"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// MenuItemRow is the remote shape of a menu item.
type MenuItemRow struct {
	ID           string         `gorm:"primaryKey" json:"id"`
	TenantID     string         `gorm:"not null;index" json:"tenant_id"`
	Name         string         `gorm:"not null" json:"name"`
	Price        float64        `gorm:"not null" json:"price"`
	Category     string         `gorm:"not null" json:"category"`
	Description  string         `json:"description"`
	Ingredients  []byte         `gorm:"type:jsonb" json:"ingredients"`
	Allergens    []byte         `gorm:"type:jsonb" json:"allergens"`
	Image        string         `json:"image"`
	Department   string         `json:"department"`
	ComboItemIDs []byte         `gorm:"type:jsonb" json:"combo_item_ids"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// ProfileRow holds a tenant's settings blob and AI credential.
type ProfileRow struct {
	TenantID     string    `gorm:"primaryKey" json:"tenant_id"`
	Settings     []byte    `gorm:"type:jsonb" json:"settings"`
	AICredential string    `json:"ai_credential"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PromotionRow is the remote shape of a promotion.
type PromotionRow struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	TenantID  string         `gorm:"not null;index" json:"tenant_id"`
	Title     string         `gorm:"not null" json:"title"`
	Body      string         `json:"body"`
	StartsAt  time.Time      `json:"starts_at"`
	EndsAt    time.Time      `json:"ends_at"`
	Active    bool           `gorm:"not null;default:false" json:"active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AutomationRow is the remote shape of a marketing automation.
type AutomationRow struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	TenantID  string         `gorm:"not null;index" json:"tenant_id"`
	Name      string         `gorm:"not null" json:"name"`
	Trigger   string         `json:"trigger"`
	Action    string         `json:"action"`
	Enabled   bool           `gorm:"not null;default:false" json:"enabled"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// SocialPostRow is the remote shape of a social post.
type SocialPostRow struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	TenantID    string         `gorm:"not null;index" json:"tenant_id"`
	Channel     string         `gorm:"not null" json:"channel"`
	Body        string         `json:"body"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	Published   bool           `gorm:"not null;default:false" json:"published"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&OrderRow{},
		&MenuItemRow{},
		&ProfileRow{},
		&PromotionRow{},
		&AutomationRow{},
		&SocialPostRow{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}
	return nil
}
