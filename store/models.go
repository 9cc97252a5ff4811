package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Notification is a row of the notifications table
type Notification struct {
	ID            int64     `gorm:"column:notification_id;primaryKey;autoIncrement"`
	Message       string    `gorm:"column:message"`
	RecipientType string    `gorm:"column:recipient_type"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (Notification) TableName() string { return "notifications" }

// FeatureToggle is the mess switching window flag
type FeatureToggle struct {
	IsEnabled  bool       `gorm:"column:is_enabled"`
	EnabledAt  *time.Time `gorm:"column:enabled_at"`
	DisabledAt *time.Time `gorm:"column:disabled_at"`
}

func (FeatureToggle) TableName() string { return "feature_toggle" }

// temporaryMenu is an admin override for today
type temporaryMenu struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	WeekType  string    `gorm:"column:week_type"`
	Day       string    `gorm:"column:day"`
	Meal      string    `gorm:"column:meal"`
	FoodItem  string    `gorm:"column:food_item"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (temporaryMenu) TableName() string { return "temporary_menu" }

// defaultMenu is the recurring two-week menu
type defaultMenu struct {
	WeekType string `gorm:"column:week_type"`
	Day      string `gorm:"column:day"`
	Meal     string `gorm:"column:meal"`
	FoodItem string `gorm:"column:food_item"`
}

func (defaultMenu) TableName() string { return "menu" }

type nonVegMenuMain struct {
	MenuID   int64     `gorm:"column:menu_id;primaryKey"`
	MenuDate time.Time `gorm:"column:menu_date"`
	Meal     string    `gorm:"column:meal"`
	Mess     string    `gorm:"column:mess"`
}

func (nonVegMenuMain) TableName() string { return "non_veg_menu_main" }

type nonVegMenuItem struct {
	ItemID   int64           `gorm:"column:item_id;primaryKey"`
	MenuID   int64           `gorm:"column:menu_id"`
	FoodItem string          `gorm:"column:food_item"`
	Cost     decimal.Decimal `gorm:"column:cost"`
}

func (nonVegMenuItem) TableName() string { return "non_veg_menu_items" }
