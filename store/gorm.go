package store

import (
	"context"
	"strings"
	"time"

	"github.com/blackpanther093/manage/db"
	"github.com/blackpanther093/manage/logger"
	"github.com/blackpanther093/manage/mealtime"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminRecipient is the recipient_type of notifications meant for mess admins
const AdminRecipient = "admin"

const dateLayout = "2006-01-02"

// GormStore implements DataStore on a gorm connection
type GormStore struct {
	log logger.Logger
	db  *gorm.DB
}

var _ DataStore = (*GormStore)(nil)

// New creates a GormStore on an opened database
func New(log logger.Logger, database db.Database) (*GormStore, error) {
	if database == nil {
		return nil, ErrNilDB
	}
	gdb, err := database.DB()
	if err != nil {
		return nil, err
	}
	return NewWithDB(log, gdb)
}

// NewWithDB creates a GormStore on a raw gorm handle
func NewWithDB(log logger.Logger, gdb *gorm.DB) (*GormStore, error) {
	if gdb == nil {
		return nil, ErrNilDB
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GormStore{log: log, db: gdb}, nil
}

// day renders t as the DATE literal the schema compares against
func day(t time.Time) string {
	return t.Format(dateLayout)
}

func (s *GormStore) OverrideItems(ctx context.Context, key MenuKey) ([]string, error) {
	var items []string
	err := s.db.WithContext(ctx).
		Model(&temporaryMenu{}).
		Distinct().
		Where("week_type = ? AND day = ? AND meal = ?", string(key.Parity), key.Weekday, string(key.Meal)).
		Pluck("food_item", &items).Error
	if err != nil {
		return nil, ErrQuery("override items", err)
	}
	return items, nil
}

func (s *GormStore) DefaultItems(ctx context.Context, key MenuKey) ([]string, error) {
	var items []string
	err := s.db.WithContext(ctx).
		Model(&defaultMenu{}).
		Where("week_type = ? AND day = ? AND meal = ?", string(key.Parity), key.Weekday, string(key.Meal)).
		Pluck("food_item", &items).Error
	if err != nil {
		return nil, ErrQuery("default items", err)
	}
	return items, nil
}

const topRatedSQL = `SELECT d.food_item AS food_item, ROUND(AVG(d.rating), 2) AS avg_rating
FROM feedback_details d
JOIN feedback_summary s ON d.feedback_id = s.feedback_id
JOIN menu m ON d.food_item = m.food_item
WHERE m.week_type = ? AND m.day = ? AND m.meal = ?
GROUP BY d.food_item
ORDER BY avg_rating DESC
LIMIT 1`

func (s *GormStore) TopRatedItem(ctx context.Context, key MenuKey) (ItemRating, bool, error) {
	var rows []ItemRating
	err := s.db.WithContext(ctx).
		Raw(topRatedSQL, string(key.Parity), key.Weekday, string(key.Meal)).
		Scan(&rows).Error
	if err != nil {
		return ItemRating{}, false, ErrQuery("top rated item", err)
	}
	if len(rows) == 0 {
		return ItemRating{}, false, nil
	}
	return rows[0], true, nil
}

const wasteAboveSQL = `SELECT floor, waste_date, SUM(total_waste) AS total_waste
FROM waste_summary
WHERE waste_date >= ? AND floor IN ?
GROUP BY floor, waste_date
HAVING SUM(total_waste) > ?
ORDER BY waste_date DESC`

func (s *GormStore) WasteAbove(ctx context.Context, floors []string, since time.Time, threshold decimal.Decimal) ([]FloorWaste, error) {
	if len(floors) == 0 {
		return nil, nil
	}
	var rows []FloorWaste
	err := s.db.WithContext(ctx).
		Raw(wasteAboveSQL, day(since), floors, threshold).
		Scan(&rows).Error
	if err != nil {
		return nil, ErrQuery("waste above threshold", err)
	}
	return rows, nil
}

const ratingsBelowSQL = `SELECT s.meal AS meal, s.feedback_date AS feedback_date, AVG(d.rating) AS avg_rating
FROM feedback_details d
JOIN feedback_summary s ON d.feedback_id = s.feedback_id
WHERE s.mess = ? AND s.feedback_date >= ?
GROUP BY s.meal, s.feedback_date
HAVING AVG(d.rating) < ?
ORDER BY s.feedback_date DESC`

func (s *GormStore) RatingsBelow(ctx context.Context, mess string, since time.Time, threshold float64) ([]MealRating, error) {
	var rows []MealRating
	err := s.db.WithContext(ctx).
		Raw(ratingsBelowSQL, mess, day(since), threshold).
		Scan(&rows).Error
	if err != nil {
		return nil, ErrQuery("ratings below threshold", err)
	}
	return rows, nil
}

// PurgeBefore runs the three deletes in one transaction so non-veg items
// never outlive their menu header.
func (s *GormStore) PurgeBefore(ctx context.Context, before time.Time) (PurgeResult, error) {
	var res PurgeResult
	cutoff := day(before)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := tx.Where("created_at < ?", cutoff).Delete(&temporaryMenu{})
		if r.Error != nil {
			return ErrQuery("purge overrides", r.Error)
		}
		res.Overrides = r.RowsAffected

		stale := tx.Model(&nonVegMenuMain{}).Select("menu_id").Where("menu_date < ?", cutoff)
		r = tx.Where("menu_id IN (?)", stale).Delete(&nonVegMenuItem{})
		if r.Error != nil {
			return ErrQuery("purge non-veg items", r.Error)
		}
		res.NonVegItems = r.RowsAffected

		r = tx.Where("menu_date < ?", cutoff).Delete(&nonVegMenuMain{})
		if r.Error != nil {
			return ErrQuery("purge non-veg menus", r.Error)
		}
		res.NonVegMenus = r.RowsAffected
		return nil
	})
	if err != nil {
		return PurgeResult{}, err
	}
	s.log.Info("purged daily records",
		zap.String("before", cutoff),
		zap.Int64("overrides", res.Overrides),
		zap.Int64("non_veg_items", res.NonVegItems),
		zap.Int64("non_veg_menus", res.NonVegMenus),
	)
	return res, nil
}

const feedbackCommentsSQL = `SELECT d.detail_id AS detail_id, d.food_item AS food_item, d.rating AS rating,
d.comments AS comments, d.created_at AS created_at
FROM feedback_details d
JOIN feedback_summary s ON d.feedback_id = s.feedback_id
WHERE DATE(d.created_at) = ? AND s.mess = ? AND s.meal = ? AND d.created_at > ?
AND d.comments IS NOT NULL AND d.comments <> ''
ORDER BY d.created_at`

func (s *GormStore) FeedbackComments(ctx context.Context, mess string, on time.Time, meal mealtime.MealPeriod, after time.Time) ([]FeedbackComment, error) {
	var rows []FeedbackComment
	err := s.db.WithContext(ctx).
		Raw(feedbackCommentsSQL, day(on), mess, string(meal), after).
		Scan(&rows).Error
	if err != nil {
		return nil, ErrQuery("feedback comments", err)
	}
	out := rows[:0]
	for _, r := range rows {
		if strings.TrimSpace(r.Comments) != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *GormStore) InsertNotification(ctx context.Context, n *Notification) error {
	if n.RecipientType == "" {
		n.RecipientType = AdminRecipient
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return ErrQuery("insert notification", err)
	}
	return nil
}

const pollCountsSQL = `SELECT mess, vote, COUNT(*) AS count
FROM meal_poll
WHERE poll_date = ? AND meal = ?
GROUP BY mess, vote`

func (s *GormStore) PollCounts(ctx context.Context, on time.Time, meal mealtime.MealPeriod) ([]VoteCount, error) {
	var rows []VoteCount
	if err := s.db.WithContext(ctx).Raw(pollCountsSQL, day(on), string(meal)).Scan(&rows).Error; err != nil {
		return nil, ErrQuery("poll counts", err)
	}
	return rows, nil
}

// DATEDIFF % 14 keeps only days that served the same menu slot as on.
const mealRatingsSQL = `SELECT s.mess AS mess, COALESCE(AVG(d.rating), 0) AS avg_rating, COUNT(DISTINCT s.feedback_id) AS count
FROM feedback_summary s
LEFT JOIN feedback_details d ON d.feedback_id = s.feedback_id
WHERE s.meal = ? AND DATEDIFF(?, s.feedback_date) % 14 = 0
GROUP BY s.mess`

func (s *GormStore) MealRatings(ctx context.Context, meal mealtime.MealPeriod, on time.Time) ([]MessRating, error) {
	var rows []MessRating
	if err := s.db.WithContext(ctx).Raw(mealRatingsSQL, string(meal), day(on)).Scan(&rows).Error; err != nil {
		return nil, ErrQuery("meal ratings", err)
	}
	return rows, nil
}

const nonVegItemsSQL = `SELECT i.food_item AS food_item, MIN(i.cost) AS cost
FROM non_veg_menu_items i
JOIN non_veg_menu_main m ON i.menu_id = m.menu_id
WHERE m.menu_date = ? AND m.meal = ? AND m.mess = ?
GROUP BY i.food_item`

func (s *GormStore) NonVegItems(ctx context.Context, mess string, on time.Time, meal mealtime.MealPeriod) ([]NonVegItem, error) {
	var rows []NonVegItem
	if err := s.db.WithContext(ctx).Raw(nonVegItemsSQL, day(on), string(meal), mess).Scan(&rows).Error; err != nil {
		return nil, ErrQuery("non-veg items", err)
	}
	return rows, nil
}

const paymentSummarySQL = `SELECT payment_date, meal, GROUP_CONCAT(food_item SEPARATOR ', ') AS food_items, SUM(amount) AS total_amount
FROM payment
WHERE mess = ? AND payment_date >= ?
GROUP BY payment_date, meal
ORDER BY payment_date DESC`

func (s *GormStore) PaymentSummary(ctx context.Context, mess string, since time.Time) ([]PaymentDay, error) {
	var rows []PaymentDay
	if err := s.db.WithContext(ctx).Raw(paymentSummarySQL, mess, day(since)).Scan(&rows).Error; err != nil {
		return nil, ErrQuery("payment summary", err)
	}
	return rows, nil
}

func (s *GormStore) Notifications(ctx context.Context, recipient string, since time.Time) ([]Notification, error) {
	var rows []Notification
	err := s.db.WithContext(ctx).
		Select("message", "created_at").
		Where("recipient_type = ? AND created_at >= ?", recipient, since).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, ErrQuery("notifications", err)
	}
	return rows, nil
}

func (s *GormStore) FeatureToggle(ctx context.Context) (FeatureToggle, bool, error) {
	var rows []FeatureToggle
	err := s.db.WithContext(ctx).
		Select("is_enabled", "enabled_at", "disabled_at").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return FeatureToggle{}, false, ErrQuery("feature toggle", err)
	}
	if len(rows) == 0 {
		return FeatureToggle{}, false, nil
	}
	return rows[0], true, nil
}

const wasteByFloorSQL = `SELECT floor, SUM(total_waste) AS total_waste
FROM waste_summary
WHERE waste_date >= ?
GROUP BY floor
ORDER BY floor`

func (s *GormStore) WasteByFloor(ctx context.Context, since time.Time) ([]FloorTotal, error) {
	var rows []FloorTotal
	if err := s.db.WithContext(ctx).Raw(wasteByFloorSQL, day(since)).Scan(&rows).Error; err != nil {
		return nil, ErrQuery("waste by floor", err)
	}
	return rows, nil
}

const feedbackSummarySQL = `SELECT s.feedback_date AS feedback_date, s.meal AS meal,
COUNT(DISTINCT s.s_id) AS total_students, COALESCE(AVG(d.rating), 0) AS avg_rating
FROM feedback_summary s
LEFT JOIN feedback_details d ON d.feedback_id = s.feedback_id
WHERE s.mess = ? AND s.feedback_date >= ?
GROUP BY s.feedback_date, s.meal
ORDER BY s.feedback_date DESC`

func (s *GormStore) FeedbackSummary(ctx context.Context, mess string, since time.Time) ([]FeedbackDay, error) {
	var rows []FeedbackDay
	if err := s.db.WithContext(ctx).Raw(feedbackSummarySQL, mess, day(since)).Scan(&rows).Error; err != nil {
		return nil, ErrQuery("feedback summary", err)
	}
	return rows, nil
}
