package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/blackpanther093/manage/cache"
	"github.com/blackpanther093/manage/cron"
	"github.com/blackpanther093/manage/digest"
	"github.com/blackpanther093/manage/mealtime"
	"github.com/blackpanther093/manage/menu"
	"github.com/blackpanther093/manage/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventNotificationCreated is the event type of a persisted digest
const EventNotificationCreated = "notification.created"

// shared data keys of a notification chain run
const (
	keyCritical = "critical"
	keyDigests  = "digests"
)

// NotificationEvent is published for every persisted digest
type NotificationEvent struct {
	EventID        string    `json:"event_id"`
	NotificationID int64     `json:"notification_id"`
	Mess           string    `json:"mess"`
	Meal           string    `json:"meal"`
	Message        string    `json:"message"`
	Comments       int       `json:"comments"`
	CreatedAt      time.Time `json:"created_at"`
}

// watermark is the newest comment already included in a persisted digest
type watermark struct {
	day time.Time
	at  time.Time
}

type critical struct {
	mess     store.Mess
	comments []store.FeedbackComment
}

type pending struct {
	mess     store.Mess
	message  string
	comments int
	newest   time.Time
}

// notifier runs the collect, summarize, persist chain of one meal
type notifier struct {
	s    *Scheduler
	meal mealtime.MealPeriod
}

func (n *notifier) collect(ctx context.Context) error {
	s := n.s
	today := s.oracle.Today()
	var found []critical
	for _, m := range s.cfg.Messes {
		after := s.since(m.Name, n.meal, today)
		rows, err := s.store.FeedbackComments(ctx, m.Name, today, n.meal, after)
		if err != nil {
			return err
		}
		var keep []store.FeedbackComment
		for _, r := range rows {
			label, err := s.classifier.Classify(ctx, r.Comments)
			if err != nil {
				s.log.Warn("feedback classification failed",
					zap.String("mess", m.Name),
					zap.Int64("detail_id", r.DetailID),
					zap.Error(err),
				)
				continue
			}
			if label == digest.Critical {
				keep = append(keep, r)
			}
		}
		if len(keep) == 0 {
			s.log.Info("no critical feedback",
				zap.String("mess", m.Name),
				zap.String("meal", string(n.meal)),
			)
			continue
		}
		found = append(found, critical{mess: m, comments: keep})
	}
	cron.GetSharedData(ctx).Set(keyCritical, found)
	return nil
}

func (n *notifier) summarize(ctx context.Context) error {
	s := n.s
	shared := cron.GetSharedData(ctx)
	found, _ := cron.Value[[]critical](shared, keyCritical)

	digests := make([]pending, 0, len(found))
	for _, c := range found {
		texts := make([]string, len(c.comments))
		var newest time.Time
		for i, r := range c.comments {
			texts[i] = strings.TrimSpace(r.Comments)
			if r.CreatedAt.After(newest) {
				newest = r.CreatedAt
			}
		}
		body := digest.Summarize(ctx, s.log, s.summarizer, strings.Join(texts, "\n"), s.cfg.MaxDigestChars)
		if body == "" {
			continue
		}
		digests = append(digests, pending{
			mess:     c.mess,
			message:  title(c.mess) + "\n" + body,
			comments: len(c.comments),
			newest:   newest,
		})
	}
	shared.Set(keyDigests, digests)
	return nil
}

func (n *notifier) persist(ctx context.Context) error {
	s := n.s
	digests, _ := cron.Value[[]pending](cron.GetSharedData(ctx), keyDigests)
	if len(digests) == 0 {
		s.log.Info("no critical feedback to notify", zap.String("meal", string(n.meal)))
		return nil
	}

	today := s.oracle.Today()
	inserted := 0
	var firstErr error
	for _, d := range digests {
		row := &store.Notification{
			Message:       d.message,
			RecipientType: store.AdminRecipient,
			CreatedAt:     s.oracle.Now(),
		}
		if err := s.store.InsertNotification(ctx, row); err != nil {
			s.log.Error("digest insert failed", zap.String("mess", d.mess.Name), zap.Error(err))
			if firstErr == nil {
				firstErr = ErrPersist(d.mess.Name, err)
			}
			continue
		}
		inserted++
		s.advance(d.mess.Name, n.meal, today, d.newest)
		s.publish(ctx, n.meal, d, row)
	}
	if inserted > 0 {
		s.cache.Clear(cache.Notification, menu.NotificationKey(store.AdminRecipient))
		s.log.Info("critical feedback digests sent",
			zap.String("meal", string(n.meal)),
			zap.Int("notifications", inserted),
		)
	}
	return firstErr
}

func (s *Scheduler) publish(ctx context.Context, meal mealtime.MealPeriod, d pending, row *store.Notification) {
	if s.publisher == nil {
		return
	}
	ev := NotificationEvent{
		EventID:        uuid.NewString(),
		NotificationID: row.ID,
		Mess:           d.mess.Name,
		Meal:           string(meal),
		Message:        row.Message,
		Comments:       d.comments,
		CreatedAt:      row.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, EventNotificationCreated, d.mess.Name, ev); err != nil {
		s.log.Warn("notification event publish failed",
			zap.String("event_id", ev.EventID),
			zap.Error(err),
		)
	}
}

// since returns the instant after which comments are new for mess and meal today
func (s *Scheduler) since(mess string, meal mealtime.MealPeriod, today time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.watermark[mess][meal]
	if !ok || !w.day.Equal(today) {
		return time.Time{}
	}
	return w.at
}

func (s *Scheduler) advance(mess string, meal mealtime.MealPeriod, today, newest time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watermark[mess] == nil {
		s.watermark[mess] = make(map[mealtime.MealPeriod]watermark)
	}
	if w := s.watermark[mess][meal]; w.day.Equal(today) && !newest.After(w.at) {
		return
	}
	s.watermark[mess][meal] = watermark{day: today, at: newest}
}

func title(m store.Mess) string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Name
}
