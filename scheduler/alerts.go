package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/blackpanther093/manage/cache"
	"github.com/blackpanther093/manage/ch"
	"github.com/blackpanther093/manage/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const alertDateLayout = "2006-01-02"

// Alert is one derived waste or feedback warning
type Alert struct {
	Kind    ch.AlertKind    `json:"kind"`
	Message string          `json:"message"`
	Date    time.Time       `json:"date"`
	Value   decimal.Decimal `json:"value"`
}

// WasteMessage renders a high waste alert
func WasteMessage(floor string, kg decimal.Decimal) string {
	return fmt.Sprintf("High waste recorded on %s Floor with %s Kg.", floor, kg.String())
}

// FeedbackMessage renders a low feedback alert
func FeedbackMessage(meal string, date time.Time, avg decimal.Decimal) string {
	return fmt.Sprintf("Low feedback detected for %s on %s with Avg. Rating %s",
		meal, date.Format(alertDateLayout), avg.Round(2).String())
}

func (s *Scheduler) alertLoader(m store.Mess) cache.LoadFunc[[]Alert] {
	return func(ctx context.Context) ([]Alert, error) {
		since := s.oracle.Today().AddDate(0, 0, -s.cfg.AlertWindowDays)

		waste, err := s.store.WasteAbove(ctx, m.Floors, since, decimal.NewFromFloat(s.cfg.WasteThresholdKg))
		if err != nil {
			return nil, err
		}
		ratings, err := s.store.RatingsBelow(ctx, m.Name, since, s.cfg.RatingThreshold)
		if err != nil {
			return nil, err
		}

		alerts := make([]Alert, 0, len(waste)+len(ratings))
		for _, w := range waste {
			alerts = append(alerts, Alert{
				Kind:    ch.HighWaste,
				Message: WasteMessage(w.Floor, w.TotalWaste),
				Date:    w.WasteDate,
				Value:   w.TotalWaste,
			})
		}
		for _, r := range ratings {
			avg := decimal.NewFromFloat(r.AvgRating)
			alerts = append(alerts, Alert{
				Kind:    ch.LowFeedback,
				Message: FeedbackMessage(string(r.Meal), r.FeedbackDate, avg),
				Date:    r.FeedbackDate,
				Value:   avg.Round(2),
			})
		}
		return alerts, nil
	}
}

// recompute reloads every mess. A mess whose load fails keeps its previous
// alerts; the others are still replaced.
func (s *Scheduler) recompute(ctx context.Context) error {
	var errs []error
	for _, m := range s.cfg.Messes {
		snap := s.snapshots[m.Name]
		if err := snap.Load(ctx); err != nil {
			s.log.Error("alert recomputation failed, keeping previous alerts",
				zap.String("mess", m.Name),
				zap.Error(err),
			)
			errs = append(errs, ErrRecompute(m.Name, err))
			continue
		}
		alerts := snap.Get()
		s.log.Info("alerts recomputed", zap.String("mess", m.Name), zap.Int("alerts", len(alerts)))
		s.record(ctx, m.Name, alerts, snap.LoadedAt())
	}
	return errors.Join(errs...)
}

func (s *Scheduler) record(ctx context.Context, mess string, alerts []Alert, at time.Time) {
	if s.history == nil || len(alerts) == 0 {
		return
	}
	rows := make([]ch.AlertRow, len(alerts))
	for i, a := range alerts {
		rows[i] = ch.AlertRow{
			Mess:       mess,
			Kind:       a.Kind,
			Message:    a.Message,
			AlertDate:  a.Date,
			Value:      a.Value,
			RecordedAt: at,
		}
	}
	if err := s.history.Write(ctx, rows); err != nil {
		s.log.Warn("alert history write failed", zap.String("mess", mess), zap.Error(err))
	}
}

// Alerts returns a copy of the current alerts of mess, empty for an unknown mess
func (s *Scheduler) Alerts(mess string) []Alert {
	snap, ok := s.snapshots[mess]
	if !ok {
		return []Alert{}
	}
	alerts := snap.Get()
	if alerts == nil {
		return []Alert{}
	}
	return slices.Clone(alerts)
}

// AlertsLoadedAt returns when the alerts of mess were last replaced
func (s *Scheduler) AlertsLoadedAt(mess string) time.Time {
	if snap, ok := s.snapshots[mess]; ok {
		return snap.LoadedAt()
	}
	return time.Time{}
}
