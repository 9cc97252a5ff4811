package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/blackpanther093/manage/mealtime"
	"github.com/blackpanther093/manage/scheduler"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func newMenuCmd(opts *rootOptions) *cobra.Command {
	var date, meal string
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Print the resolved menu of a meal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				day    time.Time
				period mealtime.MealPeriod
			)
			if meal != "" {
				m, ok := mealtime.ParseMeal(meal)
				if !ok {
					return fmt.Errorf("messcore: unknown meal %q", meal)
				}
				period = m
			}

			_, log, app, err := opts.build(nil)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer app.Close()

			if date != "" {
				day, err = time.ParseInLocation(dateLayout, date, mealtime.DefaultLocation())
				if err != nil {
					return fmt.Errorf("messcore: invalid date %q: %w", date, err)
				}
			}
			return printJSON(cmd.OutOrStdout(), app.Core.ResolveMenu(cmd.Context(), day, period))
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to resolve as YYYY-MM-DD, default today")
	cmd.Flags().StringVar(&meal, "meal", "", "Breakfast, Lunch, Snacks or Dinner, default the current meal")
	return cmd
}

func newAlertsCmd(opts *rootOptions) *cobra.Command {
	var history time.Duration
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Recompute and print the waste and feedback alerts of every mess",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, app, err := opts.build(nil)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer app.Close()

			ctx := cmd.Context()
			if err := app.Scheduler.RunNow(ctx, scheduler.ChainAggregate); err != nil {
				return err
			}
			out := map[string]any{}
			for _, m := range cfg.Scheduler.Messes {
				out[m.Name] = app.Core.AggregateAlerts(m.Name)
			}
			if history > 0 && app.History != nil {
				since := time.Now().Add(-history)
				past := map[string]any{}
				for _, m := range cfg.Scheduler.Messes {
					rows, err := app.History.RecentAlerts(ctx, m.Name, since)
					if err != nil {
						return err
					}
					past[m.Name] = rows
				}
				out = map[string]any{"current": out, "history": past}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().DurationVar(&history, "history", 0, "also print alerts recorded in ClickHouse within this window")
	return cmd
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <chain>",
		Short: "Run one scheduled chain now, e.g. cleanup or notify_lunch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, app, err := opts.build(nil)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			defer app.Close()

			return app.Scheduler.RunNow(cmd.Context(), args[0])
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
