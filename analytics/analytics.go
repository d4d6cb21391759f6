// Package analytics writes a session's post-run analytics bundle to disk as
// CSV tables: one row per agent's shopping outcome, one row per checkout's
// service history. Chart rendering from these tables is left to an external
// collaborator; only the CSV emission underneath it lives here.
package analytics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"groceria/snapshot"
)

// WriteBundle exports bundle's two tables — per-agent metrics and
// per-checkout time series — as sibling CSV files under dir, named
// agents.csv and checkouts.csv. dir is created if it does not exist.
func WriteBundle(dir string, bundle snapshot.AnalyticsBundle) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("analytics: creating output dir: %w", err)
	}
	if err := writeAgents(filepath.Join(dir, "agents.csv"), bundle); err != nil {
		return err
	}
	if err := writeCheckouts(filepath.Join(dir, "checkouts.csv"), bundle); err != nil {
		return err
	}
	return nil
}

var agentHeader = []string{
	"id", "type", "speed", "patience", "items_left", "items_total",
	"shopping_done", "in_queue", "entry_tick", "start_tick", "finish_tick",
	"total_time", "last_checkout_service_time",
}

func writeAgents(path string, bundle snapshot.AnalyticsBundle) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("analytics: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(agentHeader); err != nil {
		return fmt.Errorf("analytics: writing header: %w", err)
	}
	for _, a := range bundle.Agents {
		row := []string{
			strconv.FormatInt(a.ID, 10),
			a.Type,
			a.Speed,
			strconv.FormatFloat(a.Patience, 'f', 4, 64),
			strconv.Itoa(a.ItemsLeft),
			strconv.Itoa(a.ItemsTotal),
			strconv.FormatBool(a.ShoppingDone),
			strconv.FormatBool(a.InQueue),
			strconv.Itoa(a.EntryTick),
			intPtrString(a.StartTick),
			intPtrString(a.FinishTick),
			intPtrString(a.TotalTime),
			strconv.Itoa(a.LastCheckoutServiceTime),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("analytics: writing agent row: %w", err)
		}
	}
	return w.Error()
}

var checkoutHeader = []string{"checkout_row", "checkout_col", "tick", "occupied", "queue_length"}

func writeCheckouts(path string, bundle snapshot.AnalyticsBundle) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("analytics: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(checkoutHeader); err != nil {
		return fmt.Errorf("analytics: writing header: %w", err)
	}
	for _, co := range bundle.Checkouts {
		for _, sample := range co.Series {
			row := []string{
				strconv.Itoa(co.Position.Row),
				strconv.Itoa(co.Position.Col),
				strconv.Itoa(sample.Tick),
				strconv.FormatBool(sample.Occupied),
				strconv.Itoa(sample.QueueLength),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("analytics: writing checkout row: %w", err)
			}
		}
	}
	return w.Error()
}

func intPtrString(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
