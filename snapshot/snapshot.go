// Package snapshot builds the per-tick serializable view of a running
// simulation, plus the post-run analytics bundle. Nothing here mutates the
// engine; a Snapshot is a read-only projection taken between ticks.
package snapshot

import (
	"strings"

	"groceria/agent"
	"groceria/engine"
	"groceria/gridworld"
)

// OccupantRecord abbreviates an agent standing in a cell.
type OccupantRecord struct {
	ID           int64               `json:"id"`
	Type         string              `json:"type"`
	Speed        string              `json:"speed"`
	Patience     float64             `json:"patience"`
	ItemsLeft    int                 `json:"items_left"`
	ShoppingDone bool                `json:"shopping_done"`
	Path         []gridworld.Position `json:"path,omitempty"`
}

// QueueRecord abbreviates an agent waiting in a checkout queue.
type QueueRecord struct {
	ID         int64   `json:"id"`
	Type       string  `json:"type"`
	Speed      string  `json:"speed"`
	Patience   float64 `json:"patience"`
	TimeWaited int     `json:"time_waited"`
}

// CellRecord is one cell's serializable state.
type CellRecord struct {
	Kind       string           `json:"kind"`
	Capacity   int              `json:"capacity,omitempty"`
	Occupancy  int              `json:"occupancy"`
	Category   string           `json:"category,omitempty"`
	ProductID  int              `json:"product_id,omitempty"`
	Occupants  []OccupantRecord `json:"occupants,omitempty"`
	Queue      []QueueRecord    `json:"queue,omitempty"`
}

// Stats summarizes the whole run at one tick.
type Stats struct {
	Tick         int `json:"tick"`
	TotalAgents  int `json:"total_agents"`
	ActiveAgents int `json:"active_agents"`
	ShoppingNow  int `json:"shopping_now"`
	InQueue      int `json:"in_queue"`
	Done         int `json:"done"`
}

// AgentMetrics is the per-agent record carried in both snapshots and the
// post-run analytics bundle.
type AgentMetrics struct {
	ID                      int64  `json:"id"`
	Type                    string `json:"type"`
	Speed                   string `json:"speed"`
	Patience                float64 `json:"patience"`
	ItemsLeft               int    `json:"items_left"`
	ItemsTotal              int    `json:"items_total"`
	ShoppingDone            bool   `json:"shopping_done"`
	InQueue                 bool   `json:"in_queue"`
	EntryTick               int    `json:"entry_tick"`
	StartTick               *int   `json:"start_tick,omitempty"`
	FinishTick              *int   `json:"finish_tick,omitempty"`
	TotalTime               *int   `json:"total_time,omitempty"`
	LastCheckoutServiceTime int    `json:"last_checkout_service_time,omitempty"`
}

// Snapshot is the strict per-tick schema sent to observers: grid cells,
// per-checkout queue state, and aggregate/per-agent statistics.
type Snapshot struct {
	Rows    int            `json:"rows"`
	Cols    int            `json:"cols"`
	Cells   [][]CellRecord `json:"cells"`
	Stats   Stats          `json:"stats"`
	Agents  []AgentMetrics `json:"agents"`
	Console string         `json:"console,omitempty"`
	Final   bool           `json:"final"`
}

// Build projects an engine's current state into a Snapshot. withConsole
// additionally renders a textual grid for terminal/log observers.
func Build(e *engine.Engine, withConsole bool, final bool) Snapshot {
	grid := e.Grid()
	s := Snapshot{
		Rows:  grid.Rows,
		Cols:  grid.Cols,
		Cells: make([][]CellRecord, grid.Rows),
		Final: final,
	}

	agentByID := map[gridworld.AgentID]*agent.Agent{}
	agentsByPos := map[gridworld.Position][]*agent.Agent{}
	for _, a := range e.Roster() {
		agentByID[a.ID] = a
		if a.Pos != nil {
			agentsByPos[*a.Pos] = append(agentsByPos[*a.Pos], a)
		}
	}

	grid.EachCell(func(pos gridworld.Position, cell *gridworld.Cell) {
		if s.Cells[pos.Row] == nil {
			s.Cells[pos.Row] = make([]CellRecord, grid.Cols)
		}
		rec := CellRecord{
			Kind:      cell.Kind.String(),
			Capacity:  cell.Capacity,
			Occupancy: len(cell.Occupants),
			Category:  cell.Category,
			ProductID: cell.ProductID,
		}
		for _, a := range agentsByPos[pos] {
			rec.Occupants = append(rec.Occupants, occupantRecord(a))
		}
		for _, id := range cell.Queue {
			rec.Queue = append(rec.Queue, queueRecord(agentByID[id], id))
		}
		s.Cells[pos.Row][pos.Col] = rec
	})

	s.Stats = buildStats(e)
	for _, a := range e.Roster() {
		s.Agents = append(s.Agents, agentMetrics(a))
	}
	if withConsole {
		s.Console = RenderConsole(grid)
	}
	return s
}

func occupantRecord(a *agent.Agent) OccupantRecord {
	return OccupantRecord{
		ID:           int64(a.ID),
		Type:         a.Type.String(),
		Speed:        a.Speed.String(),
		Patience:     a.Patience,
		ItemsLeft:    len(a.List),
		ShoppingDone: a.ShoppingDone,
		Path:         a.Path,
	}
}

func queueRecord(a *agent.Agent, id gridworld.AgentID) QueueRecord {
	if a == nil {
		return QueueRecord{ID: int64(id)}
	}
	return QueueRecord{
		ID:         int64(a.ID),
		Type:       a.Type.String(),
		Speed:      a.Speed.String(),
		Patience:   a.Patience,
		TimeWaited: a.WaitTime,
	}
}

func buildStats(e *engine.Engine) Stats {
	stats := Stats{Tick: e.Tick(), TotalAgents: len(e.Roster())}
	for _, a := range e.Roster() {
		if a.Pos != nil && !a.ShoppingDone {
			stats.ActiveAgents++
		}
		if a.InQueue {
			stats.InQueue++
		} else if a.Pos != nil && !a.ShoppingDone {
			stats.ShoppingNow++
		}
		if a.ShoppingDone {
			stats.Done++
		}
	}
	return stats
}

func agentMetrics(a *agent.Agent) AgentMetrics {
	m := AgentMetrics{
		ID:                      int64(a.ID),
		Type:                    a.Type.String(),
		Speed:                   a.Speed.String(),
		Patience:                a.Patience,
		ItemsLeft:               len(a.List),
		ItemsTotal:              a.ItemsTotal,
		ShoppingDone:            a.ShoppingDone,
		InQueue:                 a.InQueue,
		EntryTick:               a.EntryTick,
		StartTick:               a.StartTick,
		FinishTick:              a.FinishTick,
		LastCheckoutServiceTime: a.CheckoutTime,
	}
	if m.StartTick != nil && m.FinishTick != nil {
		total := *m.FinishTick - *m.StartTick
		m.TotalTime = &total
	}
	return m
}

// RenderConsole renders a plain-text grid: one character per cell, rows
// separated by newlines. Symbols are fixed here, independent of any
// map-file symbol table: '.' aisle, 'S' shelf, 'C' checkout, 'E' entrance,
// 'X' exit, '#' obstacle.
func RenderConsole(g *gridworld.Grid) string {
	var b strings.Builder
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			b.WriteByte(symbolFor(g.Cells[r][c].Kind))
		}
		if r < g.Rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func symbolFor(k gridworld.Kind) byte {
	switch k {
	case gridworld.Shelf:
		return 'S'
	case gridworld.Checkout:
		return 'C'
	case gridworld.Entrance:
		return 'E'
	case gridworld.Exit:
		return 'X'
	case gridworld.Obstacle:
		return '#'
	default:
		return '.'
	}
}

// CheckoutSummary is one checkout's full per-tick time series, for
// post-run analytics.
type CheckoutSummary struct {
	Position gridworld.Position         `json:"position"`
	Series   []engine.TelemetrySample `json:"series"`
}

// AnalyticsBundle is the post-run export: every checkout's time series and
// every agent's final metrics.
type AnalyticsBundle struct {
	Checkouts []CheckoutSummary `json:"checkouts"`
	Agents    []AgentMetrics    `json:"agents"`
}

// BuildAnalytics assembles the post-run bundle from a finished (or
// in-progress) engine.
func BuildAnalytics(e *engine.Engine) AnalyticsBundle {
	bundle := AnalyticsBundle{}
	for _, pos := range e.Checkouts() {
		bundle.Checkouts = append(bundle.Checkouts, CheckoutSummary{
			Position: pos,
			Series:   e.CheckoutSeries(pos),
		})
	}
	for _, a := range e.Roster() {
		bundle.Agents = append(bundle.Agents, agentMetrics(a))
	}
	return bundle
}
