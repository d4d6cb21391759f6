// Package engine drives the tick loop: spawning scheduled arrivals, running
// every agent's decision step, servicing checkout queues, and recording
// per-checkout telemetry. The engine is the sole owner of the grid, the
// agent roster and the random source — nothing here runs concurrently with
// a tick (see the session package for the suspension points around it).
package engine

import (
	"math/rand"

	"groceria/agent"
	"groceria/distributions"
	"groceria/gridworld"
)

// Arrival pairs a scheduled tick with the agent that should be placed at
// the Entrance when the engine reaches it. The engine trusts that arrivals
// are appended in non-decreasing Tick order — the session controller is
// responsible for building the schedule that way.
type Arrival struct {
	Tick  int
	Agent *agent.Agent
}

// TelemetrySample is one tick's observation of a single checkout.
type TelemetrySample struct {
	Tick        int
	Occupied    bool
	QueueLength int
}

type checkoutState struct {
	remaining int
}

// Engine owns the grid, the agent roster, the arrival schedule and the
// per-checkout service timers for one simulation run.
type Engine struct {
	grid     *gridworld.Grid
	rng      *rand.Rand
	maxTicks int
	tick     int

	roster     []*agent.Agent
	agentByID  map[gridworld.AgentID]*agent.Agent
	arrivals   []Arrival
	arrivalIdx int

	checkoutOrder  []gridworld.Position
	checkoutState  map[gridworld.Position]*checkoutState
	checkoutSeries map[gridworld.Position][]TelemetrySample

	entrancePos gridworld.Position
	hasEntrance bool
	exitPos     gridworld.Position
	hasExit     bool
}

// New constructs an engine over an already-built grid. The grid's
// Entrance/Exit positions, if present, are resolved once up front.
func New(grid *gridworld.Grid, rng *rand.Rand, maxTicks int) *Engine {
	e := &Engine{
		grid:           grid,
		rng:            rng,
		maxTicks:       maxTicks,
		agentByID:      map[gridworld.AgentID]*agent.Agent{},
		checkoutOrder:  grid.Checkouts(),
		checkoutState:  map[gridworld.Position]*checkoutState{},
		checkoutSeries: map[gridworld.Position][]TelemetrySample{},
	}
	for _, pos := range e.checkoutOrder {
		e.checkoutState[pos] = &checkoutState{}
	}
	if pos, ok := grid.FindKind(gridworld.Entrance); ok {
		e.entrancePos, e.hasEntrance = pos, true
	}
	if pos, ok := grid.FindKind(gridworld.Exit); ok {
		e.exitPos, e.hasExit = pos, true
	}
	return e
}

// Grid satisfies agent.World.
func (e *Engine) Grid() *gridworld.Grid { return e.grid }

// Rng satisfies agent.World.
func (e *Engine) Rng() *rand.Rand { return e.rng }

// Tick returns the current tick counter (0 at construction).
func (e *Engine) Tick() int { return e.tick }

// Roster returns the full agent roster, in the stable ascending-id order
// they were added.
func (e *Engine) Roster() []*agent.Agent { return e.roster }

// CheckoutSeries returns the recorded per-tick telemetry for a checkout
// position, for post-run analytics.
func (e *Engine) CheckoutSeries(pos gridworld.Position) []TelemetrySample {
	return e.checkoutSeries[pos]
}

// Checkouts returns every checkout position, in the row-major order
// servicing uses.
func (e *Engine) Checkouts() []gridworld.Position { return e.checkoutOrder }

// AddAgent registers an agent with the roster and schedules its arrival.
// Callers must add agents in ascending id and non-decreasing entryTick
// order — the engine does not re-sort either sequence.
func (e *Engine) AddAgent(ag *agent.Agent, entryTick int) {
	e.roster = append(e.roster, ag)
	e.agentByID[ag.ID] = ag
	e.arrivals = append(e.arrivals, Arrival{Tick: entryTick, Agent: ag})
}

// FindBestCheckout satisfies agent.World: it ranks checkouts counting, for
// each, agents not yet queued whose current target is that checkout.
func (e *Engine) FindBestCheckout(from gridworld.Position) (gridworld.Position, bool) {
	return e.grid.FindBestCheckout(from, e.headingCount)
}

func (e *Engine) headingCount(pos gridworld.Position) int {
	count := 0
	for _, a := range e.roster {
		if a.InQueue || a.ShoppingDone || a.Target == nil {
			continue
		}
		if *a.Target == pos {
			count++
		}
	}
	return count
}

// AllDone reports whether every registered agent has finished shopping.
func (e *Engine) AllDone() bool {
	for _, a := range e.roster {
		if !a.ShoppingDone {
			return false
		}
	}
	return true
}

// PendingArrivals reports whether any scheduled agent has not yet spawned.
func (e *Engine) PendingArrivals() bool {
	return e.arrivalIdx < len(e.arrivals)
}

// Done reports whether the run should stop: tick >= maxTicks, or no
// pending arrivals and every agent has finished shopping.
func (e *Engine) Done() bool {
	if e.tick >= e.maxTicks {
		return true
	}
	return !e.PendingArrivals() && e.AllDone()
}

// Step advances the simulation by exactly one tick, in the fixed order:
// spawn due arrivals, run every agent's decision step, service checkouts,
// record telemetry, then increment the tick counter.
func (e *Engine) Step() {
	e.spawnDueArrivals()
	e.runAgentSteps()
	e.serviceCheckouts()
	e.recordTelemetry()
	e.tick++
}

func (e *Engine) spawnDueArrivals() {
	for e.arrivalIdx < len(e.arrivals) && e.arrivals[e.arrivalIdx].Tick == e.tick {
		ag := e.arrivals[e.arrivalIdx].Agent
		e.arrivalIdx++
		if !e.hasEntrance {
			continue
		}
		ag.PlaceAt(e.entrancePos)
		_ = e.grid.PlaceAgent(ag.ID, e.entrancePos)
		startTick := e.tick
		ag.StartTick = &startTick
	}
}

func (e *Engine) runAgentSteps() {
	for _, a := range e.roster {
		a.Step(e)
	}
}

// serviceCheckouts advances every checkout's service timer by one tick,
// assigning a fresh service time whenever a newly-nonempty queue reaches
// the head with no timer running, and dequeuing the head once its timer
// expires — in the same tick it reaches zero.
func (e *Engine) serviceCheckouts() {
	for _, pos := range e.checkoutOrder {
		cell := e.grid.Cell(pos)
		state := e.checkoutState[pos]
		if cell == nil || len(cell.Queue) == 0 {
			continue
		}

		if state.remaining == 0 {
			headID := cell.Queue[0]
			head := e.agentByID[headID]
			serviceTime := 1
			if head != nil {
				serviceTime = 1 + head.ItemsTotal + distributions.SampleServiceNoise(e.rng)
				if serviceTime < 1 {
					serviceTime = 1
				}
				head.CheckoutTime = serviceTime
			}
			state.remaining = serviceTime
		}

		state.remaining--
		if state.remaining <= 0 {
			headID, ok := e.grid.DequeueHead(pos)
			state.remaining = 0
			if !ok {
				continue
			}
			head := e.agentByID[headID]
			if head == nil {
				continue
			}
			head.InQueue = false
			head.ShoppingDone = true
			finishTick := e.tick
			head.FinishTick = &finishTick

			dest := e.exitPos
			if !e.hasExit {
				dest = e.entrancePos
			}
			if e.hasExit || e.hasEntrance {
				head.PlaceAt(dest)
				_ = e.grid.PlaceAgent(headID, dest)
			}
		}
	}
}

func (e *Engine) recordTelemetry() {
	for _, pos := range e.checkoutOrder {
		cell := e.grid.Cell(pos)
		state := e.checkoutState[pos]
		sample := TelemetrySample{Tick: e.tick, Occupied: state.remaining > 0, QueueLength: 0}
		if cell != nil {
			sample.QueueLength = len(cell.Queue)
		}
		e.checkoutSeries[pos] = append(e.checkoutSeries[pos], sample)
	}
}

// Run steps the engine until Done, invoking onTick (if non-nil) after
// every completed tick — the hook the session controller uses to emit
// snapshots and honor pause/step/stop between ticks.
func (e *Engine) Run(onTick func(*Engine)) {
	for !e.Done() {
		e.Step()
		if onTick != nil {
			onTick(e)
		}
	}
}
