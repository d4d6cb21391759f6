package session

import (
	"context"
	"math/rand"
	"time"

	"groceria/agent"
	"groceria/distributions"
	"groceria/engine"
	"groceria/gridworld"
	"groceria/snapshot"
)

// Command is a runtime control-plane message sent over the transport layer
// to pause, resume, single-step, stop, or retarget the tick delay of a
// running session. Unknown Cmd values are ignored.
type Command struct {
	Cmd   string  `json:"cmd"`
	Value float64 `json:"value,omitempty"`
}

const (
	CmdPause    = "pause"
	CmdResume   = "resume"
	CmdStep     = "step"
	CmdStop     = "stop"
	CmdSetSpeed = "set_speed"
)

// commandQueueSize bounds the single-producer/single-consumer command
// channel; the transport layer is the producer, Controller.Run the sole
// consumer, so engine state is never read or mutated outside the tick loop.
const commandQueueSize = 16

// Controller owns one run's engine and its runtime command channel. It is
// the only thing in this module with suspension points: between ticks, to
// honor tick delay and to poll for commands.
type Controller struct {
	cfg     *Config
	eng     *engine.Engine
	rng     *rand.Rand
	commands chan Command

	paused    bool
	stepOnce  bool
	stopped   bool
	tickDelay time.Duration
}

// New builds an engine over grid, samples its agents per cfg, schedules their arrivals,
// and returns a ready-to-run Controller. grid is the caller's choice of
// topology (the reference layout, or one loaded from a map file); its
// dimensions must match cfg.Rows/cfg.Cols.
func New(cfg *Config, grid *gridworld.Grid) *Controller {
	rng := rand.New(rand.NewSource(cfg.Seed))
	eng := engine.New(grid, rng, cfg.MaxTicks)

	day, _ := distributions.ParseDay(cfg.Day)
	products := grid.Products()
	clientCount := cfg.NumClients
	if clientCount == 0 {
		clientCount = distributions.ArrivalsPerHour(rng, day, cfg.Hour)
	}
	if clientCount < len(cfg.Clients) {
		clientCount = len(cfg.Clients)
	}

	entryTick := 0
	lambda := distributions.ArrivalRate(day, cfg.Hour) / 60.0
	for i := 0; i < clientCount; i++ {
		var override *ClientOverride
		if i < len(cfg.Clients) {
			override = &cfg.Clients[i]
		}
		ag := buildAgent(gridworld.AgentID(i+1), day, cfg.Hour, override, rng, entryTick)
		ag.AssignList(products, rng)
		eng.AddAgent(ag, entryTick)
		entryTick += distributions.InterarrivalTicks(rng, lambda)
	}

	return &Controller{
		cfg:       cfg,
		eng:       eng,
		rng:       rng,
		commands:  make(chan Command, commandQueueSize),
		tickDelay: time.Duration(cfg.TickDelay * float64(time.Second)),
	}
}

func buildAgent(id gridworld.AgentID, day distributions.Day, hour int, override *ClientOverride, rng *rand.Rand, entryTick int) *agent.Agent {
	ctype := distributions.SampleClientType(rng, day, hour)
	speed := distributions.SampleSpeedClass(rng, day, hour, ctype)
	patience := distributions.SamplePatience(rng)

	if override != nil {
		if override.Type == "solo" {
			ctype = distributions.Solo
		} else if override.Type == "familia" {
			ctype = distributions.Familia
		}
		switch override.Speed {
		case "fast":
			speed = distributions.Fast
		case "normal":
			speed = distributions.Normal
		case "calm":
			speed = distributions.Calm
		}
		if override.Patience != nil {
			patience = *override.Patience
		}
	}

	return agent.New(id, ctype, speed, patience, entryTick)
}

// Engine exposes the underlying engine for read-only inspection (tests,
// CLI summaries); the Controller remains the sole driver of its ticks.
func (c *Controller) Engine() *engine.Engine { return c.eng }

// Commands returns the channel the transport layer pushes runtime commands
// onto. It is buffered and single-producer/single-consumer by convention.
func (c *Controller) Commands() chan<- Command { return c.commands }

// Run drives the engine to completion, invoking emit after every tick that
// actually advances (including the no-op ticks spent paused, so observers
// still see the paused state) and once more with a final snapshot. emit
// returning an error is treated as an implicit stop. withConsole controls
// whether emitted snapshots carry a textual grid rendering.
func (c *Controller) Run(ctx context.Context, emit func(snapshot.Snapshot) error, withConsole bool) error {
	finalSent := false
	for {
		c.drainCommands()
		if c.stopped {
			break
		}

		if c.paused && !c.stepOnce {
			if err := emit(snapshot.Build(c.eng, withConsole, false)); err != nil {
				break
			}
			if !c.sleep(ctx) {
				break
			}
			continue
		}
		c.stepOnce = false

		c.eng.Step()
		final := c.eng.Done()
		if err := emit(snapshot.Build(c.eng, withConsole, final)); err != nil {
			break
		}
		if final {
			finalSent = true
			break
		}
		if !c.sleep(ctx) {
			break
		}
	}

	if !finalSent {
		_ = emit(snapshot.Build(c.eng, withConsole, true))
	}
	return nil
}

// sleep waits out the current tick delay, honoring cancellation. Tick
// delay can change between iterations (set_speed), so a plain timer is
// used rather than a fixed-period ticker — see DESIGN.md.
func (c *Controller) sleep(ctx context.Context) bool {
	if c.tickDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(c.tickDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Controller) drainCommands() {
	for {
		select {
		case cmd := <-c.commands:
			c.apply(cmd)
		default:
			return
		}
	}
}

func (c *Controller) apply(cmd Command) {
	switch cmd.Cmd {
	case CmdPause:
		c.paused = true
	case CmdResume:
		c.paused = false
	case CmdStep:
		c.stepOnce = true
	case CmdStop:
		c.stopped = true
	case CmdSetSpeed:
		if cmd.Value >= 0 {
			c.tickDelay = time.Duration(cmd.Value * float64(time.Second))
		}
	default:
		// Unknown commands are ignored.
	}
}

// Analytics assembles the post-run analytics bundle from the controller's
// engine; typically called once Run has returned.
func (c *Controller) Analytics() snapshot.AnalyticsBundle {
	return snapshot.BuildAnalytics(c.eng)
}
