package session

import (
	"context"
	"testing"

	"groceria/gridworld"
	"groceria/snapshot"

	. "github.com/smartystreets/goconvey/convey"
)

func validConfig() *Config {
	return &Config{
		Day:       "monday",
		Hour:      10,
		Rows:      10,
		Cols:      12,
		NumClients: 2,
		MaxTicks:  50,
		TickDelay: 0,
		Seed:      7,
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	Convey("Given configs with individually invalid fields", t, func() {
		Convey("An unknown day is rejected", func() {
			cfg := validConfig()
			cfg.Day = "funday"
			So(Validate(cfg), ShouldNotBeNil)
		})

		Convey("An hour outside [0,23] is rejected", func() {
			cfg := validConfig()
			cfg.Hour = 24
			So(Validate(cfg), ShouldNotBeNil)
		})

		Convey("Grid dimensions below 4 are rejected", func() {
			cfg := validConfig()
			cfg.Rows = 2
			So(Validate(cfg), ShouldNotBeNil)
		})

		Convey("Non-positive max_ticks is rejected", func() {
			cfg := validConfig()
			cfg.MaxTicks = 0
			So(Validate(cfg), ShouldNotBeNil)
		})

		Convey("Out-of-range client patience override is rejected", func() {
			cfg := validConfig()
			p := 1.5
			cfg.Clients = []ClientOverride{{Patience: &p}}
			So(Validate(cfg), ShouldNotBeNil)
		})

		Convey("A fully valid config passes", func() {
			So(Validate(validConfig()), ShouldBeNil)
		})
	})
}

func TestControllerRunsToCompletion(t *testing.T) {
	Convey("Given a controller over the reference store", t, func() {
		cfg := validConfig()
		grid := gridworld.BuildReferenceStore(cfg.Rows, cfg.Cols)
		ctrl := New(cfg, grid)

		Convey("Run emits a final snapshot and the engine reaches Done", func() {
			var snaps []snapshot.Snapshot
			err := ctrl.Run(context.Background(), func(s snapshot.Snapshot) error {
				snaps = append(snaps, s)
				return nil
			}, false)
			So(err, ShouldBeNil)
			So(len(snaps), ShouldBeGreaterThan, 0)
			So(snaps[len(snaps)-1].Final, ShouldBeTrue)
			So(ctrl.Engine().Done(), ShouldBeTrue)
		})
	})
}

func TestControllerHonorsPauseStepStop(t *testing.T) {
	Convey("Given a controller with a stop command queued immediately", t, func() {
		cfg := validConfig()
		cfg.MaxTicks = 1000
		cfg.NumClients = 0
		grid := gridworld.BuildReferenceStore(cfg.Rows, cfg.Cols)
		ctrl := New(cfg, grid)

		ctrl.Commands() <- Command{Cmd: CmdPause}
		ctrl.Commands() <- Command{Cmd: CmdStep}
		ctrl.Commands() <- Command{Cmd: CmdStep}
		ctrl.Commands() <- Command{Cmd: CmdStop}

		Convey("The run stops promptly instead of running to max_ticks", func() {
			ticksSeen := 0
			err := ctrl.Run(context.Background(), func(s snapshot.Snapshot) error {
				ticksSeen++
				return nil
			}, false)
			So(err, ShouldBeNil)
			So(ctrl.Engine().Tick(), ShouldBeLessThan, cfg.MaxTicks)
		})
	})
}
