package snapshot

import (
	"math/rand"
	"strings"
	"testing"

	"groceria/agent"
	"groceria/distributions"
	"groceria/engine"
	"groceria/gridworld"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBuildReflectsEngineState(t *testing.T) {
	Convey("Given an engine with one agent mid-shop", t, func() {
		g := gridworld.BuildReferenceStore(10, 12)
		rng := rand.New(rand.NewSource(1))
		e := engine.New(g, rng, 50)
		a := agent.New(1, distributions.Solo, distributions.Fast, 0.5, 0)
		a.AssignList(g.Products(), rng)
		e.AddAgent(a, 0)

		e.Step()

		Convey("The snapshot's dimensions match the grid", func() {
			snap := Build(e, false, false)
			So(snap.Rows, ShouldEqual, g.Rows)
			So(snap.Cols, ShouldEqual, g.Cols)
			So(len(snap.Cells), ShouldEqual, g.Rows)
			So(len(snap.Cells[0]), ShouldEqual, g.Cols)
		})

		Convey("Stats count the one active agent", func() {
			snap := Build(e, false, false)
			So(snap.Stats.TotalAgents, ShouldEqual, 1)
			So(snap.Stats.ActiveAgents, ShouldEqual, 1)
			So(snap.Stats.Tick, ShouldEqual, e.Tick())
		})

		Convey("The console rendering has one row per grid row", func() {
			snap := Build(e, true, false)
			So(snap.Console, ShouldNotBeEmpty)
			So(len(strings.Split(snap.Console, "\n")), ShouldEqual, g.Rows)
		})

		Convey("A final snapshot carries the final marker", func() {
			snap := Build(e, false, true)
			So(snap.Final, ShouldBeTrue)
		})
	})
}

func TestBuildAnalyticsCoversEveryCheckout(t *testing.T) {
	Convey("Given an engine run to completion with one agent", t, func() {
		g := gridworld.BuildReferenceStore(10, 12)
		rng := rand.New(rand.NewSource(2))
		e := engine.New(g, rng, 200)
		a := agent.New(1, distributions.Solo, distributions.Fast, 0.5, 0)
		a.AssignList(g.Products(), rng)
		e.AddAgent(a, 0)
		e.Run(nil)

		Convey("The bundle has one series per checkout and one agent record", func() {
			bundle := BuildAnalytics(e)
			So(len(bundle.Checkouts), ShouldEqual, len(g.Checkouts()))
			So(len(bundle.Agents), ShouldEqual, 1)
			So(bundle.Agents[0].ShoppingDone, ShouldBeTrue)
		})
	})
}
