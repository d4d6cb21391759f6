package agent

import (
	"math/rand"
	"testing"

	"groceria/distributions"
	"groceria/gridworld"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeWorld is a minimal World for exercising an Agent in isolation: the
// grid is real, but checkout selection ignores in-flight agent targets
// (no roster to consult), matching what a single-agent scenario sees.
type fakeWorld struct {
	grid *gridworld.Grid
	rng  *rand.Rand
}

func (w *fakeWorld) Grid() *gridworld.Grid { return w.grid }
func (w *fakeWorld) Rng() *rand.Rand       { return w.rng }
func (w *fakeWorld) FindBestCheckout(from gridworld.Position) (gridworld.Position, bool) {
	return w.grid.FindBestCheckout(from, nil)
}

func runUntil(a *Agent, w *fakeWorld, maxTicks int, done func() bool) {
	for i := 0; i < maxTicks && !done(); i++ {
		a.Step(w)
	}
}

func TestAgentShelfPurchase(t *testing.T) {
	Convey("Given an agent with a one-item list next to a directional shelf", t, func() {
		g := gridworld.NewGrid(5, 5)
		g.Cells[2][2].Kind = gridworld.Shelf
		g.Cells[2][2].Direction = gridworld.Up
		g.Cells[2][2].Category = "dairy"
		g.Cells[2][2].ProductID = 7
		g.Cells[2][2].HasProduct = true
		// A checkout for the agent to head to once its list is empty.
		g.Cells[4][4].Kind = gridworld.Checkout

		w := &fakeWorld{grid: g, rng: rand.New(rand.NewSource(1))}

		a := New(1, distributions.Solo, distributions.Fast, 0.5, 0)
		a.PlaceAt(gridworld.Position{Row: 0, Col: 0})
		a.List = []ShoppingItem{{Category: "dairy", ProductID: 7, ShelfPos: gridworld.Position{Row: 2, Col: 2}}}
		a.ItemsTotal = 1

		Convey("The agent walks to the access cell and purchases the item", func() {
			runUntil(a, w, 200, func() bool { return len(a.List) == 0 })
			So(a.List, ShouldBeEmpty)
			So(*a.Pos, ShouldResemble, gridworld.Position{Row: 1, Col: 2})
		})

		Convey("After purchasing, it heads toward a checkout", func() {
			runUntil(a, w, 200, func() bool { return len(a.List) == 0 })
			a.Step(w)
			So(a.Target, ShouldNotBeNil)
			targetCell := g.Cell(*a.Target)
			So(targetCell.Kind, ShouldEqual, gridworld.Checkout)
		})
	})
}

func TestAgentReachesCheckoutAndQueues(t *testing.T) {
	Convey("Given an agent with an empty list and a checkout on the grid", t, func() {
		g := gridworld.NewGrid(5, 5)
		g.Cells[4][4].Kind = gridworld.Checkout

		w := &fakeWorld{grid: g, rng: rand.New(rand.NewSource(2))}
		a := New(1, distributions.Solo, distributions.Fast, 0.5, 0)
		a.PlaceAt(gridworld.Position{Row: 0, Col: 0})

		Convey("It walks to the checkout and joins its queue", func() {
			runUntil(a, w, 200, func() bool { return a.InQueue })
			So(a.InQueue, ShouldBeTrue)
			So(g.QueueLen(gridworld.Position{Row: 4, Col: 4}), ShouldEqual, 1)
		})

		Convey("Once queued, Step only accrues wait time", func() {
			runUntil(a, w, 200, func() bool { return a.InQueue })
			before := a.WaitTime
			posBefore := *a.Pos
			a.Step(w)
			So(a.WaitTime, ShouldEqual, before+1)
			So(*a.Pos, ShouldResemble, posBefore) // position frozen
		})
	})
}

func TestAgentBlockedMoveReplans(t *testing.T) {
	Convey("Given an agent whose path is blocked by a full aisle cell", t, func() {
		g := gridworld.NewGrid(3, 3)
		blocker := gridworld.AgentID(99)
		// Fill (0,1) to capacity so a move onto it fails.
		for i := 0; i < 4; i++ {
			g.Cells[0][1].Occupants = append(g.Cells[0][1].Occupants, blocker+gridworld.AgentID(i))
		}

		w := &fakeWorld{grid: g, rng: rand.New(rand.NewSource(3))}
		a := New(1, distributions.Solo, distributions.Fast, 0.9, 0)
		a.PlaceAt(gridworld.Position{Row: 0, Col: 0})
		a.Target = &gridworld.Position{Row: 0, Col: 2}
		a.Path = []gridworld.Position{{Row: 0, Col: 1}, {Row: 0, Col: 2}}

		Convey("The agent does not panic and remains in place when blocked", func() {
			for i := 0; i < 20; i++ {
				a.Step(w)
			}
			So(a.Pos, ShouldNotBeNil)
			So(*a.Pos, ShouldResemble, gridworld.Position{Row: 0, Col: 0})
		})
	})
}

func TestAssignListCapsToAvailableProducts(t *testing.T) {
	Convey("Given fewer products than a familia shopper would normally request", t, func() {
		a := New(1, distributions.Familia, distributions.Normal, 0.4, 0)
		rng := rand.New(rand.NewSource(4))
		products := []gridworld.Product{
			{Category: "dairy", ProductID: 1, Pos: gridworld.Position{Row: 1, Col: 2}},
			{Category: "dairy", ProductID: 2, Pos: gridworld.Position{Row: 2, Col: 2}},
		}

		Convey("The list never exceeds the product count", func() {
			a.AssignList(products, rng)
			So(len(a.List), ShouldBeLessThanOrEqualTo, len(products))
			So(a.ItemsTotal, ShouldEqual, len(a.List))
		})
	})
}
