package engine

import (
	"math/rand"
	"testing"

	"groceria/agent"
	"groceria/distributions"
	"groceria/gridworld"

	. "github.com/smartystreets/goconvey/convey"
)

func spawnAgent(e *Engine, id gridworld.AgentID, entryTick int, products []gridworld.Product, rng *rand.Rand) *agent.Agent {
	a := agent.New(id, distributions.Solo, distributions.Fast, 0.5, entryTick)
	a.AssignList(products, rng)
	e.AddAgent(a, entryTick)
	return a
}

func TestSingleAgentCompletesShopping(t *testing.T) {
	Convey("Given a single agent on the reference store layout", t, func() {
		g := gridworld.BuildReferenceStore(10, 12)
		rng := rand.New(rand.NewSource(1))
		e := New(g, rng, 200)
		a := spawnAgent(e, 1, 0, g.Products(), rng)

		Convey("It reaches EXIT with shopping_done and an empty list", func() {
			e.Run(nil)
			So(a.ShoppingDone, ShouldBeTrue)
			So(len(a.List), ShouldEqual, 0)
			So(a.FinishTick, ShouldNotBeNil)
			So(*a.StartTick, ShouldBeLessThanOrEqualTo, *a.FinishTick)
		})
	})
}

func TestManyAgentsRespectAisleCapacity(t *testing.T) {
	Convey("Given 20 agents on the reference store layout", t, func() {
		g := gridworld.BuildReferenceStore(10, 12)
		rng := rand.New(rand.NewSource(2))
		e := New(g, rng, 500)
		products := g.Products()
		for i := 0; i < 20; i++ {
			spawnAgent(e, gridworld.AgentID(i+1), i, products, rng)
		}

		Convey("No aisle cell ever exceeds capacity and all 20 finish", func() {
			violated := false
			e.Run(func(eng *Engine) {
				eng.Grid().EachCell(func(_ gridworld.Position, c *gridworld.Cell) {
					if c.Kind == gridworld.Aisle && len(c.Occupants) > c.Capacity {
						violated = true
					}
				})
			})
			So(violated, ShouldBeFalse)
			So(e.AllDone(), ShouldBeTrue)
		})
	})
}

func TestUnreachableCheckoutStaysEmpty(t *testing.T) {
	Convey("Given a checkout walled off entirely by obstacles", t, func() {
		g := gridworld.NewGrid(6, 6)
		g.Cells[0][0].Kind = gridworld.Entrance
		g.Cells[5][5].Kind = gridworld.Exit
		blockedCheckout := gridworld.Position{Row: 3, Col: 3}
		reachableCheckout := gridworld.Position{Row: 5, Col: 0}
		g.Cells[blockedCheckout.Row][blockedCheckout.Col].Kind = gridworld.Checkout
		g.Cells[reachableCheckout.Row][reachableCheckout.Col].Kind = gridworld.Checkout
		for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			g.Cells[blockedCheckout.Row+d[0]][blockedCheckout.Col+d[1]].Kind = gridworld.Obstacle
		}

		rng := rand.New(rand.NewSource(3))
		e := New(g, rng, 300)
		spawnAgent(e, 1, 0, nil, rng)

		Convey("The blocked checkout's queue length is always zero", func() {
			e.Run(nil)
			for _, sample := range e.CheckoutSeries(blockedCheckout) {
				So(sample.QueueLength, ShouldEqual, 0)
			}
		})
	})
}

func TestCheckoutReevaluationSwitchesUnderImbalance(t *testing.T) {
	Convey("Given an impatient agent targeting a heavily-queued checkout", t, func() {
		g := gridworld.NewGrid(5, 5)
		heavy := gridworld.Position{Row: 0, Col: 4}
		light := gridworld.Position{Row: 4, Col: 4}
		g.Cells[heavy.Row][heavy.Col].Kind = gridworld.Checkout
		g.Cells[light.Row][light.Col].Kind = gridworld.Checkout
		for i := 0; i < 5; i++ {
			g.Cells[heavy.Row][heavy.Col].Queue = append(g.Cells[heavy.Row][heavy.Col].Queue, gridworld.AgentID(100+i))
		}
		g.Cells[light.Row][light.Col].Queue = append(g.Cells[light.Row][light.Col].Queue, gridworld.AgentID(200))

		rng := rand.New(rand.NewSource(4))
		e := New(g, rng, 200)
		a := agent.New(1, distributions.Solo, distributions.Fast, 0.0, 0)
		a.PlaceAt(gridworld.Position{Row: 2, Col: 0})
		pos := heavy
		a.Target = &pos
		e.AddAgent(a, 0)

		Convey("Within 20 ticks it switches target to the lighter checkout", func() {
			switched := false
			for i := 0; i < 20; i++ {
				e.Step()
				if a.Target != nil && *a.Target != heavy {
					switched = true
					break
				}
			}
			So(switched, ShouldBeTrue)
		})
	})
}
