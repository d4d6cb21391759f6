// Package agent implements the per-shopper state machine: target selection,
// path planning, impatience-driven checkout switching, delay-gated movement
// and purchase attempts. Agents hold only their own state; all grid and
// roster queries go through the World interface, keeping agents ignorant of
// the engine that owns them.
package agent

import (
	"math"
	"math/rand"

	"groceria/distributions"
	"groceria/gridworld"
	"groceria/pathfind"
)

// ShoppingItem is one entry on an agent's list: a product category/id tied
// to the shelf position it can be purchased from.
type ShoppingItem struct {
	Category  string
	ProductID int
	ShelfPos  gridworld.Position
}

// World is the surface an Agent needs from its owner to decide and act.
// The engine implements it; agents never see more of the simulation than
// this.
type World interface {
	Grid() *gridworld.Grid
	// FindBestCheckout ranks checkouts from the given position, counting
	// agents already heading toward each one.
	FindBestCheckout(from gridworld.Position) (gridworld.Position, bool)
	Rng() *rand.Rand
}

// Agent is one shopper moving through the store.
type Agent struct {
	ID      gridworld.AgentID
	Type    distributions.ClientType
	Speed   distributions.SpeedClass
	Patience float64

	List       []ShoppingItem
	ItemsTotal int

	Pos    *gridworld.Position
	Target *gridworld.Position
	Path   []gridworld.Position

	MoveDelay     int
	delayCounter  int
	needsNewDelay bool

	WaitTime     int
	CheckoutTime int

	EntryTick  int
	StartTick  *int
	FinishTick *int

	ShoppingDone bool
	InQueue      bool
}

// New creates an agent positioned at nowhere in particular; callers place it
// on the grid (typically at an Entrance) before the first Step.
func New(id gridworld.AgentID, ctype distributions.ClientType, speed distributions.SpeedClass, patience float64, entryTick int) *Agent {
	return &Agent{
		ID:            id,
		Type:          ctype,
		Speed:         speed,
		Patience:      patience,
		EntryTick:     entryTick,
		needsNewDelay: true,
	}
}

// PlaceAt sets the agent's starting position, without going through
// Grid.MoveAgent (the caller is expected to have already placed it via
// Grid.PlaceAgent).
func (a *Agent) PlaceAt(pos gridworld.Position) {
	p := pos
	a.Pos = &p
}

// AssignList samples a shopping list from the store's available products:
// familia shoppers take 8-14 items, solo shoppers take round(Normal(5,2))
// clipped to [1,10], each capped at the number of distinct products on
// offer. Sampling is without replacement.
func (a *Agent) AssignList(products []gridworld.Product, rng *rand.Rand) {
	if len(products) == 0 {
		a.List = nil
		a.ItemsTotal = 0
		return
	}

	var num int
	if a.Type == distributions.Familia {
		num = 8 + rng.Intn(7)
	} else {
		num = clampInt(int(math.Round(rng.NormFloat64()*2+5)), 1, 10)
	}
	if num > len(products) {
		num = len(products)
	}

	perm := rng.Perm(len(products))
	list := make([]ShoppingItem, 0, num)
	for i := 0; i < num; i++ {
		p := products[perm[i]]
		list = append(list, ShoppingItem{Category: p.Category, ProductID: p.ProductID, ShelfPos: p.Pos})
	}
	a.List = list
	a.ItemsTotal = len(list)
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Step runs one tick of this agent's decision policy:
//
//  1. Agents that finished shopping, or are already queued at a checkout,
//     take no action beyond accruing wait time.
//  2. An agent with no current target chooses one (nearest list item, or
//     best checkout once the list is empty) and plans a path to it.
//  3. An agent heading to a checkout may switch to a less-loaded one, with
//     probability (1 - patience) * 0.3, if the candidate is meaningfully
//     better loaded.
//  4. If already standing at the target, attempt a purchase.
//  5. Then take one delay-gated step along the path, re-planning on
//     a blocked move with probability 0.2; if the step lands on the target,
//     attempt a purchase there too.
func (a *Agent) Step(w World) {
	if a.ShoppingDone {
		return
	}
	if a.InQueue {
		a.WaitTime++
		return
	}
	if a.Pos == nil {
		return
	}

	if a.Target == nil {
		a.chooseNextTarget(w)
		a.planPath(w)
	}

	a.reevaluateCheckout(w)

	if a.atTarget() {
		a.tryPurchaseAndAdvance(w)
	}

	if a.moveStep(w) && a.atTarget() {
		a.tryPurchaseAndAdvance(w)
	}
}

func (a *Agent) atTarget() bool {
	return a.Target != nil && a.Pos != nil && *a.Target == *a.Pos
}

// chooseNextTarget picks the nearest (Manhattan) unpurchased list item's
// shelf, or, once the list is empty, the best checkout.
func (a *Agent) chooseNextTarget(w World) {
	if len(a.List) > 0 {
		best := 0
		bestDist := gridworld.Manhattan(a.List[0].ShelfPos, *a.Pos)
		for i := 1; i < len(a.List); i++ {
			d := gridworld.Manhattan(a.List[i].ShelfPos, *a.Pos)
			if d < bestDist {
				bestDist = d
				best = i
			}
		}
		pos := a.List[best].ShelfPos
		a.Target = &pos
		return
	}

	if chk, ok := w.FindBestCheckout(*a.Pos); ok {
		a.Target = &chk
	} else {
		a.Target = nil
	}
}

// planPath computes a.Path toward a.Target. When the target is a Shelf
// cell, the target is rewritten to the access cell dictated by the shelf's
// Direction (or the best reachable neighbor, for Direction.None) — shelves
// are never walkable, so the agent's real destination is always the cell
// beside it.
func (a *Agent) planPath(w World) {
	if a.Target == nil || a.Pos == nil {
		a.Path = nil
		return
	}

	targetCell := w.Grid().Cell(*a.Target)
	if targetCell != nil && targetCell.Kind == gridworld.Shelf {
		path, access, ok := pathfind.FindPathToShelf(w.Grid(), *a.Pos, *a.Target, targetCell.Direction)
		if !ok {
			a.Target = nil
			a.Path = nil
			return
		}
		a.Target = &access
		a.Path = stripHead(path)
		return
	}

	path, ok := pathfind.FindPath(w.Grid(), *a.Pos, *a.Target)
	if !ok {
		a.Target = nil
		a.Path = nil
		return
	}
	a.Path = stripHead(path)
}

// stripHead drops the path's leading element (the agent's current
// position, which FindPath includes) so a.Path holds only remaining steps.
func stripHead(path []gridworld.Position) []gridworld.Position {
	if len(path) <= 1 {
		return nil
	}
	out := make([]gridworld.Position, len(path)-1)
	copy(out, path[1:])
	return out
}

// reevaluateCheckout implements impatience-driven checkout switching: an
// agent already heading to a checkout re-rolls with probability
// (1 - patience) * 0.3, and switches only if a candidate's queue is at
// least two shorter than the current target's.
func (a *Agent) reevaluateCheckout(w World) {
	if a.Target == nil || a.InQueue {
		return
	}
	targetCell := w.Grid().Cell(*a.Target)
	if targetCell == nil || targetCell.Kind != gridworld.Checkout {
		return
	}

	reevalProb := (1 - a.Patience) * 0.3
	if w.Rng().Float64() >= reevalProb {
		return
	}

	candidate, ok := w.FindBestCheckout(*a.Pos)
	if !ok || candidate == *a.Target {
		return
	}
	curLoad := w.Grid().QueueLen(*a.Target)
	newLoad := w.Grid().QueueLen(candidate)
	if newLoad < curLoad-1 {
		a.Target = &candidate
		a.planPath(w)
	}
}

// tryPurchaseAndAdvance attempts a purchase at the agent's current
// position; on success it clears the target, and if the list is now
// empty, immediately targets the best checkout.
func (a *Agent) tryPurchaseAndAdvance(w World) {
	if !a.attemptPurchase(w) {
		return
	}
	a.Target = nil
	a.Path = nil
	if len(a.List) == 0 {
		if chk, ok := w.FindBestCheckout(*a.Pos); ok {
			a.Target = &chk
			a.planPath(w)
		}
	}
}

// attemptPurchase removes a matching list entry if the agent's current
// cell is a Shelf carrying it, or if any neighboring cell is. Mirrors the
// access-cell convention set up by planPath: an agent normally lands on
// the aisle cell beside its target shelf, not on the shelf itself.
func (a *Agent) attemptPurchase(w World) bool {
	pos := *a.Pos
	if cell := w.Grid().Cell(pos); cell != nil && cell.Kind == gridworld.Shelf {
		if a.removeListItem(pos) {
			return true
		}
	}
	for _, nb := range w.Grid().Neighbors(pos) {
		cell := w.Grid().Cell(nb)
		if cell == nil || cell.Kind != gridworld.Shelf {
			continue
		}
		if a.removeListItem(nb) {
			return true
		}
	}
	return false
}

func (a *Agent) removeListItem(shelfPos gridworld.Position) bool {
	for i, item := range a.List {
		if item.ShelfPos == shelfPos {
			a.List = append(a.List[:i], a.List[i+1:]...)
			return true
		}
	}
	return false
}

// moveStep takes one delay-gated step along a.Path, if the agent's move
// counter has elapsed. move_delay is re-sampled after every successful
// step. On a blocked move it re-plans with probability 0.2. Reports
// whether a move actually happened this tick.
func (a *Agent) moveStep(w World) bool {
	if a.needsNewDelay {
		a.MoveDelay = distributions.SampleMoveDelay(w.Rng(), a.Type, a.Speed)
		a.needsNewDelay = false
	}
	if a.delayCounter < a.MoveDelay-1 {
		a.delayCounter++
		return false
	}
	a.delayCounter = 0

	if len(a.Path) == 0 {
		return false
	}
	next := a.Path[0]
	moved, _ := w.Grid().MoveAgent(a.ID, *a.Pos, next)
	if !moved {
		if w.Rng().Float64() < 0.2 {
			a.planPath(w)
		}
		return false
	}

	pos := next
	a.Pos = &pos
	a.Path = a.Path[1:]
	a.needsNewDelay = true
	if cell := w.Grid().Cell(next); cell != nil && cell.Kind == gridworld.Checkout {
		a.InQueue = true
	}
	return true
}
