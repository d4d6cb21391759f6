// Package pathfind implements A* shortest-path search over a gridworld.Grid,
// with the directional shelf-access rule described in the simulation spec:
// a shelf cannot be walked through, only approached from its configured
// Direction.
package pathfind

import (
	"container/heap"

	"groceria/gridworld"
)

func walkable(cell *gridworld.Cell) bool {
	return cell.Kind != gridworld.Obstacle && cell.Kind != gridworld.Shelf
}

func manhattan(a, b gridworld.Position) int {
	return abs(a.Row-b.Row) + abs(a.Col-b.Col)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// node is an entry in the A* open set.
type node struct {
	pos   gridworld.Position
	f     int
	order int // insertion order, for stable tie-breaking
}

type openSet []node

func (h openSet) Len() int { return len(h) }
func (h openSet) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].order < h[j].order
}
func (h openSet) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *openSet) Push(x interface{}) { *h = append(*h, x.(node)) }
func (h *openSet) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// FindPath returns the shortest walkable path from start to goal, inclusive
// of both endpoints, or false if unreachable. Shelf and Obstacle cells are
// never traversed, including as the goal itself — callers that need to
// reach a shelf must call FindPathToShelf instead.
func FindPath(g *gridworld.Grid, start, goal gridworld.Position) ([]gridworld.Position, bool) {
	if !g.InBounds(start) || !g.InBounds(goal) {
		return nil, false
	}
	startCell, goalCell := g.Cell(start), g.Cell(goal)
	if !walkable(startCell) || !walkable(goalCell) {
		return nil, false
	}
	if start == goal {
		return []gridworld.Position{start}, true
	}

	open := &openSet{}
	heap.Init(open)
	counter := 0
	heap.Push(open, node{pos: start, f: manhattan(start, goal), order: counter})

	cameFrom := map[gridworld.Position]gridworld.Position{}
	gScore := map[gridworld.Position]int{start: 0}
	visited := map[gridworld.Position]bool{}

	for open.Len() > 0 {
		cur := heap.Pop(open).(node)
		if visited[cur.pos] {
			continue
		}
		visited[cur.pos] = true

		if cur.pos == goal {
			return reconstruct(cameFrom, start, goal), true
		}

		for _, next := range g.Neighbors(cur.pos) {
			if !walkable(g.Cell(next)) {
				continue
			}
			tentative := gScore[cur.pos] + 1
			if existing, ok := gScore[next]; !ok || tentative < existing {
				gScore[next] = tentative
				cameFrom[next] = cur.pos
				counter++
				heap.Push(open, node{pos: next, f: tentative + manhattan(next, goal), order: counter})
			}
		}
	}
	return nil, false
}

func reconstruct(cameFrom map[gridworld.Position]gridworld.Position, start, goal gridworld.Position) []gridworld.Position {
	path := []gridworld.Position{goal}
	cur := goal
	for cur != start {
		prev, ok := cameFrom[cur]
		if !ok {
			break
		}
		path = append(path, prev)
		cur = prev
	}
	// reverse
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// AccessPosition returns the single neighbor of shelfPos from which dir
// permits interacting with the shelf. Returns false for gridworld.None,
// which has no single access position — callers should instead enumerate
// shelfPos's neighbors directly.
func AccessPosition(shelfPos gridworld.Position, dir gridworld.Direction) (gridworld.Position, bool) {
	if dir == gridworld.None {
		return gridworld.Position{}, false
	}
	dr, dc := dir.Delta()
	return gridworld.Position{Row: shelfPos.Row + dr, Col: shelfPos.Col + dc}, true
}

// FindPathToShelf plans a path from start to the cell adjacent to shelfPos
// dictated by dir, honoring the shelf's configured access direction. If dir
// is gridworld.None, every walkable neighbor of shelfPos is tried and the
// shortest resulting path is kept. The returned path ends at the access
// cell (never at the shelf itself, which is never walkable); the access
// cell actually reached is also returned, since for gridworld.None it may
// be any of several candidates.
func FindPathToShelf(g *gridworld.Grid, start, shelfPos gridworld.Position, dir gridworld.Direction) (path []gridworld.Position, access gridworld.Position, ok bool) {
	if dir != gridworld.None {
		accessPos, hasAccess := AccessPosition(shelfPos, dir)
		if !hasAccess || !g.InBounds(accessPos) {
			return nil, gridworld.Position{}, false
		}
		p, found := FindPath(g, start, accessPos)
		if !found {
			return nil, gridworld.Position{}, false
		}
		return p, accessPos, true
	}

	var bestPath []gridworld.Position
	var bestAccess gridworld.Position
	for _, nb := range g.Neighbors(shelfPos) {
		if !walkable(g.Cell(nb)) {
			continue
		}
		p, found := FindPath(g, start, nb)
		if !found {
			continue
		}
		if bestPath == nil || len(p) < len(bestPath) {
			bestPath = p
			bestAccess = nb
		}
	}
	if bestPath == nil {
		return nil, gridworld.Position{}, false
	}
	return bestPath, bestAccess, true
}
