package planner

import (
	"container/heap"

	"github.com/wricardo/mcp-training/coveragebot/game/grid"
)

// neighborOffsets is the fixed expansion order for 4-connected moves
var neighborOffsets = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// openNode is a frontier entry. Stale entries (superseded by a cheaper push)
// are skipped when popped.
type openNode struct {
	cell grid.Cell
	g    int
	f    int
	seq  int
}

// openSet orders frontier entries by f, then by insertion sequence
type openSet []openNode

func (o openSet) Len() int { return len(o) }

func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}

func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }

func (o *openSet) Push(x any) { *o = append(*o, x.(openNode)) }

func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	*o = old[:n-1]
	return item
}

// searchArena holds the per-call bookkeeping, indexed by grid.Index
type searchArena struct {
	cost   []int
	parent []int
	closed []bool
}

func newSearchArena(size int) *searchArena {
	a := &searchArena{
		cost:   make([]int, size),
		parent: make([]int, size),
		closed: make([]bool, size),
	}
	for i := range a.cost {
		a.cost[i] = -1
		a.parent[i] = -1
	}
	return a
}

// FindPath returns the waypoints leading from start to goal, excluding the
// start cell, in traversal order. It returns nil when the goal cannot be
// reached, lies outside the placement range, or equals start.
func FindPath(g grid.Grid, region *grid.Region, start, goal grid.Cell) []grid.Waypoint {
	if start == goal || !g.IsPlacement(start) || !g.IsPlacement(goal) {
		return nil
	}
	if g.IsFootprintForbidden(goal.Col, goal.Row, region) {
		return nil
	}

	arena := newSearchArena(g.Placements())
	open := &openSet{}
	seq := 0

	startIdx := g.Index(start)
	arena.cost[startIdx] = 0
	heap.Push(open, openNode{cell: start, g: 0, f: grid.ManhattanDistance(start, goal), seq: seq})
	seq++

	for open.Len() > 0 {
		current := heap.Pop(open).(openNode)
		idx := g.Index(current.cell)
		if arena.closed[idx] || current.g != arena.cost[idx] {
			continue
		}
		if current.cell == goal {
			return reconstruct(g, arena, start, goal)
		}
		arena.closed[idx] = true

		for _, off := range neighborOffsets {
			next := grid.Cell{Col: current.cell.Col + off[0], Row: current.cell.Row + off[1]}
			if !g.IsPlacement(next) {
				continue
			}
			if g.IsFootprintForbidden(next.Col, next.Row, region) {
				continue
			}
			nextIdx := g.Index(next)
			if arena.closed[nextIdx] {
				continue
			}
			tentative := current.g + 1
			if known := arena.cost[nextIdx]; known >= 0 && known <= tentative {
				continue
			}
			arena.cost[nextIdx] = tentative
			arena.parent[nextIdx] = idx
			heap.Push(open, openNode{
				cell: next,
				g:    tentative,
				f:    tentative + grid.ManhattanDistance(next, goal),
				seq:  seq,
			})
			seq++
		}
	}

	return nil
}

// reconstruct walks parent pointers from goal back to start
func reconstruct(g grid.Grid, arena *searchArena, start, goal grid.Cell) []grid.Waypoint {
	width := g.MaxCol() + 1
	startIdx := g.Index(start)

	path := make([]grid.Waypoint, 0, arena.cost[g.Index(goal)])
	for idx := g.Index(goal); idx != startIdx; idx = arena.parent[idx] {
		path = append(path, g.TileCenter(grid.Cell{Col: idx % width, Row: idx / width}))
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
