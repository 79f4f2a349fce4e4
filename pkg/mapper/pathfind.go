package mapper

import (
	"container/heap"
	"fmt"
	"strings"

	"github.com/arda-maps/gomapper/pkg/mapdb"
)

// PathError is the non-fatal result of a failed path request.
type PathError struct {
	Target string
	Reason string // "not found" or "unreachable"
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path to %q: %s", e.Target, e.Reason)
}

// pqItem is one heap entry: cumulative cost, insertion sequence for
// deterministic tie-breaks, and the room it reaches.
type pqItem struct {
	cost float64
	seq  int
	vnum string
}

type pathQueue []pqItem

func (q pathQueue) Len() int { return len(q) }
func (q pathQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].seq < q[j].seq
}
func (q pathQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *pathQueue) Push(x interface{}) { *q = append(*q, x.(pqItem)) }
func (q *pathQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

type parentLink struct {
	from string
	dir  mapdb.Direction
}

// FindPath runs a shortest-path search from the current room to target (a
// vnum or label). Every edge costs 1 except road/climb exits, which use the
// configured discount. Exits whose destination terrain is in avoidTerrains
// are excluded outright, as are random/special/avoid exits and rooms flagged
// avoid (except as the explicit target). Ties break in north, east, south,
// west, up, down order. The returned steps are in execution order and
// include "open <door> <dir>" entries before door exits.
func (s *Session) FindPath(target string, avoidTerrains map[string]bool) ([]string, error) {
	if s.Current == nil {
		return nil, &PathError{Target: target, Reason: "the mapper has no location; use the sync command first"}
	}
	dest, err := s.World.Resolve(target)
	if err != nil {
		return nil, &PathError{Target: target, Reason: "not found"}
	}
	if dest == s.Current {
		return nil, &PathError{Target: target, Reason: "you are already there"}
	}

	parents := make(map[string]parentLink)
	best := map[string]float64{s.Current.Vnum: 0}
	seq := 0
	open := &pathQueue{{cost: 0, seq: 0, vnum: s.Current.Vnum}}
	heap.Init(open)

	for open.Len() > 0 {
		item := heap.Pop(open).(pqItem)
		if item.cost > best[item.vnum] {
			continue // stale entry
		}
		if item.vnum == dest.Vnum {
			return s.collectSteps(parents, dest.Vnum), nil
		}
		room := s.World.Rooms[item.vnum]
		for _, dir := range mapdb.AllDirections {
			ex, ok := room.Exits[dir]
			if !ok || !s.usableExit(ex, avoidTerrains, dest.Vnum) {
				continue
			}
			cost := item.cost + 1
			if ex.ExitFlags.Has("road") || ex.ExitFlags.Has("climb") {
				cost = item.cost + s.Cfg.RoadDiscount
			}
			if prev, seen := best[ex.To]; seen && prev <= cost {
				continue
			}
			best[ex.To] = cost
			parents[ex.To] = parentLink{from: item.vnum, dir: dir}
			seq++
			heap.Push(open, pqItem{cost: cost, seq: seq, vnum: ex.To})
		}
	}
	return nil, &PathError{Target: target, Reason: "unreachable"}
}

// usableExit applies the planning exclusions. destVnum is the explicit
// target, which an avoid-flagged room may still be.
func (s *Session) usableExit(ex *mapdb.Exit, avoidTerrains map[string]bool, destVnum string) bool {
	if ex.To == mapdb.ToUndefined || ex.To == mapdb.ToDeath {
		return false
	}
	if ex.ExitFlags.Has("random") || ex.ExitFlags.Has("special") || ex.ExitFlags.Has("avoid") {
		return false
	}
	neighbor, ok := s.World.Rooms[ex.To]
	if !ok {
		return false
	}
	if avoidTerrains[neighbor.Terrain] {
		return false
	}
	if neighbor.Avoid && neighbor.Vnum != destVnum {
		return false
	}
	return true
}

// collectSteps walks the parent chain back to the origin and renders the
// forward step list.
func (s *Session) collectSteps(parents map[string]parentLink, destVnum string) []string {
	var reversed []string
	vnum := destVnum
	for vnum != s.Current.Vnum {
		link := parents[vnum]
		from := s.World.Rooms[link.from]
		ex := from.Exits[link.dir]
		reversed = append(reversed, link.dir.String())
		if ex.ExitFlags.Has("door") {
			door := ex.Door
			if door == "" {
				door = "exit"
			}
			reversed = append(reversed, fmt.Sprintf("open %s %s", door, link.dir))
		}
		vnum = link.from
	}
	steps := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		steps = append(steps, reversed[i])
	}
	return steps
}

// ParseAvoidFlags turns path command flags ("nowater|norapids") into a
// terrain avoidance set. Unknown flags are reported back as an error.
func ParseAvoidFlags(flags []string) (map[string]bool, error) {
	avoid := make(map[string]bool)
	for _, flag := range flags {
		flag = strings.TrimSpace(strings.ToLower(flag))
		if flag == "" {
			continue
		}
		terrain := strings.TrimPrefix(flag, "no")
		if terrain == flag || !containsTerrain(terrain) {
			return nil, fmt.Errorf("unknown avoidance flag %q", flag)
		}
		avoid[terrain] = true
	}
	return avoid, nil
}

func containsTerrain(terrain string) bool {
	for _, t := range mapdb.ValidTerrains {
		if t == terrain {
			return true
		}
	}
	return false
}

// Speedwalk renders a step list in the compressed speedwalk notation, e.g.
// "3 rooms. 2n, open door e, e".
func Speedwalk(steps []string) string {
	rooms := 0
	var parts []string
	var run []string
	flushRun := func() {
		i := 0
		for i < len(run) {
			j := i
			for j < len(run) && run[j] == run[i] {
				j++
			}
			if j-i == 1 {
				parts = append(parts, run[i][:1])
			} else {
				parts = append(parts, fmt.Sprintf("%d%s", j-i, run[i][:1]))
			}
			i = j
		}
		run = run[:0]
	}
	for _, step := range steps {
		if _, ok := mapdb.ParseDirection(step); ok && !strings.Contains(step, " ") {
			rooms++
			run = append(run, step)
			continue
		}
		flushRun()
		parts = append(parts, step)
	}
	flushRun()
	return fmt.Sprintf("%d rooms. %s", rooms, strings.Join(parts, ", "))
}

// walkNextDirection sends the next step of the auto-walk plan to the game.
// Non-direction steps (door opens) are sent back to back with the move they
// precede.
func (s *Session) walkNextDirection() {
	for len(s.walkQueue) > 0 {
		step := s.walkQueue[0]
		s.walkQueue = s.walkQueue[1:]
		if len(s.walkQueue) == 0 {
			s.output("Arriving at destination.")
			s.autoWalk = false
		}
		if dir, ok := mapdb.ParseDirection(step); ok && !strings.Contains(step, " ") {
			s.sendGame(dir.String()[:1])
			s.NoteSentMovement(dir)
			return
		}
		s.sendGame(step)
	}
}

// stopRun cancels an in-progress auto-walk. Observed at the next step
// boundary, never mid-command.
func (s *Session) stopRun() {
	s.autoWalk = false
	s.walkQueue = nil
}
