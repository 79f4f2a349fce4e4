package mapper

import (
	"errors"
	"reflect"
	"strconv"
	"testing"

	"github.com/arda-maps/gomapper/pkg/mapdb"
)

// lineWorld builds rooms "0".."n-1" linked west-to-east.
func lineWorld(t *testing.T, n int) *mapdb.World {
	t.Helper()
	w := mapdb.NewWorld()
	for i := 0; i < n; i++ {
		vnum := strconv.Itoa(i)
		addRoom(t, w, vnum, "Room "+vnum, "Plain.")
	}
	for i := 0; i+1 < n; i++ {
		if err := w.LinkExit(strconv.Itoa(i), mapdb.East, strconv.Itoa(i+1), false); err != nil {
			t.Fatal(err)
		}
	}
	return w
}

func TestFindPathStraightLine(t *testing.T) {
	w := lineWorld(t, 3)
	s, _ := newTestSession(t, w)
	s.Current, s.State = w.Rooms["0"], Synced

	steps, err := s.FindPath("2", nil)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if want := []string{"east", "east"}; !reflect.DeepEqual(steps, want) {
		t.Errorf("steps = %v, want %v", steps, want)
	}
}

func TestFindPathAvoidedTerrainUnreachable(t *testing.T) {
	w := lineWorld(t, 3)
	w.Rooms["1"].Terrain = "water"
	s, _ := newTestSession(t, w)
	s.Current = w.Rooms["0"]

	avoid, err := ParseAvoidFlags([]string{"nowater"})
	if err != nil {
		t.Fatalf("ParseAvoidFlags: %v", err)
	}
	_, perr := s.FindPath("2", avoid)
	var pathErr *PathError
	if !errors.As(perr, &pathErr) || pathErr.Reason != "unreachable" {
		t.Errorf("err = %v, want unreachable PathError", perr)
	}
}

func TestFindPathErrors(t *testing.T) {
	w := lineWorld(t, 2)
	s, _ := newTestSession(t, w)

	if _, err := s.FindPath("1", nil); err == nil {
		t.Error("expected error without a current room")
	}
	s.Current = w.Rooms["0"]
	if _, err := s.FindPath("99", nil); err == nil {
		t.Error("expected error for unknown target")
	}
	if _, err := s.FindPath("0", nil); err == nil {
		t.Error("expected error for current room as target")
	}
}

func TestFindPathPrefersDiscountedRoads(t *testing.T) {
	// Direct: 0 -north-> 9 -north-> 3 (cost 2).
	// Road: 0 -east-> 1 -east-> 2 -east-> 3 (3 road edges).
	w := mapdb.NewWorld()
	for _, v := range []string{"0", "1", "2", "3", "9"} {
		addRoom(t, w, v, "Room "+v, "Plain.")
	}
	mustLink := func(from string, dir mapdb.Direction, to string) {
		t.Helper()
		if err := w.LinkExit(from, dir, to, false); err != nil {
			t.Fatal(err)
		}
	}
	mustLink("0", mapdb.North, "9")
	mustLink("9", mapdb.North, "3")
	mustLink("0", mapdb.East, "1")
	mustLink("1", mapdb.East, "2")
	mustLink("2", mapdb.East, "3")
	for _, from := range []string{"0", "1", "2"} {
		w.Rooms[from].Exits[mapdb.East].ExitFlags.Add("road")
	}

	s, _ := newTestSession(t, w)
	s.Current = w.Rooms["0"]

	// Default discount 0.75: road route costs 2.25, plain route wins.
	steps, err := s.FindPath("3", nil)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if want := []string{"north", "north"}; !reflect.DeepEqual(steps, want) {
		t.Errorf("steps = %v, want %v", steps, want)
	}

	s.Cfg.RoadDiscount = 0.5
	steps, err = s.FindPath("3", nil)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if want := []string{"east", "east", "east"}; !reflect.DeepEqual(steps, want) {
		t.Errorf("steps with discount 0.5 = %v, want %v", steps, want)
	}
}

func TestFindPathDirectionTieBreak(t *testing.T) {
	// Two equal-cost routes to the corner; north-first must win.
	w := mapdb.NewWorld()
	for _, v := range []string{"0", "1", "2", "3"} {
		addRoom(t, w, v, "Room "+v, "Plain.")
	}
	for _, link := range []struct {
		from string
		dir  mapdb.Direction
		to   string
	}{
		{"0", mapdb.North, "1"},
		{"0", mapdb.East, "2"},
		{"1", mapdb.East, "3"},
		{"2", mapdb.North, "3"},
	} {
		if err := w.LinkExit(link.from, link.dir, link.to, false); err != nil {
			t.Fatal(err)
		}
	}
	s, _ := newTestSession(t, w)
	s.Current = w.Rooms["0"]

	steps, err := s.FindPath("3", nil)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if want := []string{"north", "east"}; !reflect.DeepEqual(steps, want) {
		t.Errorf("steps = %v, want %v", steps, want)
	}
}

func TestFindPathSkipsFlaggedExitsAndAvoidRooms(t *testing.T) {
	w := lineWorld(t, 3)
	w.Rooms["0"].Exits[mapdb.East].ExitFlags.Add("random")
	s, _ := newTestSession(t, w)
	s.Current = w.Rooms["0"]
	if _, err := s.FindPath("2", nil); err == nil {
		t.Error("random exit was traversed")
	}
	w.Rooms["0"].Exits[mapdb.East].ExitFlags.Remove("random")

	w.Rooms["1"].Avoid = true
	if _, err := s.FindPath("2", nil); err == nil {
		t.Error("avoid room was used as an intermediate")
	}
	// An avoid room is still allowed as the explicit target.
	if _, err := s.FindPath("1", nil); err != nil {
		t.Errorf("avoid room rejected as target: %v", err)
	}
}

func TestFindPathOpensDoors(t *testing.T) {
	w := lineWorld(t, 2)
	ex := w.Rooms["0"].Exits[mapdb.East]
	ex.ExitFlags.Add("door")
	ex.Door = "gate"
	s, _ := newTestSession(t, w)
	s.Current = w.Rooms["0"]

	steps, err := s.FindPath("1", nil)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if want := []string{"open gate east", "east"}; !reflect.DeepEqual(steps, want) {
		t.Errorf("steps = %v, want %v", steps, want)
	}
}

func TestParseAvoidFlags(t *testing.T) {
	avoid, err := ParseAvoidFlags([]string{"nowater", "norapids"})
	if err != nil {
		t.Fatalf("ParseAvoidFlags: %v", err)
	}
	if !avoid["water"] || !avoid["rapids"] || len(avoid) != 2 {
		t.Errorf("avoid = %v", avoid)
	}
	if _, err := ParseAvoidFlags([]string{"nolava"}); err == nil {
		t.Error("expected error for unknown terrain")
	}
	if _, err := ParseAvoidFlags([]string{"water"}); err == nil {
		t.Error("expected error for flag without the no prefix")
	}
}

func TestSpeedwalk(t *testing.T) {
	tests := []struct {
		steps []string
		want  string
	}{
		{[]string{"north", "north", "east"}, "3 rooms. 2n, e"},
		{[]string{"north", "north", "open door east", "east"}, "3 rooms. 2n, open door east, e"},
		{[]string{"up"}, "1 rooms. u"},
	}
	for _, tt := range tests {
		if got := Speedwalk(tt.steps); got != tt.want {
			t.Errorf("Speedwalk(%v) = %q, want %q", tt.steps, got, tt.want)
		}
	}
}

func TestWalkQueueSendsSteps(t *testing.T) {
	w := lineWorld(t, 3)
	s, io := newTestSession(t, w)
	s.Current, s.State = w.Rooms["0"], Synced

	s.HandleUserInput("run 2")
	if got := io.sent; len(got) != 1 || got[0] != "e" {
		t.Fatalf("sent = %v, want first step e", got)
	}
	if s.State != Tentative {
		t.Errorf("state = %v, want Tentative after sent step", s.State)
	}
	// Confirm arrival in room 1; the prompt triggers the next step.
	feedRoom(s, "Room 1", "Plain.", "", "", "> ")
	if got := io.sent; len(got) != 2 || got[1] != "e" {
		t.Fatalf("sent = %v, want second step", got)
	}
	if !io.contains("Arriving at destination.") {
		t.Errorf("output = %v", io.out)
	}
	feedRoom(s, "Room 2", "Plain.", "", "", "> ")
	if len(io.sent) != 2 {
		t.Errorf("sent = %v, walker kept going past the destination", io.sent)
	}
}

func TestStopCancelsRun(t *testing.T) {
	w := lineWorld(t, 5)
	s, io := newTestSession(t, w)
	s.Current, s.State = w.Rooms["0"], Synced

	s.HandleUserInput("run 4")
	s.HandleUserInput("stop")
	if !io.contains("Run canceled!") {
		t.Errorf("output = %v", io.out)
	}
	feedRoom(s, "Room 1", "Plain.", "", "", "> ")
	if len(io.sent) != 1 {
		t.Errorf("sent = %v, steps continued after stop", io.sent)
	}
}
