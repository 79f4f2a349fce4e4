package mapper

import (
	"strconv"
	"strings"
	"testing"

	"github.com/arda-maps/gomapper/pkg/mapdb"
)

func locate(r *mapdb.Room, x, y, z int) *mapdb.Room {
	r.X, r.Y, r.Z = x, y, z
	r.HasCoordinates = true
	return r
}

func TestFindOrdersFurthestToNearest(t *testing.T) {
	w := mapdb.NewWorld()
	here := locate(addRoom(t, w, "0", "Start", ""), 0, 0, 0)
	locate(addRoom(t, w, "1", "North Inn", ""), 0, 5, 0)
	locate(addRoom(t, w, "2", "South Inn", ""), 0, -2, 0)
	addRoom(t, w, "3", "Lost Inn", "") // no coordinates

	s, _ := newTestSession(t, w)
	s.Current = here

	hits := s.Find(fieldName, "inn")
	if len(hits) != 3 {
		t.Fatalf("hits = %d, want 3", len(hits))
	}
	// Unlocated first, then distance descending; the nearest hit is last.
	if hits[0].room.Vnum != "3" || hits[1].room.Vnum != "1" || hits[2].room.Vnum != "2" {
		t.Errorf("order = %s, %s, %s", hits[0].room.Vnum, hits[1].room.Vnum, hits[2].room.Vnum)
	}
}

func TestFindCapsAtTwentyNearest(t *testing.T) {
	w := mapdb.NewWorld()
	here := locate(addRoom(t, w, "0", "Start", ""), 0, 0, 0)
	for i := 1; i <= 25; i++ {
		locate(addRoom(t, w, strconv.Itoa(i), "Market Stall", ""), i, 0, 0)
	}
	s, _ := newTestSession(t, w)
	s.Current = here

	hits := s.Find(fieldName, "market")
	if len(hits) != 20 {
		t.Fatalf("hits = %d, want 20", len(hits))
	}
	if hits[0].distance != 20 || hits[len(hits)-1].distance != 1 {
		t.Errorf("distances = %d .. %d, want 20 .. 1", hits[0].distance, hits[len(hits)-1].distance)
	}
}

func TestFindFuzzyFallback(t *testing.T) {
	w := mapdb.NewWorld()
	addRoom(t, w, "1", "The Prancing Pony", "")
	s, _ := newTestSession(t, w)

	// No substring hit, but close enough for the fuzzy matcher.
	hits := s.Find(fieldName, "the prancing ponny")
	if len(hits) != 1 || hits[0].room.Vnum != "1" {
		t.Errorf("hits = %v", hits)
	}
}

func TestFindByDoorAndNote(t *testing.T) {
	w := mapdb.NewWorld()
	r := addRoom(t, w, "1", "Gatehouse", "")
	r.Note = "guards change at dusk"
	ex := mapdb.NewExit()
	ex.Door = "irongate"
	r.Exits[mapdb.North] = ex
	addRoom(t, w, "2", "Field", "")

	s, _ := newTestSession(t, w)
	hits := s.Find(fieldDoor, "iron")
	if len(hits) != 1 || hits[0].attribute != "north: irongate" {
		t.Errorf("door hits = %v", hits)
	}
	hits = s.Find(fieldNote, "dusk")
	if len(hits) != 1 || hits[0].room.Vnum != "1" {
		t.Errorf("note hits = %v", hits)
	}
}

func TestFindLabels(t *testing.T) {
	w := mapdb.NewWorld()
	addRoom(t, w, "1", "The Inn", "")
	addRoom(t, w, "2", "Stables", "")
	if err := w.SetLabel("inn", "1"); err != nil {
		t.Fatal(err)
	}
	if err := w.SetLabel("rest", "1"); err != nil {
		t.Fatal(err)
	}
	if err := w.SetLabel("horse", "2"); err != nil {
		t.Fatal(err)
	}
	s, _ := newTestSession(t, w)

	// Empty query lists every labeled room, once per room.
	hits := s.Find(fieldLabel, "")
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	hits = s.Find(fieldLabel, "inn")
	if len(hits) != 1 || hits[0].attribute != "inn, rest" {
		t.Errorf("hits = %v", hits)
	}
}

func TestRenderHits(t *testing.T) {
	w := mapdb.NewWorld()
	here := locate(addRoom(t, w, "0", "Start", ""), 0, 0, 0)
	locate(addRoom(t, w, "1", "The Inn", ""), 3, 0, 0)
	s, _ := newTestSession(t, w)
	s.Current = here

	got := s.renderHits(s.Find(fieldName, "inn"))
	if got != "The Inn, The Inn (1), 3 away" {
		t.Errorf("renderHits = %q", got)
	}
	if got := s.renderHits(nil); got != "Nothing found." {
		t.Errorf("renderHits(nil) = %q", got)
	}

	// Unlocated rooms print ? for the distance.
	addRoom(t, w, "2", "Hidden Inn", "")
	got = s.renderHits(s.Find(fieldName, "hidden"))
	if !strings.Contains(got, "? away") {
		t.Errorf("renderHits = %q", got)
	}
}

func TestLabelSearch(t *testing.T) {
	w := mapdb.NewWorld()
	addRoom(t, w, "17", "The Inn", "")
	if err := w.SetLabel("inn", "17"); err != nil {
		t.Fatal(err)
	}
	s, _ := newTestSession(t, w)
	if got := s.labelSearch("in"); got != "inn - The Inn - 17" {
		t.Errorf("labelSearch = %q", got)
	}
	if got := s.labelSearch("zzz"); got != "Nothing found." {
		t.Errorf("labelSearch = %q", got)
	}
}
