package mapdb

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFlagSetJSONSorted(t *testing.T) {
	fs := NewFlagSet("road", "exit", "climb")
	data, err := json.Marshal(fs)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `["climb","exit","road"]` {
		t.Errorf("Marshal = %s", data)
	}
	var back FlagSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(fs) {
		t.Errorf("round trip = %v", back)
	}
}

func TestFlagSetOps(t *testing.T) {
	fs := NewFlagSet("exit")
	fs.Add("door")
	fs.Remove("exit")
	if !fs.Has("door") || fs.Has("exit") {
		t.Errorf("flags = %v", fs)
	}
	clone := fs.Clone()
	clone.Add("hidden")
	if fs.Has("hidden") {
		t.Error("Clone shares storage")
	}
	if got := NewFlagSet("b", "a").String(); got != "a, b" {
		t.Errorf("String = %q", got)
	}
}

func TestNewExitImplicitFlag(t *testing.T) {
	ex := NewExit()
	if ex.To != ToUndefined || !ex.ExitFlags.Has("exit") {
		t.Errorf("NewExit = %+v", ex)
	}
}

func TestNewRoomDefaults(t *testing.T) {
	r := NewRoom("5")
	for name, value := range map[string]string{
		"terrain": r.Terrain, "light": r.Light, "align": r.Align,
		"portable": r.Portable, "ridable": r.Ridable, "sundeath": r.Sundeath,
	} {
		if value != "undefined" {
			t.Errorf("%s = %q, want undefined", name, value)
		}
	}
	if r.HasCoordinates {
		t.Error("new room has coordinates")
	}
}

func TestManhattanDistance(t *testing.T) {
	a, b := NewRoom("1"), NewRoom("2")
	a.X, a.Y, a.Z = 1, 2, 3
	b.X, b.Y, b.Z = -1, 5, 3
	if got := a.ManhattanDistance(b); got != 5 {
		t.Errorf("ManhattanDistance = %d, want 5", got)
	}
}

func TestRoomInfo(t *testing.T) {
	r := NewRoom("9")
	r.Name = "The Prancing Pony"
	r.Note = "good beer"
	ex := NewExit()
	ex.To = "10"
	ex.Door = "gate"
	ex.ExitFlags.Add("door")
	r.Exits[West] = ex

	info := r.Info()
	for _, want := range []string{
		"vnum: '9'",
		"Name: 'The Prancing Pony'",
		"Note: 'good beer'",
		"Direction: 'west'",
		"To: '10'",
		"Door Name: 'gate'",
	} {
		if !strings.Contains(info, want) {
			t.Errorf("Info missing %q:\n%s", want, info)
		}
	}
}
