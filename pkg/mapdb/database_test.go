package mapdb

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestMapRoundTrip(t *testing.T) {
	w := NewWorld()
	room := NewRoom("1")
	room.Name = "Fountain Square"
	room.Desc = "A wide square.\nWater splashes."
	room.Terrain = "city"
	room.Light = "lit"
	room.MobFlags = NewFlagSet("shop", "rent")
	room.LoadFlags = NewFlagSet("water")
	room.X, room.Y, room.Z = 3, -2, 0
	room.HasCoordinates = true
	if err := w.AddRoom(room); err != nil {
		t.Fatal(err)
	}
	other := NewRoom("2")
	other.Name = "An Alley"
	other.Terrain = "city"
	if err := w.AddRoom(other); err != nil {
		t.Fatal(err)
	}
	if err := w.LinkExit("1", East, "2", false); err != nil {
		t.Fatal(err)
	}
	ex := w.Rooms["1"].Exits[East]
	ex.Door = "gate"
	ex.ExitFlags.Add("door")
	ex.DoorFlags.Add("hidden")

	path := filepath.Join(t.TempDir(), "map.json")
	if err := SaveMap(w, path); err != nil {
		t.Fatalf("SaveMap: %v", err)
	}
	loaded, err := LoadMap(path)
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if !reflect.DeepEqual(loaded.Rooms, w.Rooms) {
		t.Errorf("rooms diverge after round trip:\ngot  %+v\nwant %+v", loaded.Rooms["1"], w.Rooms["1"])
	}
}

func TestLoadLegacyMap(t *testing.T) {
	legacy := `{
		"0": {
			"name": "Cellar",
			"desc": "Dusty.",
			"dynamicDesc": "",
			"note": "",
			"terrain": "indoors",
			"mobFlags": ["smob"],
			"loadFlags": ["packhorse"],
			"x": 1, "y": 2, "z": 3,
			"exits": {
				"up": {"to": "1", "doorFlags": ["nopick"]}
			}
		},
		"1": {
			"name": "Shop",
			"desc": "",
			"dynamicDesc": "",
			"note": "",
			"terrain": "city",
			"exits": {}
		}
	}`
	path := writeFile(t, t.TempDir(), "legacy.json", legacy)
	w, err := LoadMap(path)
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	room := w.Rooms["0"]
	if room.Terrain != "building" {
		t.Errorf("terrain = %q, want building", room.Terrain)
	}
	if !room.MobFlags.Has("aggressive_mob") || !room.LoadFlags.Has("pack_horse") {
		t.Errorf("flags = %v / %v", room.MobFlags, room.LoadFlags)
	}
	if !room.HasCoordinates || room.X != 1 || room.Y != 2 || room.Z != 3 {
		t.Errorf("coordinates = %d,%d,%d (%v)", room.X, room.Y, room.Z, room.HasCoordinates)
	}
	ex := room.Exits[Up]
	if ex == nil || ex.To != "1" || !ex.DoorFlags.Has("no_pick") {
		t.Errorf("exit = %+v", ex)
	}
	if room.Light != "undefined" {
		t.Errorf("light = %q, want undefined", room.Light)
	}
}

// Enum attributes are open strings at the persistence layer: values this
// build does not know must survive a load/save cycle untouched.
func TestUnknownEnumValuePreserved(t *testing.T) {
	doc := `{
		"schema_version": 1,
		"0": {
			"name": "Lava Tube",
			"desc": "",
			"dynamicDesc": "",
			"note": "",
			"terrain": "lava",
			"exits": {}
		}
	}`
	dir := t.TempDir()
	path := writeFile(t, dir, "map.json", doc)
	w, err := LoadMap(path)
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if got := w.Rooms["0"].Terrain; got != "lava" {
		t.Errorf("terrain = %q, want lava", got)
	}
	out := filepath.Join(dir, "out.json")
	if err := SaveMap(w, out); err != nil {
		t.Fatalf("SaveMap: %v", err)
	}
	again, err := LoadMap(out)
	if err != nil {
		t.Fatalf("LoadMap after save: %v", err)
	}
	if got := again.Rooms["0"].Terrain; got != "lava" {
		t.Errorf("terrain after round trip = %q", got)
	}
}

func TestLoadUnsupportedSchema(t *testing.T) {
	path := writeFile(t, t.TempDir(), "map.json", `{"schema_version": 99}`)
	if _, err := LoadMap(path); !errors.Is(err, ErrUnsupportedSchema) {
		t.Errorf("err = %v, want ErrUnsupportedSchema", err)
	}
}

func TestLoadRejectsMalformedRoom(t *testing.T) {
	doc := `{"schema_version": 1, "0": {"name": 5}}`
	path := writeFile(t, t.TempDir(), "map.json", doc)
	var schemaErr *SchemaError
	if _, err := LoadMap(path); !errors.As(err, &schemaErr) {
		t.Errorf("err = %v, want SchemaError", err)
	}
}

func TestLoadCoercesDanglingExit(t *testing.T) {
	doc := `{
		"schema_version": 1,
		"0": {
			"name": "Edge", "desc": "", "dynamicDesc": "", "note": "",
			"terrain": "field",
			"exits": {"north": {"to": "999"}}
		}
	}`
	path := writeFile(t, t.TempDir(), "map.json", doc)
	w, err := LoadMap(path)
	if err != nil {
		t.Fatalf("LoadMap: %v", err)
	}
	if got := w.Rooms["0"].Exits[North].To; got != ToUndefined {
		t.Errorf("dangling exit = %q, want undefined", got)
	}
}

func TestLabelsRoundTrip(t *testing.T) {
	labels := map[string]string{"home": "17", "inn": "4"}
	path := filepath.Join(t.TempDir(), "labels.json")
	if err := SaveLabels(labels, path); err != nil {
		t.Fatalf("SaveLabels: %v", err)
	}
	loaded, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	if !reflect.DeepEqual(loaded, labels) {
		t.Errorf("labels = %v, want %v", loaded, labels)
	}
}

func TestLoadLegacyLabels(t *testing.T) {
	path := writeFile(t, t.TempDir(), "labels.json", `{"home": "17"}`)
	loaded, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	if loaded["home"] != "17" {
		t.Errorf("labels = %v", loaded)
	}
}

func TestLoadLabelsRejectsBadDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"digit label", `{"schema_version": 1, "labels": {"2nd": "17"}}`},
		{"non-numeric vnum", `{"schema_version": 1, "labels": {"home": "abc"}}`},
	}
	for _, tt := range tests {
		path := writeFile(t, t.TempDir(), "labels.json", tt.doc)
		var schemaErr *SchemaError
		if _, err := LoadLabels(path); !errors.As(err, &schemaErr) {
			t.Errorf("%s: err = %v, want SchemaError", tt.name, err)
		}
	}
}

// Saving over an existing file must leave a gzip backup of the previous
// contents next to it.
func TestSaveBacksUpPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.json")

	w := NewWorld()
	if err := w.AddRoom(NewRoom("0")); err != nil {
		t.Fatal(err)
	}
	if err := SaveMap(w, path); err != nil {
		t.Fatalf("first SaveMap: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.AddRoom(NewRoom("1")); err != nil {
		t.Fatal(err)
	}
	if err := SaveMap(w, path); err != nil {
		t.Fatalf("second SaveMap: %v", err)
	}

	backup, err := os.Open(path + ".bak.gz")
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer backup.Close()
	zr, err := gzip.NewReader(backup)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	restored, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(restored) != string(first) {
		t.Error("backup does not match the previous file contents")
	}
}
