package mapdb

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"
)

// Legacy (schema version 0) spellings, replaced on load.
var (
	legacyTerrains = map[string]string{
		"random":       "undefined",
		"death":        "deathtrap",
		"shallowwater": "shallows",
		"shallow":      "shallows",
		"indoors":      "building",
	}
	legacyDoorFlags = map[string]string{
		"noblock": "no_block",
		"nobreak": "no_break",
		"nopick":  "no_pick",
		"needkey": "need_key",
	}
	legacyLoadFlags = map[string]string{
		"packhorse":    "pack_horse",
		"trainedhorse": "trained_horse",
	}
	legacyMobFlags = map[string]string{
		"any":          "passive_mob",
		"smob":         "aggressive_mob",
		"quest":        "quest_mob",
		"scoutguild":   "scout_guild",
		"mageguild":    "mage_guild",
		"clericguild":  "cleric_guild",
		"warriorguild": "warrior_guild",
		"rangerguild":  "ranger_guild",
		"armourshop":   "armour_shop",
		"foodshop":     "food_shop",
		"petshop":      "pet_shop",
		"weaponshop":   "weapon_shop",
	}
)

type exitRecord struct {
	To        string   `json:"to"`
	Door      string   `json:"door"`
	ExitFlags []string `json:"exitFlags"`
	DoorFlags []string `json:"doorFlags"`
}

type roomRecord struct {
	Name        string                `json:"name"`
	Desc        string                `json:"desc"`
	DynamicDesc string                `json:"dynamicDesc"`
	Note        string                `json:"note"`
	Area        string                `json:"area,omitempty"`
	ServerID    string                `json:"server_id,omitempty"`
	Terrain     string                `json:"terrain"`
	Light       string                `json:"light"`
	Align       string                `json:"align"`
	Portable    string                `json:"portable"`
	Ridable     string                `json:"ridable"`
	Sundeath    string                `json:"sundeath,omitempty"`
	Avoid       bool                  `json:"avoid"`
	MobFlags    []string              `json:"mobFlags"`
	LoadFlags   []string              `json:"loadFlags"`
	X           *int                  `json:"x,omitempty"`
	Y           *int                  `json:"y,omitempty"`
	Z           *int                  `json:"z,omitempty"`
	Coordinates []int                 `json:"coordinates,omitempty"`
	Exits       map[string]exitRecord `json:"exits"`
}

// LoadMap reads a versioned map document and builds a World (without
// labels; see LoadLabels). Dangling exit targets are coerced to "undefined"
// with a warning rather than failing the load.
func LoadMap(path string) (*World, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &SchemaError{Path: path, Detail: err.Error()}
	}
	version := 0
	if versionRaw, ok := doc["schema_version"]; ok {
		if err := json.Unmarshal(versionRaw, &version); err != nil {
			return nil, &SchemaError{Path: path, Detail: "schema_version is not an integer"}
		}
		delete(doc, "schema_version")
	}
	validator, ok := mapValidators[version]
	if !ok {
		return nil, fmt.Errorf("%w: map file %s declares version %d", ErrUnsupportedSchema, path, version)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, &SchemaError{Path: path, Detail: err.Error()}
	}
	if err := validator.Validate(generic); err != nil {
		return nil, &SchemaError{Path: path, Detail: err.Error()}
	}

	world := NewWorld()
	for vnum, recordRaw := range doc {
		var rec roomRecord
		if err := json.Unmarshal(recordRaw, &rec); err != nil {
			return nil, &SchemaError{Path: path, Detail: fmt.Sprintf("room %s: %v", vnum, err)}
		}
		room, err := rec.toRoom(vnum, version)
		if err != nil {
			return nil, &SchemaError{Path: path, Detail: err.Error()}
		}
		if err := world.AddRoom(room); err != nil {
			return nil, err
		}
	}
	if repaired := world.CoerceDangling(); repaired > 0 {
		log.Printf("mapdb: repaired %d dangling references in %s", repaired, path)
	}
	return world, nil
}

func (rec *roomRecord) toRoom(vnum string, version int) (*Room, error) {
	room := NewRoom(vnum)
	room.Name = rec.Name
	room.Desc = rec.Desc
	room.DynamicDesc = rec.DynamicDesc
	room.Note = rec.Note
	room.Area = rec.Area
	room.ServerID = rec.ServerID
	room.Terrain = rec.Terrain
	room.Light = orUndefined(rec.Light)
	room.Align = orUndefined(rec.Align)
	room.Portable = orUndefined(rec.Portable)
	room.Ridable = orUndefined(rec.Ridable)
	room.Sundeath = orUndefined(rec.Sundeath)
	room.Avoid = rec.Avoid
	mobFlags, loadFlags := rec.MobFlags, rec.LoadFlags
	if version == 0 {
		if replacement, ok := legacyTerrains[room.Terrain]; ok {
			room.Terrain = replacement
		}
		mobFlags = replaceAll(mobFlags, legacyMobFlags)
		loadFlags = replaceAll(loadFlags, legacyLoadFlags)
	}
	room.MobFlags = NewFlagSet(mobFlags...)
	room.LoadFlags = NewFlagSet(loadFlags...)
	switch {
	case len(rec.Coordinates) == 3:
		room.X, room.Y, room.Z = rec.Coordinates[0], rec.Coordinates[1], rec.Coordinates[2]
		room.HasCoordinates = true
	case rec.X != nil && rec.Y != nil && rec.Z != nil:
		room.X, room.Y, room.Z = *rec.X, *rec.Y, *rec.Z
		room.HasCoordinates = true
	}
	for dirName, exitRec := range rec.Exits {
		dir, ok := ParseDirection(dirName)
		if ok {
			ok = dir.String() == dirName
		}
		if !ok {
			return nil, fmt.Errorf("room %s: unknown exit direction %q", vnum, dirName)
		}
		ex := NewExit()
		ex.To = exitRec.To
		ex.Door = exitRec.Door
		ex.ExitFlags = NewFlagSet(exitRec.ExitFlags...)
		doorFlags := exitRec.DoorFlags
		if version == 0 {
			doorFlags = replaceAll(doorFlags, legacyDoorFlags)
		}
		ex.DoorFlags = NewFlagSet(doorFlags...)
		room.Exits[dir] = ex
	}
	return room, nil
}

func fromRoom(room *Room) roomRecord {
	rec := roomRecord{
		Name:        room.Name,
		Desc:        room.Desc,
		DynamicDesc: room.DynamicDesc,
		Note:        room.Note,
		Area:        room.Area,
		ServerID:    room.ServerID,
		Terrain:     room.Terrain,
		Light:       room.Light,
		Align:       room.Align,
		Portable:    room.Portable,
		Ridable:     room.Ridable,
		Sundeath:    room.Sundeath,
		Avoid:       room.Avoid,
		MobFlags:    room.MobFlags.Sorted(),
		LoadFlags:   room.LoadFlags.Sorted(),
		Exits:       make(map[string]exitRecord, len(room.Exits)),
	}
	if room.HasCoordinates {
		rec.Coordinates = []int{room.X, room.Y, room.Z}
	}
	for dir, ex := range room.Exits {
		rec.Exits[dir.String()] = exitRecord{
			To:        ex.To,
			Door:      ex.Door,
			ExitFlags: ex.ExitFlags.Sorted(),
			DoorFlags: ex.DoorFlags.Sorted(),
		}
	}
	return rec
}

// SaveMap writes the world's rooms as a current-version map document. The
// write is atomic: a temp file in the same directory is renamed over the
// target, and the previous file is preserved as a gzip backup first.
func SaveMap(world *World, path string) error {
	doc := make(map[string]any, len(world.Rooms)+1)
	doc["schema_version"] = MapSchemaVersion
	for vnum, room := range world.Rooms {
		doc[vnum] = fromRoom(room)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// LoadLabels reads a versioned labels document.
func LoadLabels(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, &SchemaError{Path: path, Detail: err.Error()}
	}
	version := 0
	if doc, ok := generic.(map[string]any); ok {
		if v, ok := doc["schema_version"]; ok {
			f, isNumber := v.(float64)
			if !isNumber {
				return nil, &SchemaError{Path: path, Detail: "schema_version is not an integer"}
			}
			version = int(f)
		}
	}
	validator, ok := labelsValidators[version]
	if !ok {
		return nil, fmt.Errorf("%w: labels file %s declares version %d", ErrUnsupportedSchema, path, version)
	}
	if err := validator.Validate(generic); err != nil {
		return nil, &SchemaError{Path: path, Detail: err.Error()}
	}
	labels := make(map[string]string)
	if version == 0 {
		var doc map[string]string
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, &SchemaError{Path: path, Detail: err.Error()}
		}
		for label, vnum := range doc {
			labels[label] = vnum
		}
		return labels, nil
	}
	var doc struct {
		Labels map[string]string `json:"labels"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &SchemaError{Path: path, Detail: err.Error()}
	}
	for label, vnum := range doc.Labels {
		labels[label] = vnum
	}
	return labels, nil
}

// SaveLabels writes the labels as a current-version document, atomically.
func SaveLabels(labels map[string]string, path string) error {
	doc := struct {
		SchemaVersion int               `json:"schema_version"`
		Labels        map[string]string `json:"labels"`
	}{LabelsSchemaVersion, labels}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// atomicWrite writes data to a temp file in the target's directory, fsyncs,
// and renames it into place. On any failure the previous file is untouched.
// An existing target is first copied aside as a gzip backup.
func atomicWrite(path string, data []byte) error {
	if err := backupFile(path); err != nil {
		log.Printf("mapdb: could not back up %s: %v", path, err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// backupFile gzips the current contents of path to path.bak.gz. Missing
// files are not an error.
func backupFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer src.Close()
	dst, err := os.Create(path + ".bak.gz")
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		zw.Close()
		dst.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func orUndefined(value string) string {
	if value == "" {
		return "undefined"
	}
	return value
}

func replaceAll(flags []string, replacements map[string]string) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		if replacement, ok := replacements[f]; ok {
			f = replacement
		}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
