package mapper

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/arda-maps/gomapper/pkg/mapdb"
)

// commandHandler runs one mapper command with its argument text.
type commandHandler struct {
	run  func(s *Session, args string)
	help string
}

var commands map[string]commandHandler

func init() {
	commands = map[string]commandHandler{
		"automap":      {(*Session).cmdAutoMap, "toggles automatic room creation while moving"},
		"autolink":     {(*Session).cmdAutoLink, "toggles automatic linking of newly found exits"},
		"automerge":    {(*Session).cmdAutoMerge, "toggles folding duplicate rooms into one"},
		"autoupdate":   {(*Session).cmdAutoUpdate, "toggles updating room text from the game"},
		"rdelete":      {(*Session).cmdRDelete, "deletes a room from the map"},
		"rlabel":       {(*Session).cmdRLabel, "adds, deletes, or inspects room labels"},
		"rlink":        {(*Session).cmdRLink, "links an exit of the current room to a vnum"},
		"rnote":        {(*Session).cmdRNote, "sets, appends to, or removes the room note"},
		"ralign":       {(*Session).cmdRAlign, ""},
		"rlight":       {(*Session).cmdRLight, ""},
		"rportable":    {(*Session).cmdRPortable, ""},
		"rridable":     {(*Session).cmdRRidable, ""},
		"rsundeath":    {(*Session).cmdRSundeath, ""},
		"ravoid":       {(*Session).cmdRAvoid, "marks the current room to be avoided by the pathfinder"},
		"rterrain":     {(*Session).cmdRTerrain, ""},
		"rx":           {(*Session).cmdRX, ""},
		"ry":           {(*Session).cmdRY, ""},
		"rz":           {(*Session).cmdRZ, ""},
		"rmobflags":    {(*Session).cmdRMobFlags, ""},
		"rloadflags":   {(*Session).cmdRLoadFlags, ""},
		"exitflags":    {(*Session).cmdExitFlags, ""},
		"doorflags":    {(*Session).cmdDoorFlags, ""},
		"secret":       {(*Session).cmdSecret, "adds or removes a hidden door on an exit"},
		"secretaction": {(*Session).cmdSecretAction, "performs an action on the door in a given direction"},
		"fname":        {(*Session).cmdFName, "finds rooms by name"},
		"fnote":        {(*Session).cmdFNote, "finds rooms by note"},
		"fdoor":        {(*Session).cmdFDoor, "finds rooms by door name"},
		"fdynamic":     {(*Session).cmdFDynamic, "finds rooms by dynamic description"},
		"flabel":       {(*Session).cmdFLabel, "finds labeled rooms; empty query lists the closest"},
		"path":         {(*Session).cmdPath, "prints the speedwalk to a room without walking it"},
		"run":          {(*Session).cmdRun, "walks to a room; 'run t [dest]' sets a target, 'run c' continues"},
		"step":         {(*Session).cmdStep, "takes a single step toward a room"},
		"stop":         {(*Session).cmdStop, "cancels the current run"},
		"sync":         {(*Session).cmdSync, "re-syncs the map, optionally to a given vnum or label"},
		"vnum":         {(*Session).cmdVnum, "states the vnum of the current room"},
		"tvnum":        {(*Session).cmdTVnum, "tells a given character the vnum of your room"},
		"revnum":       {(*Session).cmdReVnum, "renumbers a room"},
		"rinfo":        {(*Session).cmdRInfo, "displays all data about a room"},
		"getlabel":     {(*Session).cmdGetLabel, "lists the labels of the current or given room"},
		"savemap":      {(*Session).cmdSaveMap, "saves the map to disk"},
		"maphelp":      {(*Session).cmdMapHelp, "shows documentation for mapper commands"},
	}
}

// HandleUserInput examines one line typed by the player. Mapper commands are
// consumed and return true; anything else returns false and should be
// forwarded to the game. Plain direction commands are forwarded but also
// noted so the synchronizer can predict the move.
func (s *Session) HandleUserInput(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	word, args := line, ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		word, args = line[:i], strings.TrimSpace(line[i+1:])
	}
	if cmd, ok := commands[strings.ToLower(word)]; ok {
		cmd.run(s, args)
		return true
	}
	if dir, ok := mapdb.ParseDirection(word); ok && args == "" {
		s.NoteSentMovement(dir)
	}
	return false
}

// requireRoom guards commands that edit the current room.
func (s *Session) requireRoom() bool {
	if s.Current == nil {
		s.output("Error: the mapper has no location. Use the sync command first.")
		return false
	}
	return true
}

func (s *Session) toggleArg(name string, field *bool, args string) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "":
		*field = !*field
	case "on":
		*field = true
	default:
		*field = false
	}
	state := "off"
	if *field {
		state = "on"
	}
	s.output("%s %s.", name, state)
}

func (s *Session) cmdAutoMap(args string)    { s.toggleArg("Auto Mapping", &s.AutoMap, args) }
func (s *Session) cmdAutoLink(args string)   { s.toggleArg("Auto Linking", &s.AutoLink, args) }
func (s *Session) cmdAutoMerge(args string)  { s.toggleArg("Auto Merging", &s.AutoMerge, args) }
func (s *Session) cmdAutoUpdate(args string) { s.toggleArg("Auto update rooms", &s.AutoUpdate, args) }

func (s *Session) cmdRDelete(args string) {
	args = strings.TrimSpace(args)
	var vnum string
	switch {
	case args != "":
		vnum = args
	case s.State != Unsynced && s.Current != nil:
		vnum = s.Current.Vnum
		s.Desync("")
	default:
		s.output("Syntax: rdelete [vnum]")
		return
	}
	room, ok := s.World.Rooms[vnum]
	if !ok {
		s.output("Error: the vnum '%s' does not exist.", vnum)
		return
	}
	name := room.Name
	if err := s.World.DeleteRoom(vnum); err != nil {
		s.output("%v", err)
		return
	}
	if s.Current != nil && s.Current.Vnum == vnum {
		s.Desync("")
	}
	s.output("Deleting room '%s' with name '%s'.", vnum, name)
}

func (s *Session) cmdRLabel(args string) {
	fields := strings.Fields(strings.ToLower(args))
	if len(fields) == 0 {
		s.output("Syntax: 'rlabel [add|delete|info|search] [label] [vnum]'. " +
			"Leave the vnum blank to use the current room.")
		return
	}
	action := fields[0]
	label := ""
	if len(fields) > 1 {
		label = fields[1]
	}
	switch action {
	case "add":
		if label == "" {
			s.output("Error: you need to supply a label.")
			return
		}
		if isAllDigits(label) {
			s.output("Labels cannot be decimal values.")
			return
		}
		vnum := ""
		if len(fields) > 2 {
			vnum = fields[2]
		} else if s.requireRoom() {
			vnum = s.Current.Vnum
		} else {
			return
		}
		if err := s.World.SetLabel(label, vnum); err != nil {
			s.output("%v", err)
			return
		}
		s.output("Adding the label '%s' with VNum '%s'.", label, vnum)
		s.saveLabels()
	case "delete":
		if label == "" {
			s.output("Error: you need to supply a label.")
			return
		}
		if err := s.World.DeleteLabel(label); err != nil {
			s.output("%v", err)
			return
		}
		s.output("Deleting label '%s'.", label)
		s.saveLabels()
	case "info":
		if len(s.World.Labels) == 0 {
			s.output("There aren't any labels in the database yet.")
			return
		}
		if label == "" || strings.HasPrefix("all", label) {
			var lines []string
			for name, vnum := range s.World.Labels {
				lines = append(lines, fmt.Sprintf("%s - %s", name, vnum))
			}
			sort.Strings(lines)
			s.output("%s", strings.Join(lines, "\n"))
			return
		}
		vnum, ok := s.World.Labels[label]
		if !ok {
			s.output("There aren't any labels matching '%s' in the database.", label)
			return
		}
		s.output("Label '%s' points to room '%s'.", label, vnum)
	case "search":
		s.output("%s", s.labelSearch(label))
	default:
		s.output("Syntax: 'rlabel [add|delete|info|search] [label] [vnum]'.")
	}
}

func (s *Session) cmdRLink(args string) {
	if !s.requireRoom() {
		return
	}
	fields := strings.Fields(strings.ToLower(args))
	syntax := "Syntax: 'rlink [add | remove] [oneway] [vnum | undefined] [north | east | south | west | up | down]'."
	if len(fields) == 0 {
		s.output("%s", syntax)
		return
	}
	dir, ok := mapdb.ParseDirection(fields[len(fields)-1])
	if !ok {
		s.output("%s", syntax)
		return
	}
	fields = fields[:len(fields)-1]
	mode, oneway, target := "", false, ""
	for _, f := range fields {
		switch {
		case strings.HasPrefix("add", f):
			mode = "add"
		case strings.HasPrefix("remove", f) && mode == "":
			mode = "remove"
		case strings.HasPrefix("oneway", f) && f != "":
			oneway = true
		case isAllDigits(f) || f == mapdb.ToUndefined:
			target = f
		default:
			s.output("%s", syntax)
			return
		}
	}
	switch mode {
	case "add":
		if target == "" {
			s.output("Error: 'add' expects a vnum or 'undefined'.")
			return
		}
		if err := s.World.LinkExit(s.Current.Vnum, dir, target, oneway); err != nil {
			s.output("%v", err)
			return
		}
		if target == mapdb.ToUndefined {
			s.output("Direction %s now undefined.", dir)
			return
		}
		dest := s.World.Rooms[target]
		if oneway {
			s.output("Linking direction %s one way to %s with name '%s'.", dir, target, dest.Name)
		} else if s.World.IsBidirectional(s.Current.Vnum, dir) {
			s.output("Linking direction %s to %s with name '%s'.\nLinked exit %s in second room with this room.",
				dir, target, dest.Name, dir.Reverse())
		} else {
			s.output("Linking direction %s to %s with name '%s'.\nUnable to link exit %s in second room: exit already defined.",
				dir, target, dest.Name, dir.Reverse())
		}
	case "remove":
		if _, ok := s.Current.Exits[dir]; !ok {
			s.output("Exit %s does not exist.", dir)
			return
		}
		delete(s.Current.Exits, dir)
		s.output("Exit %s removed.", dir)
	default:
		ex, ok := s.Current.Exits[dir]
		if !ok {
			s.output("Exit %s does not exist.", dir)
			return
		}
		toName := ""
		if dest, ok := s.World.Rooms[ex.To]; ok {
			toName = dest.Name
		}
		s.output("Exit '%s' links to '%s' with name '%s'.", dir, ex.To, toName)
	}
}

func (s *Session) cmdRNote(args string) {
	if !s.requireRoom() {
		return
	}
	text := strings.TrimSpace(args)
	switch {
	case text == "":
		s.output("Room note set to '%s'. Use 'rnote [text]' to change it, "+
			"'rnote -a [text]' to append to it, or 'rnote -r' to remove it.", s.Current.Note)
		return
	case strings.HasPrefix(strings.ToLower(text), "-r"):
		if len(text) > 2 {
			s.output("Error: '-r' requires no extra arguments. Change aborted.")
			return
		}
		s.Current.Note = ""
		s.output("Note removed.")
		return
	case strings.HasPrefix(strings.ToLower(text), "-a"):
		extra := strings.TrimSpace(text[2:])
		if extra == "" {
			s.output("Error: '-a' requires text to be appended. Change aborted.")
			return
		}
		s.Current.Note = strings.TrimSpace(s.Current.Note + " " + extra)
	default:
		s.Current.Note = text
	}
	s.output("Room note now set to '%s'.", s.Current.Note)
}

// setEnum implements the single-valued attribute setters (ralign, rlight,
// and friends): no argument or a bad one reports the current value and the
// accepted spellings. Callers have already checked requireRoom.
func (s *Session) setEnum(name, command string, valid []string, current *string, args string) {
	value := strings.ToLower(strings.TrimSpace(args))
	for _, v := range valid {
		if value == v {
			*current = value
			s.output("Setting room %s to '%s'.", name, value)
			return
		}
	}
	s.output("Room %s set to '%s'. Use '%s [%s]' to change it.",
		name, *current, command, strings.Join(valid, " | "))
}

func (s *Session) cmdRAlign(args string) {
	if !s.requireRoom() {
		return
	}
	s.setEnum("align", "ralign", mapdb.ValidAligns, &s.Current.Align, args)
}

func (s *Session) cmdRLight(args string) {
	if !s.requireRoom() {
		return
	}
	if value, ok := lightSymbols[strings.TrimSpace(args)]; ok {
		args = value
	}
	s.setEnum("light", "rlight", mapdb.ValidLights, &s.Current.Light, args)
}

func (s *Session) cmdRPortable(args string) {
	if !s.requireRoom() {
		return
	}
	s.setEnum("portable", "rportable", mapdb.ValidPortables, &s.Current.Portable, args)
}

func (s *Session) cmdRRidable(args string) {
	if !s.requireRoom() {
		return
	}
	s.setEnum("ridable", "rridable", mapdb.ValidRidables, &s.Current.Ridable, args)
}

func (s *Session) cmdRSundeath(args string) {
	if !s.requireRoom() {
		return
	}
	s.setEnum("sundeath", "rsundeath", mapdb.ValidSundeaths, &s.Current.Sundeath, args)
}

func (s *Session) cmdRTerrain(args string) {
	if !s.requireRoom() {
		return
	}
	if value, ok := terrainSymbols[strings.TrimSpace(args)]; ok {
		args = value
	}
	s.setEnum("terrain", "rterrain", mapdb.ValidTerrains, &s.Current.Terrain, args)
}

func (s *Session) cmdRAvoid(args string) {
	if !s.requireRoom() {
		return
	}
	switch strings.TrimSpace(args) {
	case "+":
		s.Current.Avoid = true
		s.output("Enabling room avoid.")
	case "-":
		s.Current.Avoid = false
		s.output("Disabling room avoid.")
	default:
		state := "disabled"
		if s.Current.Avoid {
			state = "enabled"
		}
		s.output("Room avoid %s. Use 'ravoid [+ | -]' to change it.", state)
	}
}

func (s *Session) setCoordinate(name string, target *int, args string) {
	text := strings.TrimSpace(args)
	if text == "" {
		if !s.Current.HasCoordinates {
			s.output("Room coordinate %s is undefined. Use 'r%s [number]' to set it.", name, strings.ToLower(name))
			return
		}
		s.output("Room coordinate %s set to '%d'. Use 'r%s [number]' to change it.",
			name, *target, strings.ToLower(name))
		return
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		s.output("Error: room coordinates must be integers.")
		return
	}
	*target = n
	s.Current.HasCoordinates = true
	s.output("Setting room %s coordinate to '%d'.", name, n)
}

func (s *Session) cmdRX(args string) {
	if s.requireRoom() {
		s.setCoordinate("X", &s.Current.X, args)
	}
}

func (s *Session) cmdRY(args string) {
	if s.requireRoom() {
		s.setCoordinate("Y", &s.Current.Y, args)
	}
}

func (s *Session) cmdRZ(args string) {
	if s.requireRoom() {
		s.setCoordinate("Z", &s.Current.Z, args)
	}
}

// setFlags implements `add|remove <flag>` editing over one flag set.
func (s *Session) setFlags(kind, command string, valid []string, set mapdb.FlagSet, args string) {
	fields := strings.Fields(strings.ToLower(args))
	usage := fmt.Sprintf("%s flags set to '%s'. Use '%s [add | remove] [%s]' to change them.",
		kind, set, command, strings.Join(valid, " | "))
	if len(fields) != 2 {
		s.output("%s", usage)
		return
	}
	mode, flag := fields[0], fields[1]
	if !validFlag(valid, flag) {
		s.output("%s", usage)
		return
	}
	switch {
	case strings.HasPrefix("add", mode):
		if set.Has(flag) {
			s.output("%s flag '%s' already set.", kind, flag)
			return
		}
		set.Add(flag)
		s.output("%s flag '%s' added.", kind, flag)
	case strings.HasPrefix("remove", mode):
		if !set.Has(flag) {
			s.output("%s flag '%s' not set.", kind, flag)
			return
		}
		set.Remove(flag)
		s.output("%s flag '%s' removed.", kind, flag)
	default:
		s.output("%s", usage)
	}
}

func (s *Session) cmdRMobFlags(args string) {
	if !s.requireRoom() {
		return
	}
	s.setFlags("Mob", "rmobflags", mapdb.ValidMobFlags, s.Current.MobFlags, args)
}

func (s *Session) cmdRLoadFlags(args string) {
	if !s.requireRoom() {
		return
	}
	s.setFlags("Load", "rloadflags", mapdb.ValidLoadFlags, s.Current.LoadFlags, args)
}

// flagEdit implements exitflags and doorflags: a trailing direction selects
// the exit, an optional `add|remove <flag>` prefix edits its set.
func (s *Session) flagEdit(kind, command string, valid []string, pick func(*mapdb.Exit) mapdb.FlagSet, args string) {
	if !s.requireRoom() {
		return
	}
	fields := strings.Fields(strings.ToLower(args))
	syntax := fmt.Sprintf("Syntax: '%s [add | remove] [%s] [north | east | south | west | up | down]'.",
		command, strings.Join(valid, " | "))
	if len(fields) == 0 {
		s.output("%s", syntax)
		return
	}
	dir, ok := mapdb.ParseDirection(fields[len(fields)-1])
	if !ok {
		s.output("%s", syntax)
		return
	}
	ex, exists := s.Current.Exits[dir]
	if !exists {
		s.output("Exit %s does not exist.", dir)
		return
	}
	if len(fields) == 1 {
		s.output("%s flags '%s' set to '%s'.", kind, dir, pick(ex))
		return
	}
	s.setFlags(kind, command, valid, pick(ex), strings.Join(fields[:len(fields)-1], " "))
}

func (s *Session) cmdExitFlags(args string) {
	s.flagEdit("Exit", "exitflags", mapdb.ValidExitFlags,
		func(ex *mapdb.Exit) mapdb.FlagSet { return ex.ExitFlags }, args)
}

func (s *Session) cmdDoorFlags(args string) {
	s.flagEdit("Door", "doorflags", mapdb.ValidDoorFlags,
		func(ex *mapdb.Exit) mapdb.FlagSet { return ex.DoorFlags }, args)
}

func (s *Session) cmdSecret(args string) {
	if !s.requireRoom() {
		return
	}
	fields := strings.Fields(strings.ToLower(args))
	syntax := "Syntax: 'secret [add | remove] [name] [north | east | south | west | up | down]'."
	if len(fields) == 0 {
		s.output("%s", syntax)
		return
	}
	dir, ok := mapdb.ParseDirection(fields[len(fields)-1])
	if !ok {
		s.output("%s", syntax)
		return
	}
	fields = fields[:len(fields)-1]
	mode, name := "", ""
	for _, f := range fields {
		switch {
		case mode == "" && strings.HasPrefix("add", f):
			mode = "add"
		case mode == "" && strings.HasPrefix("remove", f):
			mode = "remove"
		default:
			name = f
		}
	}
	switch mode {
	case "add":
		if name == "" {
			s.output("Error: 'add' expects a name for the secret.")
			return
		}
		ex, exists := s.Current.Exits[dir]
		if !exists {
			ex = mapdb.NewExit()
			s.Current.Exits[dir] = ex
		}
		ex.ExitFlags.Add("door")
		ex.DoorFlags.Add("hidden")
		ex.Door = name
		s.output("Adding secret '%s' to direction '%s'.", name, dir)
	case "remove":
		ex, exists := s.Current.Exits[dir]
		if !exists {
			s.output("Exit %s does not exist.", dir)
			return
		}
		if ex.Door == "" {
			s.output("No secret %s of here.", dir)
			return
		}
		ex.DoorFlags.Remove("hidden")
		ex.Door = ""
		s.output("Secret %s removed.", dir)
	default:
		ex, exists := s.Current.Exits[dir]
		if !exists {
			s.output("Exit %s does not exist.", dir)
			return
		}
		if ex.Door == "" {
			s.output("No secret %s of here.", dir)
			return
		}
		s.output("Exit '%s' has secret '%s'.", dir, ex.Door)
	}
}

// cmdSecretAction sends "<action> <door> <d>" to the game, substituting the
// exit's door name so hidden doors can be opened without typing their name.
func (s *Session) cmdSecretAction(args string) {
	if !s.requireRoom() {
		return
	}
	fields := strings.Fields(args)
	if len(fields) == 0 {
		s.output("Syntax: 'secretaction [action] [north | east | south | west | up | down]'.")
		return
	}
	action := strings.Join(fields, " ")
	dirWord := ""
	if dir, ok := mapdb.ParseDirection(fields[len(fields)-1]); ok {
		action = strings.Join(fields[:len(fields)-1], " ")
		door := "exit"
		if ex, exists := s.Current.Exits[dir]; exists && ex.Door != "" {
			door = ex.Door
		}
		dirWord = dir.String()[:1]
		s.sendGame(strings.TrimSpace(action + " " + door + " " + dirWord))
		return
	}
	s.sendGame(strings.TrimSpace(action + " exit"))
}

func (s *Session) cmdFName(args string) { s.findCommand(fieldName, "fname", args) }
func (s *Session) cmdFNote(args string) { s.findCommand(fieldNote, "fnote", args) }
func (s *Session) cmdFDoor(args string) { s.findCommand(fieldDoor, "fdoor", args) }
func (s *Session) cmdFDynamic(args string) {
	s.findCommand(fieldDynamic, "fdynamic", args)
}

func (s *Session) cmdFLabel(args string) {
	if len(s.World.Labels) == 0 {
		s.output("No labels defined.")
		return
	}
	s.output("%s", s.renderHits(s.Find(fieldLabel, args)))
}

func (s *Session) findCommand(field searchField, name, args string) {
	if strings.TrimSpace(args) == "" {
		s.output("Usage: '%s [text]'.", name)
		return
	}
	s.output("%s", s.renderHits(s.Find(field, args)))
}

// splitDestination separates "destination noflag|noflag" path arguments.
func splitDestination(args string) (destination string, flags []string) {
	fields := strings.Fields(strings.TrimSpace(args))
	if len(fields) == 0 {
		return "", nil
	}
	if len(fields) > 1 {
		last := fields[len(fields)-1]
		if strings.HasPrefix(last, "no") {
			return strings.Join(fields[:len(fields)-1], " "), strings.Split(last, "|")
		}
	}
	return strings.Join(fields, " "), nil
}

func (s *Session) cmdPath(args string) {
	destination, flagWords := splitDestination(args)
	if destination == "" {
		s.output("Usage: path [label|vnum]")
		return
	}
	avoid, err := ParseAvoidFlags(flagWords)
	if err != nil {
		s.output("%v", err)
		return
	}
	steps, perr := s.FindPath(destination, avoid)
	if perr != nil {
		s.output("%v", perr)
		return
	}
	s.output("%s", Speedwalk(steps))
}

func (s *Session) cmdRun(args string) {
	argString := strings.TrimSpace(args)
	if argString == "" {
		s.output("Usage: run [label|vnum]")
		return
	}
	s.stopRun()
	lower := strings.ToLower(argString)
	switch {
	case lower == "t" || strings.HasPrefix(lower, "t "):
		target := strings.TrimSpace(argString[1:])
		if target == "" {
			if s.lastPathQuery != "" {
				s.output("Run target set to '%s'. Use 'run t [label|vnum]' to change it.", s.lastPathQuery)
			} else {
				s.output("Please specify a vnum or room label to target.")
			}
			return
		}
		s.lastPathQuery = target
		s.output("Setting run target to '%s'", s.lastPathQuery)
		return
	case lower == "c":
		if s.lastPathQuery == "" {
			s.output("Error: no previous path to continue.")
			return
		}
		argString = s.lastPathQuery
	default:
		s.lastPathQuery = argString
	}
	destination, flagWords := splitDestination(argString)
	avoid, err := ParseAvoidFlags(flagWords)
	if err != nil {
		s.output("%v", err)
		return
	}
	steps, perr := s.FindPath(destination, avoid)
	if perr != nil {
		s.output("%v", perr)
		return
	}
	s.walkQueue = steps
	s.autoWalk = true
	s.walkNextDirection()
}

func (s *Session) cmdStep(args string) {
	destination, flagWords := splitDestination(args)
	if destination == "" {
		s.output("Usage: step [label|vnum]")
		return
	}
	avoid, err := ParseAvoidFlags(flagWords)
	if err != nil {
		s.output("%v", err)
		return
	}
	steps, perr := s.FindPath(destination, avoid)
	if perr != nil {
		s.output("%v", perr)
		return
	}
	s.walkQueue = steps
	s.autoWalk = false
	s.walkNextDirection()
	s.walkQueue = nil
}

func (s *Session) cmdStop(args string) {
	s.stopRun()
	s.output("Run canceled!")
}

func (s *Session) cmdSync(args string) {
	if strings.TrimSpace(args) == "" {
		s.Desync("Map no longer synced. Auto sync on.")
		s.sendGame("look")
		return
	}
	s.SyncTo(args)
}

func (s *Session) cmdVnum(args string) {
	if !s.requireRoom() {
		return
	}
	s.output("Vnum: %s.", s.Current.Vnum)
}

func (s *Session) cmdTVnum(args string) {
	if !s.requireRoom() {
		return
	}
	target := strings.TrimSpace(args)
	if target == "" {
		s.output("Tell VNum to who?")
		return
	}
	s.sendGame(fmt.Sprintf("tell %s %s", target, s.Current.Vnum))
}

// cmdReVnum renumbers a room, rewriting every exit that referenced the old
// vnum. `revnum [origin] destination`.
func (s *Session) cmdReVnum(args string) {
	fields := strings.Fields(strings.TrimSpace(args))
	var origin, destination string
	switch len(fields) {
	case 1:
		if !s.requireRoom() {
			return
		}
		origin, destination = s.Current.Vnum, fields[0]
	case 2:
		origin, destination = fields[0], fields[1]
	default:
		s.output("Syntax: 'revnum [origin vnum] [destination vnum]'.")
		return
	}
	if !isAllDigits(destination) || (origin != "" && !isAllDigits(origin)) {
		s.output("Error: vnums must be decimal numbers.")
		return
	}
	room, ok := s.World.Rooms[origin]
	if !ok {
		s.output("Error: the vnum '%s' does not exist.", origin)
		return
	}
	if _, taken := s.World.Rooms[destination]; taken {
		s.output("Error: the vnum '%s' is already in use.", destination)
		return
	}
	for _, other := range s.World.Rooms {
		for _, ex := range other.Exits {
			if ex.To == origin {
				ex.To = destination
			}
		}
	}
	for label, vnum := range s.World.Labels {
		if vnum == origin {
			s.World.Labels[label] = destination
		}
	}
	delete(s.World.Rooms, origin)
	room.Vnum = destination
	s.World.Rooms[destination] = room
	s.output("Changing the vnum '%s' to '%s'.", origin, destination)
}

func (s *Session) cmdRInfo(args string) {
	text := strings.TrimSpace(args)
	if text == "" {
		if !s.requireRoom() {
			return
		}
		s.output("%s", s.Current.Info())
		return
	}
	room, err := s.World.Resolve(text)
	if err != nil {
		s.output("Error: no such vnum or label, '%s'", text)
		return
	}
	s.output("%s", room.Info())
}

func (s *Session) cmdGetLabel(args string) {
	vnum := strings.TrimSpace(args)
	if vnum == "" || !isAllDigits(vnum) {
		if !s.requireRoom() {
			return
		}
		vnum = s.Current.Vnum
	}
	labels := s.World.LabelsFor(vnum)
	if len(labels) == 0 {
		s.output("Room not labeled.")
		return
	}
	s.output("Room labels: %s", strings.Join(labels, ", "))
}

func (s *Session) cmdSaveMap(args string) {
	if s.Save == nil {
		s.output("Error: no map file configured.")
		return
	}
	if err := s.Save(); err != nil {
		s.output("Error saving map: %v", err)
		return
	}
	s.output("Map saved.")
}

func (s *Session) cmdMapHelp(args string) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := []string{
		"Mapper Commands",
		"The following commands are used for viewing and editing map data:",
	}
	var undocumented []string
	for _, name := range names {
		if help := commands[name].help; help != "" {
			lines = append(lines, fmt.Sprintf("    %s: %s", name, help))
		} else {
			undocumented = append(undocumented, name)
		}
	}
	if len(undocumented) > 0 {
		lines = append(lines, "Undocumented commands:", "    "+strings.Join(undocumented, ", "))
	}
	s.output("%s", strings.Join(lines, "\n"))
}

func (s *Session) saveLabels() {
	if s.SaveLabels == nil {
		return
	}
	if err := s.SaveLabels(); err != nil {
		s.output("Error saving labels: %v", err)
	}
}

func validFlag(valid []string, flag string) bool {
	for _, v := range valid {
		if v == flag {
			return true
		}
	}
	return false
}

func isAllDigits(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
