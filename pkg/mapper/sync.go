package mapper

import (
	"regexp"
	"strings"

	"github.com/arda-maps/gomapper/pkg/events"
	"github.com/arda-maps/gomapper/pkg/mapdb"
)

// Prompt symbols the game uses to encode light and terrain, mined for room
// flag updates while automapping.
var lightSymbols = map[string]string{
	"@": "lit", "*": "lit", "!": "undefined", ")": "lit", "o": "dark",
}

var terrainSymbols = map[string]string{
	":": "brush",
	"O": "cavern",
	"#": "city",
	"!": "deathtrap",
	".": "field",
	"f": "forest",
	"(": "hills",
	"[": "building",
	"<": "mountains",
	"W": "rapids",
	"+": "road",
	"%": "shallows",
	"=": "tunnel",
	"?": "undefined",
	"U": "underwater",
	"~": "water",
}

var promptRegex = regexp.MustCompile(
	`^(?P<light>[@*!\)o]?)(?P<terrain>[\#\(\[\+\.%fO~UW:=<]?)` +
		`(?P<weather>[*'"~=-]{0,2})\s*(?P<moveflags>[RrSsCcW]{0,4})[^>]*>`,
)

// exitTagsRegex decodes one marked exit from the game's exits line: optional
// door/road/climb/portal markers followed by the direction word.
var exitTagsRegex = regexp.MustCompile(
	`(?P<door>[\(\[#]?)(?P<road>[=-]?)(?P<climb>[/\\]?)(?P<portal>[{]?)` +
		`(?P<direction>north|east|south|west|up|down)`,
)

// Lines reporting that the game moved the player somewhere without a
// movement command succeeding normally.
var movementForcedRegex = regexp.MustCompile(strings.Join([]string{
	`You feel confused and move along randomly\.\.\.`,
	`Suddenly an explosion of ancient rhymes makes the space collapse around you!`,
	`The pain stops, your vision clears, and you realize that you are elsewhere\.`,
	`A guard leads you out of the house\.`,
	`You leave the ferry\.`,
	`You reached the riverbank\.`,
	`You stop moving towards the (?:left|right) bank and drift downstream\.`,
	`You are borne along by a strong current\.`,
	`You are swept away by the current\.`,
	`You are swept away by the powerful current of water\.`,
	`You board the ferry\.`,
	`You are dead! Sorry\.\.\.`,
	`With a jerk, the basket starts gliding down the rope towards the platform\.`,
	`The current pulls you faster\. Suddenly, you are sucked downwards into darkness!`,
	`You are washed blindly over the rocks, and plummet sickeningly downwards\.\.\.`,
	`Oops! You walk off the bridge and fall into the rushing water below!`,
	`Holding your breath and with closed eyes, you are squeezed below the surface of the water\.`,
	`The trees confuse you, making you wander around in circles\.`,
}, "|"))

// Lines reporting that an attempted move did not happen.
var movementPreventedRegex = regexp.MustCompile(`^(?:` + strings.Join([]string{
	`The \w+ seems? to be closed\.`,
	`It seems to be locked\.`,
	`You cannot ride there\.`,
	`Your boat cannot enter this place\.`,
	`A guard steps in front of you\.`,
	`The clerk bars your way\.`,
	`You cannot go that way\.\.\.`,
	`Alas, you cannot go that way\.\.\.`,
	`You need to swim to go there\.`,
	`You failed swimming there\.`,
	`You failed to climb there and fall down, hurting yourself\.`,
	`Your mount cannot climb the tree!`,
	`No way! You are fighting for your life!`,
	`In your dreams, or what\?`,
	`You are too exhausted\.`,
	`You unsuccessfully try to break through the ice\.`,
	`Your mount refuses to follow your orders!`,
	`You are too exhausted to ride\.`,
	`You can't go into deep water!`,
	`You don't control your mount!`,
	`Your mount is too sensible to attempt such a feat\.`,
	`Oops! You cannot go there riding!`,
	`You'd better be swimming if you want to dive underwater\.`,
	`You need to climb to go there\.`,
	`You cannot climb there\.`,
	`If you still want to try, you must 'climb' there\.`,
	`Nah\.\.\. You feel too relaxed to do that\.`,
	`Maybe you should get on your feet first\?`,
	`Not from your present position!`,
	`.+ (?:prevents|keeps) you from going ` +
		`(?:north|south|east|west|up|down|upstairs|downstairs|past (?:him|her|it))\.`,
}, "|") + `)$`)

// Room names the game substitutes when the player cannot see.
var blindedNames = map[string]bool{
	"You just see a dense fog around you...": true,
	"It is pitch black...":                   true,
}

// HandleEvent consumes one game event. Must be called from the single
// consumer goroutine that owns the session.
func (s *Session) HandleEvent(ev events.Event) {
	// While scouting, room data describes a neighbor, not a move; only the
	// prompt (which ends the scout) and movement tags get through.
	if s.scouting && ev.Type != events.EvPrompt && ev.Type != events.EvMovement {
		return
	}
	switch ev.Type {
	case events.EvLine:
		s.handleLine(ev.Text)
	case events.EvMovement:
		s.handleMovement(ev.Text)
	case events.EvName:
		s.handleName(ev.Text)
	case events.EvDesc:
		s.description = strp(trimmed(ev.Text))
	case events.EvDynamic:
		s.handleDynamic(ev.Text)
	case events.EvTerrain:
		s.terrain = strp(ev.Text)
	case events.EvExits:
		s.exitsLine = strp(ev.Text)
	case events.EvPrompt:
		s.handlePrompt(ev.Text)
	}
}

// NoteSentMovement records a movement command the player (or the
// auto-walker) sent to the game, moving SYNCED to TENTATIVE with a
// predicted destination.
func (s *Session) NoteSentMovement(dir mapdb.Direction) {
	if s.State != Synced {
		return
	}
	s.State = Tentative
	s.prior = s.Current
	s.movement = strp(dir.String())
}

func (s *Session) handleLine(text string) {
	if strings.HasPrefix(text, "You quietly scout ") {
		s.scouting = true
		return
	}
	if movementForcedRegex.MatchString(text) {
		s.stopRun()
		if s.State == Tentative {
			// The game moved the player somewhere we cannot predict.
			s.Desync("Forced movement, no longer synced.")
		}
		return
	}
	if movementPreventedRegex.MatchString(text) {
		s.stopRun()
		if s.State == Tentative {
			// The move failed server-side; we are still in the prior room.
			s.Current = s.prior
			s.State = Synced
			s.movement = nil
		}
		return
	}
	if s.State != Unsynced && s.AutoMap && s.Current != nil {
		if text == "It's too difficult to ride here." && s.Current.Ridable != "not_ridable" {
			s.Current.Ridable = "not_ridable"
			s.output("Setting room ridable to 'not_ridable'.")
		} else if text == "You are already riding." && s.Current.Ridable != "ridable" {
			s.Current.Ridable = "ridable"
			s.output("Setting room ridable to 'ridable'.")
		}
	}
}

func (s *Session) handleMovement(direction string) {
	s.scouting = false
	s.movement = strp(strings.TrimSpace(direction))
	if s.State == Synced {
		s.State = Tentative
		s.prior = s.Current
	}
}

func (s *Session) handleName(text string) {
	if blindedNames[text] {
		s.roomName = strp("")
		return
	}
	s.roomName = strp(trimmed(text))
}

// handleDynamic fires when a room block closes: name, description, and
// dynamic text are all in hand, which is the synchronizer's decision point.
func (s *Session) handleDynamic(text string) {
	s.dynamic = strp(text)
	s.moved = nil
	switch s.State {
	case Unsynced:
		// Wait for the prompt; an unsynced match uses name+desc only.
	case Tentative:
		s.confirmMove()
	case Synced:
		if s.movement != nil {
			// Movement arrived without a sent command (follow, flee).
			s.State = Tentative
			s.prior = s.Current
			s.confirmMove()
		}
	}
}

// confirmMove resolves a TENTATIVE state against the room data just
// received, per the transition table: predicted destination confirms in
// place, a different known room relinks the exit, an unknown room is created
// and linked, and anything unusable desyncs.
func (s *Session) confirmMove() {
	movement := ""
	if s.movement != nil {
		movement = *s.movement
	}
	s.movement = nil
	if movement == "" {
		s.Desync("Forced movement, no longer synced.")
		return
	}
	dir, ok := mapdb.ParseDirection(movement)
	if !ok {
		s.Desync("Error: invalid direction '" + movement + "'. Map no longer synced!")
		return
	}
	if exit, ok := s.Current.Exits[dir]; ok && exit.To != mapdb.ToUndefined && exit.To != mapdb.ToDeath {
		if dest, ok := s.World.Rooms[exit.To]; ok {
			s.arrive(dest, dir)
			return
		}
	}
	if !s.AutoMap {
		s.Desync("Error: direction '" + dir.String() + "' is not mapped. Map no longer synced!")
		return
	}
	name, desc := "", ""
	if s.roomName != nil {
		name = *s.roomName
	}
	if s.description != nil {
		desc = *s.description
	}
	if name == "" {
		s.output("Unable to add new room: empty room name.")
		s.Desync("")
		return
	}
	if desc == "" {
		s.output("Unable to add new room: empty room description.")
		s.Desync("")
		return
	}
	if s.AutoMerge {
		if match := s.findExistingRoom(name, desc); match != nil {
			s.autoMergeRoom(dir, match)
			s.arrive(match, dir)
			return
		}
	}
	created := s.addNewRoom(dir, name, desc, stringOr(s.dynamic))
	s.arrive(created, dir)
}

// arrive commits a confirmed move into dest through dir. The exits line for
// the new room arrives after the room block closes, so exit reconciliation
// waits for the prompt.
func (s *Session) arrive(dest *mapdb.Room, dir mapdb.Direction) {
	s.Current = dest
	s.State = Synced
	s.moved = strp(dir.String())
	if s.AutoMap && s.AutoUpdate {
		s.updateRoomText()
	}
}

// updateRoomText refreshes the current room's text fields from the data
// just received, when autoupdate is on.
func (s *Session) updateRoomText() {
	if s.roomName != nil && *s.roomName != "" && s.Current.Name != *s.roomName {
		s.Current.Name = *s.roomName
		s.output("Updating room name.")
	}
	if s.description != nil && *s.description != "" && s.Current.Desc != *s.description {
		s.Current.Desc = *s.description
		s.output("Updating room description.")
	}
	if s.dynamic != nil && s.Current.DynamicDesc != *s.dynamic {
		s.Current.DynamicDesc = *s.dynamic
		s.output("Updating room dynamic description.")
	}
}

// findExistingRoom returns the room matching name exactly and description
// above the similarity threshold, but only if the match is unique.
func (s *Session) findExistingRoom(name, desc string) *mapdb.Room {
	var match *mapdb.Room
	for _, room := range s.World.Rooms {
		if room.Name != name {
			continue
		}
		if s.Similarity(room.Desc, desc) < s.Cfg.SimilarityThreshold {
			continue
		}
		if match != nil {
			return nil // ambiguous
		}
		match = room
	}
	return match
}

func (s *Session) autoMergeRoom(dir mapdb.Direction, room *mapdb.Room) {
	oneway := true
	if s.AutoLink {
		if back, ok := room.Exits[dir.Reverse()]; !ok || back.To == mapdb.ToUndefined {
			oneway = false
		}
	}
	if err := s.World.LinkExit(s.Current.Vnum, dir, room.Vnum, oneway); err != nil {
		s.output("%v", err)
		return
	}
	s.output("Auto merging '%s' with name '%s'.", room.Vnum, room.Name)
}

// addNewRoom creates a room one step in dir from the current room, links the
// traversed exit to it, and gives it coordinates extrapolated from here.
func (s *Session) addNewRoom(dir mapdb.Direction, name, desc, dynamic string) *mapdb.Room {
	vnum := s.World.NextVnum()
	room := mapdb.NewRoom(vnum)
	room.Name = name
	room.Desc = desc
	room.DynamicDesc = dynamic
	if s.Current.HasCoordinates {
		dx, dy, dz := dir.Offset()
		room.X, room.Y, room.Z = s.Current.X+dx, s.Current.Y+dy, s.Current.Z+dz
		room.HasCoordinates = true
	}
	if err := s.World.AddRoom(room); err != nil {
		s.output("%v", err)
		return room
	}
	ex, ok := s.Current.Exits[dir]
	if !ok {
		ex = mapdb.NewExit()
		s.Current.Exits[dir] = ex
	}
	ex.To = vnum
	s.output("Adding room '%s' with vnum '%s'", room.Name, vnum)
	return room
}

// handlePrompt closes out one room-data cycle. An unsynced session tries to
// locate itself; a synced one reports room details and feeds the auto-walker.
func (s *Session) handlePrompt(text string) {
	switch s.State {
	case Unsynced:
		if s.roomName != nil && *s.roomName != "" {
			s.syncFromRoomData(*s.roomName, stringOr(s.description))
		}
	default:
		if s.AutoMap && s.moved != nil {
			s.updateRoomFlags(text)
		}
	}
	if s.AutoMap && s.State == Synced && s.Current != nil {
		s.applyTerrain()
		s.applyExitsLine()
	}
	if s.State == Synced && s.dynamic != nil && s.Current != nil {
		s.roomDetails()
		if s.autoWalk && s.moved != nil {
			s.walkNextDirection()
		}
	}
	s.scouting = false
	s.movement = nil
	s.moved = nil
	s.roomName = nil
	s.description = nil
	s.dynamic = nil
	s.terrain = nil
	s.exitsLine = nil
	if s.State != Tentative {
		s.prior = nil
	}
}

// applyTerrain commits a terrain tag received this cycle. The tag arrives
// inside the room block, before a tentative move is confirmed, so it is
// buffered until the prompt fixes the current room.
func (s *Session) applyTerrain() {
	if s.terrain == nil {
		return
	}
	terrain := strings.ToLower(strings.TrimSpace(*s.terrain))
	s.terrain = nil
	if terrain == "" || terrain == s.Current.Terrain || s.Current.Terrain == "deathtrap" {
		return
	}
	for _, known := range mapdb.ValidTerrains {
		if known == terrain {
			s.Current.Terrain = terrain
			s.output("Setting room terrain to '%s'.", terrain)
			return
		}
	}
}

// applyExitsLine reconciles the current room against the exits line received
// this cycle. A just-entered room gets its return exit first, so the flag
// update sees a complete slot set.
func (s *Session) applyExitsLine() {
	if s.exitsLine == nil {
		return
	}
	line := *s.exitsLine
	s.exitsLine = nil
	if s.moved != nil {
		if dir, ok := mapdb.ParseDirection(*s.moved); ok {
			rev := dir.Reverse()
			if _, exists := s.Current.Exits[rev]; !exists && s.prior != nil &&
				strings.Contains(line, rev.String()) {
				back := mapdb.NewExit()
				back.To = s.prior.Vnum
				s.Current.Exits[rev] = back
			}
		}
	}
	s.updateExitFlags(line)
}

// syncFromRoomData locates the player from a name+description pair while
// UNSYNCED: one match syncs, none creates a room if automapping, several
// surface a disambiguation request.
func (s *Session) syncFromRoomData(name, desc string) {
	var matches []*mapdb.Room
	for _, room := range s.World.Rooms {
		if room.Name != name {
			continue
		}
		if desc != "" && s.Similarity(room.Desc, desc) < s.Cfg.SimilarityThreshold {
			continue
		}
		matches = append(matches, room)
	}
	switch {
	case len(matches) == 1:
		s.Current = matches[0]
		s.State = Synced
		s.output("Synced to room %s with vnum %s", matches[0].Name, matches[0].Vnum)
	case len(matches) == 0 && s.AutoMap:
		room := mapdb.NewRoom(s.World.NextVnum())
		room.Name = name
		room.Desc = desc
		room.DynamicDesc = stringOr(s.dynamic)
		if err := s.World.AddRoom(room); err != nil {
			s.output("%v", err)
			return
		}
		s.Current = room
		s.State = Synced
		s.output("Adding room '%s' with vnum '%s'", room.Name, room.Vnum)
	case len(matches) == 0:
		s.output("Current room not in the database. Unable to sync.")
	default:
		s.output("More than one room in the database matches the current room. Unable to sync.")
	}
}

// roomDetails reports doors, death traps, one-way and unmapped exits, and
// the room note after each confirmed room.
func (s *Session) roomDetails() {
	var doors, deathTraps, oneWays, undefineds []string
	for _, dir := range s.Current.SortedExits() {
		ex := s.Current.Exits[dir]
		if ex.Door != "" && ex.Door != "exit" {
			doors = append(doors, dir.String()+": "+ex.Door)
		}
		switch {
		case ex.To == "" || ex.To == mapdb.ToUndefined:
			undefineds = append(undefineds, dir.String())
		case ex.To == mapdb.ToDeath:
			deathTraps = append(deathTraps, dir.String())
		case !s.World.IsBidirectional(s.Current.Vnum, dir):
			oneWays = append(oneWays, dir.String())
		}
	}
	if len(doors) > 0 {
		s.output("Doors: %s", strings.Join(doors, ", "))
	}
	if len(deathTraps) > 0 {
		s.output("Death Traps: %s", strings.Join(deathTraps, ", "))
	}
	if len(oneWays) > 0 {
		s.output("One ways: %s", strings.Join(oneWays, ", "))
	}
	if len(undefineds) > 0 {
		s.output("Undefineds: %s", strings.Join(undefineds, ", "))
	}
	if s.Current.Note != "" {
		s.output("Note: %s", s.Current.Note)
	}
}

// updateRoomFlags mines the prompt's light/terrain/movement symbols for
// corrections to the current room while automapping.
func (s *Session) updateRoomFlags(prompt string) {
	m := promptRegex.FindStringSubmatch(prompt)
	if m == nil {
		return
	}
	groups := make(map[string]string)
	for i, name := range promptRegex.SubexpNames() {
		if name != "" && i < len(m) {
			groups[name] = m[i]
		}
	}
	if light, ok := lightSymbols[groups["light"]]; ok {
		if light == "lit" && s.Current.Light != light {
			s.Current.Light = light
			s.output("Setting room light to 'lit'.")
		}
	}
	if terrain, ok := terrainSymbols[groups["terrain"]]; ok {
		if s.Current.Terrain != terrain && s.Current.Terrain != "deathtrap" {
			s.Current.Terrain = terrain
			s.output("Setting room terrain to '%s'.", terrain)
		}
	}
	if strings.ContainsAny(groups["moveflags"], "Rr") && s.Current.Ridable != "ridable" {
		s.Current.Ridable = "ridable"
		s.output("Setting room ridable to 'ridable'.")
	}
}

// updateExitFlags reconciles the current room's exit slots with the marked
// exits line: missing exits are added (and coordinate-linked when autolink
// is on), and door/road/climb markers become exit flags.
func (s *Session) updateExitFlags(exits string) {
	for _, m := range exitTagsRegex.FindAllStringSubmatch(exits, -1) {
		door, road, climb, portal, word := m[1], m[2], m[3], m[4], m[5]
		if portal != "" {
			continue // portals are not real exits
		}
		dir, ok := mapdb.ParseDirection(word)
		if !ok {
			continue
		}
		ex, exists := s.Current.Exits[dir]
		if !exists {
			s.output("Adding exit '%s' to current room.", dir)
			ex = mapdb.NewExit()
			s.Current.Exits[dir] = ex
			if s.AutoLink && s.Current.HasCoordinates {
				s.linkByCoordinates(dir)
			}
		}
		if door != "" && !ex.ExitFlags.Has("door") {
			ex.ExitFlags.Add("door")
			s.output("Exit flag 'door' in direction '%s' added.", dir)
		}
		if road != "" && !ex.ExitFlags.Has("road") {
			ex.ExitFlags.Add("road")
			s.output("Exit flag 'road' in direction '%s' added.", dir)
		}
		if climb != "" && !ex.ExitFlags.Has("climb") {
			ex.ExitFlags.Add("climb")
			s.output("Exit flag 'climb' in direction '%s' added.", dir)
		}
	}
}

// linkByCoordinates links a just-discovered exit to the unique room sitting
// one step away in that direction, if its return slot is free.
func (s *Session) linkByCoordinates(dir mapdb.Direction) {
	dx, dy, dz := dir.Offset()
	x, y, z := s.Current.X+dx, s.Current.Y+dy, s.Current.Z+dz
	var match *mapdb.Room
	for _, room := range s.World.Rooms {
		if !room.HasCoordinates || room.X != x || room.Y != y || room.Z != z {
			continue
		}
		if match != nil {
			return // ambiguous; leave unlinked
		}
		match = room
	}
	if match == nil {
		return
	}
	back, ok := match.Exits[dir.Reverse()]
	if !ok || back.To != mapdb.ToUndefined {
		return
	}
	if err := s.World.LinkExit(s.Current.Vnum, dir, match.Vnum, false); err == nil {
		s.output("Linking direction %s to %s with name '%s'.", dir, match.Vnum, match.Name)
	}
}

func stringOr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
