// Package mume implements the streaming parser for MUME's inline XML-like
// markup. The game wraps room output in start/end tags (<room>, <name>,
// <description>, <terrain>, <exits>, <prompt>, <movement dir=.../>); the
// parser strips them from the pass-through stream and emits typed events.
package mume

import (
	"bytes"
	"strings"

	"github.com/arda-maps/gomapper/pkg/events"
)

// OutputFormat selects what the player's client receives.
type OutputFormat int

const (
	FormatPlain OutputFormat = iota // Tags stripped, entities unescaped
	FormatRaw                       // Markup passed through untouched
)

// ParseOutputFormat maps config spellings to a format. "marked" is accepted
// as an alias for raw, matching the user-facing reference.
func ParseOutputFormat(name string) (OutputFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "plain", "normal":
		return FormatPlain, true
	case "raw", "marked":
		return FormatRaw, true
	default:
		return FormatPlain, false
	}
}

// maxDepth bounds tag nesting: rooms, exits, and prompts never nest more
// than two deep (room > name). Deeper nesting is a protocol error.
const maxDepth = 2

// parser states.
const (
	stateText = iota
	stateTag
)

// frame is one open tag context on the explicit stack.
type frame struct {
	tag  string
	text []byte
}

// Parser is the incremental markup decoder for the game stream. Feed returns
// the pass-through bytes for the player; typed events are emitted through
// the Emit callback in document order. Partial tags are buffered across
// chunks; Flush releases them as plain text at connection teardown.
type Parser struct {
	Emit   func(ev events.Event)
	Format OutputFormat

	state       int
	tagBuf      []byte
	lineBuf     []byte
	stack       []frame
	gratuitous  bool
	entityCarry []byte
}

// NewParser returns a parser emitting events through emit.
func NewParser(emit func(events.Event), format OutputFormat) *Parser {
	return &Parser{Emit: emit, Format: format}
}

// Feed consumes one chunk of tag-bearing text (already telnet- and
// MPI-stripped) and returns the bytes to forward to the player.
func (p *Parser) Feed(data []byte) []byte {
	var out []byte
	for _, b := range data {
		switch p.state {
		case stateText:
			if b == '<' {
				p.state = stateTag
				continue
			}
			out = p.appendText(out, b)
		case stateTag:
			if b != '>' {
				p.tagBuf = append(p.tagBuf, b)
				continue
			}
			tag := string(p.tagBuf)
			p.tagBuf = p.tagBuf[:0]
			p.state = stateText
			if p.Format == FormatRaw {
				out = append(out, '<')
				out = append(out, tag...)
				out = append(out, '>')
			}
			p.handleTag(tag)
		}
	}
	if p.Format == FormatPlain {
		if len(p.entityCarry) > 0 {
			out = append(append([]byte(nil), p.entityCarry...), out...)
			p.entityCarry = nil
		}
		var tail []byte
		out, tail = splitPartialEntity(out)
		p.entityCarry = append([]byte(nil), tail...)
		if bytes.IndexByte(out, '&') >= 0 {
			out = []byte(Unescape(string(out)))
		}
	}
	return out
}

// entityNames lists the entities the game emits, minus the ampersand.
var entityNames = []string{"lt;", "gt;", "quot;", "amp;"}

// splitPartialEntity trims a trailing incomplete entity from out so
// unescaping never straddles a chunk boundary. The tail is carried into the
// next Feed call.
func splitPartialEntity(out []byte) (head, tail []byte) {
	i := bytes.LastIndexByte(out, '&')
	if i < 0 {
		return out, nil
	}
	rest := out[i+1:]
	if bytes.IndexByte(rest, ';') >= 0 {
		return out, nil
	}
	for _, name := range entityNames {
		if len(rest) < len(name) && name[:len(rest)] == string(rest) {
			return out[:i], out[i:]
		}
	}
	return out, nil
}

// appendText routes one plain byte: into the innermost open tag's buffer,
// or into the line buffer and pass-through when no tag is open.
func (p *Parser) appendText(out []byte, b byte) []byte {
	if len(p.stack) > 0 {
		p.stack[len(p.stack)-1].text = append(p.stack[len(p.stack)-1].text, b)
	} else {
		p.lineBuf = append(p.lineBuf, b)
		if b == '\n' {
			p.emitLine()
		}
	}
	if p.Format == FormatRaw {
		return append(out, b)
	}
	if p.gratuitous {
		return out
	}
	return append(out, b)
}

func (p *Parser) emitLine() {
	line := strings.TrimRight(string(p.lineBuf), "\r\n")
	p.lineBuf = p.lineBuf[:0]
	if strings.TrimSpace(line) == "" {
		return
	}
	p.emit(events.Event{Type: events.EvLine, Text: Unescape(line)})
}

func (p *Parser) handleTag(tag string) {
	switch {
	case tag == "":
		return
	case strings.HasPrefix(tag, "movement"):
		// Self-closing: <movement dir=north/> or <movement/>.
		dir := strings.TrimSuffix(strings.TrimPrefix(tag, "movement"), "/")
		dir = strings.TrimPrefix(strings.TrimSpace(dir), "dir=")
		p.emit(events.Event{Type: events.EvMovement, Text: dir})
	case tag == "gratuitous":
		p.gratuitous = true
	case tag == "/gratuitous":
		p.gratuitous = false
	case strings.HasPrefix(tag, "/"):
		p.closeTag(tag[1:])
	default:
		p.openTag(tagName(tag))
	}
}

func (p *Parser) openTag(name string) {
	if !isKnownTag(name) {
		return
	}
	if len(p.stack) >= maxDepth {
		// Protocol error: too deep. Flush everything buffered as plain
		// content and resync on this tag.
		p.recoverStack()
	}
	p.stack = append(p.stack, frame{tag: name})
}

func (p *Parser) closeTag(name string) {
	name = tagName(name)
	if !isKnownTag(name) {
		return
	}
	// Pop frames until the matching one is found; mismatches flush their
	// text as plain lines.
	for len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]
		if top.tag == name {
			p.emitFrame(top)
			return
		}
		p.lineBuf = append(p.lineBuf, top.text...)
	}
}

func (p *Parser) emitFrame(f frame) {
	text := Unescape(string(f.text))
	switch f.tag {
	case "name":
		p.emit(events.Event{Type: events.EvName, Text: text})
	case "description":
		p.emit(events.Event{Type: events.EvDesc, Text: text})
	case "terrain":
		p.emit(events.Event{Type: events.EvTerrain, Text: text})
	case "room":
		p.emit(events.Event{Type: events.EvDynamic, Text: text})
	case "exits":
		p.emit(events.Event{Type: events.EvExits, Text: text})
	case "prompt":
		p.emit(events.Event{Type: events.EvPrompt, Text: text})
	}
}

// recoverStack abandons all open tag contexts, pushing their buffered text
// back through the line path so nothing is silently dropped.
func (p *Parser) recoverStack() {
	for _, f := range p.stack {
		p.lineBuf = append(p.lineBuf, f.text...)
	}
	p.stack = p.stack[:0]
}

// Flush releases buffered partial state as plain text and resets the
// parser. Called on connection teardown, never mid-tag during a session.
func (p *Parser) Flush() []byte {
	var out []byte
	if len(p.entityCarry) > 0 {
		out = append(out, p.entityCarry...)
		p.entityCarry = nil
	}
	if p.state == stateTag {
		out = append(out, '<')
		out = append(out, p.tagBuf...)
		p.tagBuf = p.tagBuf[:0]
		p.state = stateText
	}
	p.recoverStack()
	if len(p.lineBuf) > 0 {
		p.emitLine()
	}
	p.gratuitous = false
	return out
}

func (p *Parser) emit(ev events.Event) {
	if p.Emit != nil {
		p.Emit(ev)
	}
}

// tagName strips attributes and any self-closing slash from a tag.
func tagName(tag string) string {
	tag = strings.TrimSuffix(tag, "/")
	if i := strings.IndexByte(tag, ' '); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

func isKnownTag(name string) bool {
	switch name {
	case "room", "name", "description", "terrain", "exits", "prompt":
		return true
	}
	return false
}

var unescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&amp;", "&",
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// Unescape replaces the XML entities the game emits.
func Unescape(text string) string { return unescaper.Replace(text) }

// Escape encodes text for embedding in raw-format output.
func Escape(text string) string { return escaper.Replace(text) }
