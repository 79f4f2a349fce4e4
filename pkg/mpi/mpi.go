// Package mpi implements the MUME remote-editing sideband protocol (MPI).
// MPI frames are embedded in the game's text stream at line starts: the
// escape "~$#E", a one-byte command, a decimal payload length terminated by
// a newline, then exactly that many payload bytes. Frames are consumed here
// and never reach the player's stream.
package mpi

import (
	"bytes"
	"fmt"
	"log"
	"strconv"
)

// Init is the MPI escape sequence.
var Init = []byte("~$#E")

// MPI command codes.
const (
	CmdEdit    byte = 'E'
	CmdView    byte = 'V'
	CmdInit    byte = 'I'
	CmdXML     byte = 'X'
	CmdPrompt  byte = 'P'
	CmdVersion byte = 'v'
)

// maxLengthDigits bounds the length line so a corrupt frame cannot make the
// handler buffer forever.
const maxLengthDigits = 10

// Editor performs edit and view sessions on behalf of the handler. Edit
// returns the replacement text and whether the user actually changed it;
// an unchanged session is answered with a cancel frame.
type Editor interface {
	Edit(session, title, body string) (text string, changed bool, err error)
	View(title, body string) error
}

// handler states.
const (
	stateScan = iota
	stateInit
	stateCommand
	stateLength
	statePayload
)

// Handler extracts MPI frames from the game stream. Feed returns the bytes
// that should continue downstream; everything belonging to an MPI frame is
// consumed. Edit and view sessions run on their own goroutines so the relay
// never blocks on an external editor.
type Handler struct {
	// Send writes a reply toward the game. It must be safe for concurrent
	// use; replies may come from editor goroutines.
	Send func(data []byte)
	// Editor handles edit/view sessions. Nil disables them (frames are
	// still consumed).
	Editor Editor
	// OnUnknown is invoked for unrecognized command codes. The default
	// answers the game with a no-op frame so the session keeps flowing.
	OnUnknown func(cmd byte, payload []byte)

	state       int
	initMatched int
	command     byte
	lengthBuf   []byte
	payload     []byte
	needed      int
	atLineStart bool
}

// NewHandler returns a handler ready to filter a fresh game stream.
func NewHandler(send func([]byte), editor Editor) *Handler {
	return &Handler{Send: send, Editor: editor, atLineStart: true}
}

// Feed consumes one chunk of game data and returns the pass-through bytes.
func (h *Handler) Feed(data []byte) []byte {
	var out []byte
	for _, b := range data {
		switch h.state {
		case stateScan:
			if h.atLineStart && b == Init[0] {
				h.state = stateInit
				h.initMatched = 1
				continue
			}
			h.atLineStart = b == '\n'
			out = append(out, b)
		case stateInit:
			if b == Init[h.initMatched] {
				h.initMatched++
				if h.initMatched == len(Init) {
					h.state = stateCommand
				}
				continue
			}
			// Not MPI after all; release what we swallowed.
			out = append(out, Init[:h.initMatched]...)
			out = append(out, b)
			h.atLineStart = b == '\n'
			h.initMatched = 0
			h.state = stateScan
		case stateCommand:
			h.command = b
			h.lengthBuf = h.lengthBuf[:0]
			h.state = stateLength
		case stateLength:
			if b == '\n' {
				n, err := strconv.Atoi(string(h.lengthBuf))
				if err != nil || n < 0 {
					// Invalid length. Emit the frame so far as text and resync.
					out = append(out, Init...)
					out = append(out, h.command)
					out = append(out, h.lengthBuf...)
					out = append(out, '\n')
					h.reset()
					continue
				}
				h.needed = n
				h.payload = h.payload[:0]
				if n == 0 {
					h.dispatch()
					h.reset()
				} else {
					h.state = statePayload
				}
				continue
			}
			if b < '0' || b > '9' || len(h.lengthBuf) >= maxLengthDigits {
				out = append(out, Init...)
				out = append(out, h.command)
				out = append(out, h.lengthBuf...)
				out = append(out, b)
				h.reset()
				continue
			}
			h.lengthBuf = append(h.lengthBuf, b)
		case statePayload:
			h.payload = append(h.payload, b)
			if len(h.payload) == h.needed {
				h.dispatch()
				h.reset()
			}
		}
	}
	return out
}

// Flush releases a partially buffered frame as plain text, for connection
// teardown.
func (h *Handler) Flush() []byte {
	var out []byte
	switch h.state {
	case stateInit:
		out = append(out, Init[:h.initMatched]...)
	case stateCommand:
		out = append(out, Init...)
	case stateLength:
		out = append(out, Init...)
		out = append(out, h.command)
		out = append(out, h.lengthBuf...)
	case statePayload:
		out = append(out, Init...)
		out = append(out, h.command)
		out = append(out, []byte(strconv.Itoa(h.needed))...)
		out = append(out, '\n')
		out = append(out, h.payload...)
	}
	h.reset()
	return out
}

func (h *Handler) reset() {
	h.state = stateScan
	h.initMatched = 0
	h.lengthBuf = h.lengthBuf[:0]
	h.payload = h.payload[:0]
	h.needed = 0
	h.atLineStart = true
}

func (h *Handler) dispatch() {
	payload := append([]byte(nil), h.payload...)
	switch h.command {
	case CmdEdit:
		go h.runEdit(payload)
	case CmdView:
		go h.runView(payload)
	default:
		if h.OnUnknown != nil {
			h.OnUnknown(h.command, payload)
			return
		}
		log.Printf("mpi: unknown command %q, answering no-op", h.command)
		h.Send(Frame(CmdInit, nil))
	}
}

// runEdit answers an edit request: E<session>\n<text> on save, C<session>
// on cancel.
func (h *Handler) runEdit(payload []byte) {
	if len(payload) < 1 {
		return
	}
	parts := bytes.SplitN(payload[1:], []byte("\n"), 3)
	if len(parts) != 3 {
		log.Printf("mpi: malformed edit payload")
		return
	}
	session, title, body := string(parts[0]), string(parts[1]), string(parts[2])
	if h.Editor == nil {
		h.Send(Frame(CmdEdit, []byte("C"+session)))
		return
	}
	text, changed, err := h.Editor.Edit(session, title, body)
	if err != nil || !changed {
		if err != nil {
			log.Printf("mpi: edit session %s: %v", session, err)
		}
		h.Send(Frame(CmdEdit, []byte("C"+session)))
		return
	}
	response := "E" + session + "\n" + text
	h.Send(Frame(CmdEdit, []byte(response)))
}

func (h *Handler) runView(payload []byte) {
	if h.Editor == nil {
		return
	}
	parts := bytes.SplitN(payload, []byte("\n"), 2)
	title, body := "", string(payload)
	if len(parts) == 2 {
		title, body = string(parts[0]), string(parts[1])
	}
	if err := h.Editor.View(title, body); err != nil {
		log.Printf("mpi: view session: %v", err)
	}
}

// Frame builds an outbound MPI frame: escape, command, length line, payload.
func Frame(cmd byte, payload []byte) []byte {
	out := make([]byte, 0, len(Init)+len(payload)+12)
	out = append(out, Init...)
	out = append(out, cmd)
	out = append(out, []byte(fmt.Sprintf("%d\n", len(payload)))...)
	return append(out, payload...)
}

// XMLModeRequest asks the game to enable XML output without an initial
// wrapper tag ("3") and with gratuitous room wrapping ("G").
func XMLModeRequest() []byte {
	return append(append([]byte(nil), Init...), []byte("X2\n3G\n")...)
}

// PromptFlagsRequest asks the game to terminate prompts with IAC GA.
func PromptFlagsRequest() []byte {
	return append(append([]byte(nil), Init...), []byte("P2\nG\n")...)
}
