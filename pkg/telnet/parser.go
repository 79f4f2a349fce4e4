package telnet

import "bytes"

// parser states.
const (
	stateData = iota
	stateCR
	stateIAC
	stateNegotiation
	stateSubnegOption
	stateSubnegData
	stateSubnegIAC
)

// Parser is an incremental telnet decoder. Feed it raw bytes in arbitrary
// chunks; it invokes the callbacks in stream order. Nil callbacks are
// skipped. The parser never blocks and keeps partial sequences buffered
// across calls.
type Parser struct {
	// OnData receives application bytes with IAC sequences removed and
	// CR LF / CR NUL collapsed to LF / CR.
	OnData func(data []byte)
	// OnCommand receives two-byte commands (IAC NOP and friends). GA is
	// reported through OnGoAhead instead when that callback is set.
	OnCommand func(cmd byte)
	// OnNegotiation receives WILL/WONT/DO/DONT options.
	OnNegotiation func(cmd, opt byte)
	// OnSubnegotiation receives the payload between IAC SB <opt> and IAC SE.
	OnSubnegotiation func(opt byte, data []byte)
	// OnGoAhead is called for IAC GA, the game's prompt terminator.
	OnGoAhead func()

	state     int
	command   byte
	subOption byte
	subData   []byte
	pending   []byte
}

// Feed consumes one chunk. Each chunk is fully processed before Feed
// returns, so per-stream ordering is preserved by calling it serially.
func (p *Parser) Feed(chunk []byte) {
	for _, b := range chunk {
		switch p.state {
		case stateData:
			switch b {
			case IAC:
				p.flushData()
				p.state = stateIAC
			case CR:
				p.state = stateCR
			default:
				p.pending = append(p.pending, b)
			}
		case stateCR:
			// CR LF is a newline, CR NUL is a bare carriage return.
			switch b {
			case LF:
				p.pending = append(p.pending, LF)
				p.state = stateData
			case NUL:
				p.pending = append(p.pending, CR)
				p.state = stateData
			case IAC:
				p.pending = append(p.pending, CR)
				p.flushData()
				p.state = stateIAC
			case CR:
				p.pending = append(p.pending, CR)
			default:
				p.pending = append(p.pending, CR, b)
				p.state = stateData
			}
		case stateIAC:
			switch b {
			case IAC:
				// Escaped 255 data byte.
				p.pending = append(p.pending, IAC)
				p.state = stateData
			case WILL, WONT, DO, DONT:
				p.command = b
				p.state = stateNegotiation
			case SB:
				p.state = stateSubnegOption
			case GA:
				if p.OnGoAhead != nil {
					p.OnGoAhead()
				} else if p.OnCommand != nil {
					p.OnCommand(GA)
				}
				p.state = stateData
			default:
				if p.OnCommand != nil {
					p.OnCommand(b)
				}
				p.state = stateData
			}
		case stateNegotiation:
			if p.OnNegotiation != nil {
				p.OnNegotiation(p.command, b)
			}
			p.state = stateData
		case stateSubnegOption:
			p.subOption = b
			p.subData = p.subData[:0]
			p.state = stateSubnegData
		case stateSubnegData:
			if b == IAC {
				p.state = stateSubnegIAC
			} else {
				p.subData = append(p.subData, b)
			}
		case stateSubnegIAC:
			switch b {
			case SE:
				if p.OnSubnegotiation != nil {
					p.OnSubnegotiation(p.subOption, append([]byte(nil), p.subData...))
				}
				p.subData = p.subData[:0]
				p.state = stateData
			case IAC:
				p.subData = append(p.subData, IAC)
				p.state = stateSubnegData
			default:
				// Malformed subnegotiation. Drop it and resync on data.
				p.subData = p.subData[:0]
				p.state = stateData
			}
		}
	}
	p.flushData()
}

// Flush emits any buffered trailing bytes (a bare CR at chunk end) as data
// and resets the state machine. Called on connection teardown.
func (p *Parser) Flush() {
	if p.state == stateCR {
		p.pending = append(p.pending, CR)
	}
	p.flushData()
	p.state = stateData
	p.subData = p.subData[:0]
}

func (p *Parser) flushData() {
	if len(p.pending) == 0 {
		return
	}
	if p.OnData != nil {
		p.OnData(p.pending)
	}
	p.pending = nil
}

// EscapeIAC doubles every IAC byte so data can be written inside a telnet
// stream verbatim.
func EscapeIAC(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte{IAC}, []byte{IAC, IAC})
}

// Negotiation builds an IAC <cmd> <opt> sequence.
func Negotiation(cmd, opt byte) []byte {
	return []byte{IAC, cmd, opt}
}

// Subnegotiation frames a payload as IAC SB <opt> <data> IAC SE, escaping
// IACs within the payload.
func Subnegotiation(opt byte, data []byte) []byte {
	out := make([]byte, 0, len(data)+5)
	out = append(out, IAC, SB, opt)
	out = append(out, EscapeIAC(data)...)
	return append(out, IAC, SE)
}

// NormalizeOutbound prepares application text for the wire: escapes IACs,
// then rewrites bare CR to CR NUL and LF to CR LF.
func NormalizeOutbound(data []byte) []byte {
	data = EscapeIAC(data)
	var out []byte
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case CR:
			out = append(out, CR, NUL)
		case LF:
			out = append(out, CR, LF)
		default:
			out = append(out, data[i])
		}
	}
	return out
}
