package telnet

import "strings"

// defaultCharsets is the preference order used when the game offers a
// character set choice.
var defaultCharsets = []string{"UTF-8", "ISO-8859-1", "US-ASCII"}

// Charset performs RFC 2066 character set negotiation with the game on the
// player's behalf. The relay offers negotiation traffic to it first and
// forwards anything it does not consume.
type Charset struct {
	// Preferred lists acceptable charsets, most preferred first. Empty
	// means defaultCharsets.
	Preferred []string
	// Send writes a reply toward the game.
	Send func(data []byte)

	// Accepted is the charset agreed with the game, empty until one is.
	Accepted string
}

// HandleNegotiation agrees to negotiate when the game sends WILL or DO
// CHARSET. The bool result is false if the option is not CHARSET.
func (c *Charset) HandleNegotiation(cmd, opt byte) bool {
	if opt != OptCharset {
		return false
	}
	switch cmd {
	case WILL:
		c.Send(Negotiation(DO, OptCharset))
	case DO:
		c.Send(Negotiation(WILL, OptCharset))
	}
	return true
}

// HandleSubnegotiation answers a CHARSET REQUEST with the first offered
// charset on the preference list, or rejects the request when none matches.
// The request payload is REQUEST, a separator byte, then the separator-joined
// charset names.
func (c *Charset) HandleSubnegotiation(opt byte, data []byte) bool {
	if opt != OptCharset {
		return false
	}
	if len(data) < 2 || data[0] != CharsetRequest {
		return true
	}
	sep := string(data[1:2])
	offered := strings.Split(string(data[2:]), sep)
	prefs := c.Preferred
	if len(prefs) == 0 {
		prefs = defaultCharsets
	}
	for _, want := range prefs {
		for _, have := range offered {
			if strings.EqualFold(have, want) {
				c.Accepted = have
				c.Send(Subnegotiation(OptCharset, append([]byte{CharsetAccepted}, have...)))
				return true
			}
		}
	}
	c.Send(Subnegotiation(OptCharset, []byte{CharsetRejected}))
	return true
}
