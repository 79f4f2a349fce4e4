// Package telnet implements a streaming telnet parser for both sides of the
// proxy. It strips IAC command sequences and subnegotiations out of the byte
// stream, reports them to callbacks, and normalizes line endings, leaving a
// clean application-data stream behind.
package telnet

// Telnet protocol constants.
const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // Subnegotiation Begin
	GA   byte = 249 // Go Ahead (prompt terminator)
	NOP  byte = 241
	SE   byte = 240 // Subnegotiation End

	// Options negotiated by the proxy.
	OptEcho    byte = 1
	OptCharset byte = 42
)

// Charset subnegotiation codes.
const (
	CharsetRequest  byte = 1
	CharsetAccepted byte = 2
	CharsetRejected byte = 3
)

// ASCII control bytes the parser normalizes.
const (
	CR  byte = '\r'
	LF  byte = '\n'
	NUL byte = 0
)
