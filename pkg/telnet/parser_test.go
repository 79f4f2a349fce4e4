package telnet

import (
	"bytes"
	"testing"
)

type recorder struct {
	data    []byte
	cmds    []byte
	negs    [][2]byte
	subs    []struct {
		opt  byte
		data []byte
	}
	gaCount int
}

func newRecorder() (*recorder, *Parser) {
	r := &recorder{}
	p := &Parser{
		OnData:    func(d []byte) { r.data = append(r.data, d...) },
		OnCommand: func(c byte) { r.cmds = append(r.cmds, c) },
		OnNegotiation: func(cmd, opt byte) {
			r.negs = append(r.negs, [2]byte{cmd, opt})
		},
		OnSubnegotiation: func(opt byte, data []byte) {
			r.subs = append(r.subs, struct {
				opt  byte
				data []byte
			}{opt, data})
		},
		OnGoAhead: func() { r.gaCount++ },
	}
	return r, p
}

func TestDataAndLineEndings(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"plain", []byte("hello"), []byte("hello")},
		{"crlf", []byte("a\r\nb"), []byte("a\nb")},
		{"crnul", []byte("a\r\x00b"), []byte("a\rb")},
		{"bare cr before data", []byte("a\rb"), []byte("a\rb")},
		{"escaped iac", []byte{'a', IAC, IAC, 'b'}, []byte{'a', IAC, 'b'}},
	}
	for _, tt := range tests {
		r, p := newRecorder()
		p.Feed(tt.in)
		p.Flush()
		if !bytes.Equal(r.data, tt.want) {
			t.Errorf("%s: data = %q, want %q", tt.name, r.data, tt.want)
		}
	}
}

func TestNegotiationAndGoAhead(t *testing.T) {
	r, p := newRecorder()
	p.Feed([]byte{IAC, WILL, 42, 'h', 'i', IAC, GA})
	if len(r.negs) != 1 || r.negs[0] != [2]byte{WILL, 42} {
		t.Errorf("negs = %v", r.negs)
	}
	if string(r.data) != "hi" {
		t.Errorf("data = %q", r.data)
	}
	if r.gaCount != 1 {
		t.Errorf("gaCount = %d, want 1", r.gaCount)
	}
}

func TestSubnegotiation(t *testing.T) {
	r, p := newRecorder()
	payload := []byte{'x', IAC, IAC, 'y'}
	p.Feed(append(append([]byte{IAC, SB, 24}, payload...), IAC, SE))
	if len(r.subs) != 1 {
		t.Fatalf("subs = %v", r.subs)
	}
	if r.subs[0].opt != 24 || !bytes.Equal(r.subs[0].data, []byte{'x', IAC, 'y'}) {
		t.Errorf("sub = %d %q", r.subs[0].opt, r.subs[0].data)
	}
}

// Sequences split at any byte boundary must decode identically to the whole.
func TestSplitChunkEquivalence(t *testing.T) {
	whole := []byte{
		'a', '\r', '\n', IAC, WILL, 1, 'b', IAC, IAC,
		IAC, SB, 24, 'x', IAC, SE, IAC, GA, 'c', '\r', '\x00',
	}
	want, p := newRecorder()
	p.Feed(whole)
	p.Flush()
	for i := 1; i < len(whole); i++ {
		got, p := newRecorder()
		p.Feed(whole[:i])
		p.Feed(whole[i:])
		p.Flush()
		if !bytes.Equal(got.data, want.data) {
			t.Fatalf("split at %d: data = %q, want %q", i, got.data, want.data)
		}
		if len(got.negs) != len(want.negs) || len(got.subs) != len(want.subs) || got.gaCount != want.gaCount {
			t.Fatalf("split at %d: control sequences diverge", i)
		}
	}
}

func TestFlushTrailingCR(t *testing.T) {
	r, p := newRecorder()
	p.Feed([]byte("end\r"))
	if string(r.data) != "end" {
		t.Errorf("data before flush = %q", r.data)
	}
	p.Flush()
	if string(r.data) != "end\r" {
		t.Errorf("data after flush = %q", r.data)
	}
}

func TestNormalizeOutbound(t *testing.T) {
	in := []byte{'a', '\n', 'b', '\r', IAC}
	want := []byte{'a', CR, LF, 'b', CR, NUL, IAC, IAC}
	if got := NormalizeOutbound(in); !bytes.Equal(got, want) {
		t.Errorf("NormalizeOutbound = %v, want %v", got, want)
	}
}

func TestSubnegotiationFraming(t *testing.T) {
	got := Subnegotiation(24, []byte{'t', IAC})
	want := []byte{IAC, SB, 24, 't', IAC, IAC, IAC, SE}
	if !bytes.Equal(got, want) {
		t.Errorf("Subnegotiation = %v, want %v", got, want)
	}
}
