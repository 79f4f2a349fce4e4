package mume

import (
	"reflect"
	"testing"

	"github.com/arda-maps/gomapper/pkg/events"
)

const sampleRoom = "<room><name>The Fountain Square</name>\n" +
	"<description>A wide square around a fountain.\n</description>" +
	"A beggar is here.\n</room>" +
	"<exits>Exits: north, east.\n</exits>" +
	"<prompt>*f&gt; </prompt>"

func collect(t *testing.T, format OutputFormat, chunks ...[]byte) ([]events.Event, string) {
	t.Helper()
	var got []events.Event
	p := NewParser(func(ev events.Event) { got = append(got, ev) }, format)
	var out []byte
	for _, chunk := range chunks {
		out = append(out, p.Feed(chunk)...)
	}
	out = append(out, p.Flush()...)
	return got, string(out)
}

func TestRoomEvents(t *testing.T) {
	got, out := collect(t, FormatPlain, []byte(sampleRoom))
	want := []events.Event{
		{Type: events.EvName, Text: "The Fountain Square"},
		{Type: events.EvDesc, Text: "A wide square around a fountain.\n"},
		{Type: events.EvDynamic, Text: "\nA beggar is here.\n"},
		{Type: events.EvExits, Text: "Exits: north, east.\n"},
		{Type: events.EvPrompt, Text: "*f> "},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	wantOut := "The Fountain Square\nA wide square around a fountain.\nA beggar is here.\nExits: north, east.\n*f> "
	if out != wantOut {
		t.Errorf("passthrough = %q, want %q", out, wantOut)
	}
}

// Feeding the stream split at an arbitrary byte boundary, even inside a tag,
// must produce the same events and passthrough as feeding it whole.
func TestSplitChunkEquivalence(t *testing.T) {
	whole := []byte(sampleRoom)
	wantEvents, wantOut := collect(t, FormatPlain, whole)
	for i := 1; i < len(whole); i++ {
		gotEvents, gotOut := collect(t, FormatPlain, whole[:i], whole[i:])
		if !reflect.DeepEqual(gotEvents, wantEvents) {
			t.Fatalf("split at %d: events diverge: %v", i, gotEvents)
		}
		if gotOut != wantOut {
			t.Fatalf("split at %d: passthrough = %q, want %q", i, gotOut, wantOut)
		}
	}
}

func TestSplitTagOpen(t *testing.T) {
	got, _ := collect(t, FormatPlain, []byte("<na"), []byte("me>Foo</name>"))
	want := []events.Event{{Type: events.EvName, Text: "Foo"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestMovementTag(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"<movement dir=north/>", "north"},
		{"<movement dir=down/>", "down"},
		{"<movement/>", ""},
	}
	for _, tt := range tests {
		got, _ := collect(t, FormatPlain, []byte(tt.tag))
		if len(got) != 1 || got[0].Type != events.EvMovement || got[0].Text != tt.want {
			t.Errorf("%s: events = %v, want movement %q", tt.tag, got, tt.want)
		}
	}
}

func TestGratuitousSuppressedInPlain(t *testing.T) {
	in := []byte("before\n<gratuitous>hidden\n</gratuitous>after\n")
	_, out := collect(t, FormatPlain, in)
	if out != "before\nafter\n" {
		t.Errorf("plain passthrough = %q", out)
	}
	_, out = collect(t, FormatRaw, in)
	if out != string(in) {
		t.Errorf("raw passthrough = %q, want input unchanged", out)
	}
}

func TestLineEventsUnescaped(t *testing.T) {
	got, out := collect(t, FormatPlain, []byte("You see a sign: &lt;keep out&gt;.\n"))
	want := []events.Event{{Type: events.EvLine, Text: "You see a sign: <keep out>."}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if out != "You see a sign: <keep out>.\n" {
		t.Errorf("passthrough = %q", out)
	}
}

func TestUnknownTagIgnored(t *testing.T) {
	got, out := collect(t, FormatPlain, []byte("<magic>a glow</magic>\n"))
	want := []events.Event{{Type: events.EvLine, Text: "a glow"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if out != "a glow\n" {
		t.Errorf("passthrough = %q", out)
	}
}

func TestDepthOverflowRecovers(t *testing.T) {
	got, _ := collect(t, FormatPlain, []byte("<room><name>Foo<description>Bar</description>"))
	want := []events.Event{
		{Type: events.EvDesc, Text: "Bar"},
		{Type: events.EvLine, Text: "Foo"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestFlushReleasesPartialTag(t *testing.T) {
	p := NewParser(nil, FormatPlain)
	p.Feed([]byte("text<nam"))
	out := p.Flush()
	if string(out) != "<nam" {
		t.Errorf("Flush() = %q, want %q", out, "<nam")
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		name   string
		want   OutputFormat
		wantOK bool
	}{
		{"plain", FormatPlain, true},
		{"normal", FormatPlain, true},
		{"", FormatPlain, true},
		{"raw", FormatRaw, true},
		{"MARKED", FormatRaw, true},
		{"ansi", FormatPlain, false},
	}
	for _, tt := range tests {
		got, ok := ParseOutputFormat(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseOutputFormat(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	in := `says "x < y && y > z"`
	if got := Unescape(Escape(in)); got != in {
		t.Errorf("Unescape(Escape(%q)) = %q", in, got)
	}
}
