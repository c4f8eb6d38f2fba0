package protocol

import (
	"errors"
	"strings"
	"testing"
)

func TestDirectiveRoundTrip(t *testing.T) {
	tests := []Directive{
		NewUpdate("alice"),
		NewRemove("bob smith"),
		NewUpdateFile("report (final).pdf", "6f1c2b0a-4a55-4f43-9a3e-2d1f3e0b9c11"),
	}

	for _, d := range tests {
		p := ParsePacket(Control(d).Frames()[:FrameSize])
		if p.Kind != KindControl {
			t.Fatalf("%v: expected control packet", d)
		}
		got, err := p.Directive()
		if err != nil {
			t.Fatalf("%v: %v", d, err)
		}
		if got != d {
			t.Errorf("got %+v, want %+v", got, d)
		}
	}
}

func TestParsePacketLeadingNULs(t *testing.T) {
	p := ParsePacket([]byte("\x00\x00\x00REMOVE (carol)\x00\x00"))
	if p.Kind != KindControl || p.Body != "REMOVE (carol)" {
		t.Fatalf("unexpected packet %+v", p)
	}

	p = ParsePacket([]byte("[alice]: hi\x00\x00"))
	if p.Kind != KindText || p.Body != "[alice]: hi" {
		t.Fatalf("unexpected packet %+v", p)
	}
}

func TestParseDirectiveUnknown(t *testing.T) {
	if _, err := ParseDirective("SHUTDOWN (now)"); !errors.Is(err, ErrUnknownDirective) {
		t.Fatalf("expected ErrUnknownDirective, got %v", err)
	}
	if _, err := Text("UPDATE (x)").Directive(); !errors.Is(err, ErrUnknownDirective) {
		t.Fatalf("text packet parsed as directive: %v", err)
	}
}

func TestLines(t *testing.T) {
	if got := PrivateLine("alice", "hi"); got != "[Private from alice]: hi" {
		t.Errorf("PrivateLine = %q", got)
	}
	if got := PublicLine("bob", "yo"); got != "[bob]: yo" {
		t.Errorf("PublicLine = %q", got)
	}
	a := Announcement(JoinText("alice"))
	if !strings.Contains(a, "------   alice joined the chatroom!   ------") || !strings.HasSuffix(a, "\n") {
		t.Errorf("Announcement = %q", a)
	}
}
