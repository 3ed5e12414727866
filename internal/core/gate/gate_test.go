package gate

import (
	"testing"
	"time"
)

type event struct {
	raw string
	ms  int64
}

var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func at(ms int64) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func replay(g *Gate, events []event) []Decision {
	out := make([]Decision, 0, len(events))
	for _, e := range events {
		out = append(out, g.Decide(e.raw, at(e.ms)))
	}
	return out
}

func TestGateSameCodeSequence(t *testing.T) {
	events := []event{{"A", 0}, {"A", 400}, {"A", 700}, {"A", 2600}}
	want := []Decision{Accepted, RejectedInterval, RejectedCooldown, Accepted}

	got := replay(New(DefaultConfig()), events)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d at t=%d: got %s, want %s", i, events[i].ms, got[i], want[i])
		}
	}

	again := replay(New(DefaultConfig()), events)
	for i := range got {
		if again[i] != got[i] {
			t.Fatalf("replay diverged at event %d: %s vs %s", i, again[i], got[i])
		}
	}
}

func TestGateIntervalAppliesToDifferentPayload(t *testing.T) {
	g := New(DefaultConfig())
	if !g.Accept("A", at(0)) {
		t.Fatalf("first detection must be accepted")
	}
	if d := g.Decide("B", at(500)); d != RejectedInterval {
		t.Fatalf("expected interval rejection, got %s", d)
	}
	if !g.Accept("B", at(650)) {
		t.Fatalf("different payload after min interval must be accepted")
	}
}

func TestGateRejectionDoesNotMoveLastAcceptance(t *testing.T) {
	g := New(DefaultConfig())
	g.Accept("A", at(0))
	g.Accept("A", at(600))
	g.Accept("A", at(1200))

	raw, last, ok := g.LastAccepted()
	if !ok || raw != "A" || !last.Equal(at(0)) {
		t.Fatalf("expected last acceptance at t=0, got %s %v %v", raw, last, ok)
	}
	if !g.Accept("A", at(1800)) {
		t.Fatalf("expected acceptance once cooldown elapsed")
	}
}

func TestGateClockGoingBackwardsIsRejected(t *testing.T) {
	g := New(DefaultConfig())
	g.Accept("A", at(5000))
	if g.Accept("B", at(1000)) {
		t.Fatalf("earlier timestamp must not be accepted")
	}
	_, last, _ := g.LastAccepted()
	if !last.Equal(at(5000)) {
		t.Fatalf("last acceptance must not decrease, got %v", last)
	}
}

func TestGateReset(t *testing.T) {
	g := New(DefaultConfig())
	g.Accept("A", at(0))
	g.Reset()
	if !g.Accept("A", at(10)) {
		t.Fatalf("detection right after reset must be accepted")
	}
}

func TestGateZeroConfigAcceptsEverything(t *testing.T) {
	g := New(Config{})
	for i := int64(0); i < 3; i++ {
		if !g.Accept("A", at(i)) {
			t.Fatalf("zero thresholds must accept event %d", i)
		}
	}
}
