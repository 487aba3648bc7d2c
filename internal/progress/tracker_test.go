package progress

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker(total float64, sink Sink, clock *fakeClock) *Tracker {
	return NewTracker(total, 3*time.Second, sink, WithClock(clock.Now))
}

func TestUpdateThrottles(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var pushes []string
	tracker := newTestTracker(120, func(text string) error {
		pushes = append(pushes, text)
		return nil
	}, clock)

	tracker.Update(10)
	clock.Advance(time.Second)
	tracker.Update(20)
	clock.Advance(time.Second)
	tracker.Update(30)

	if len(pushes) != 1 {
		t.Fatalf("expected 1 push within interval, got %d", len(pushes))
	}

	clock.Advance(2 * time.Second)
	tracker.Update(40)
	if len(pushes) != 2 {
		t.Fatalf("expected second push after interval, got %d", len(pushes))
	}
}

func TestPercentMonotonicAndClamped(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tracker := newTestTracker(100, nil, clock)

	inputs := []float64{10, 50, 40, 90, 150}
	var last float64
	for _, in := range inputs {
		tracker.Update(in)
		if tracker.Percent() < last {
			t.Fatalf("percent regressed: %v after %v", tracker.Percent(), last)
		}
		last = tracker.Percent()
		clock.Advance(5 * time.Second)
	}
	if last != 100 {
		t.Fatalf("expected clamp to 100, got %v", last)
	}
}

func TestFinalUpdateBypassesThrottle(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var pushes int
	tracker := newTestTracker(100, func(string) error {
		pushes++
		return nil
	}, clock)

	tracker.Update(10)
	tracker.Update(100)
	if pushes != 2 {
		t.Fatalf("100%% update must bypass throttle, got %d pushes", pushes)
	}
}

func TestSinkErrorsSwallowed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tracker := newTestTracker(100, func(string) error {
		return errors.New("message was deleted")
	}, clock)

	// Must not panic or propagate.
	tracker.Update(50)
	if tracker.Percent() != 50 {
		t.Fatalf("percent = %v", tracker.Percent())
	}
}

func TestRenderMidpoint(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var last string
	tracker := newTestTracker(120, func(text string) error {
		last = text
		return nil
	}, clock)

	clock.Advance(30 * time.Second)
	tracker.Update(60)

	if !strings.Contains(last, "50.0%") {
		t.Fatalf("expected 50%% in %q", last)
	}
	if !strings.Contains(last, "00:01:00 / 00:02:00") {
		t.Fatalf("expected time fields in %q", last)
	}
	// 30s for 50% leaves 30s remaining.
	if !strings.Contains(last, "ETA 30s") {
		t.Fatalf("expected ETA in %q", last)
	}
	if !strings.Contains(last, "[######------]") {
		t.Fatalf("expected 12-cell bar in %q", last)
	}
}

func TestUnknownDurationSuppressesUpdates(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	called := false
	tracker := newTestTracker(0, func(string) error {
		called = true
		return nil
	}, clock)

	tracker.Update(30)
	if called {
		t.Fatal("tracker with unknown total must not push")
	}
}

func TestCaption(t *testing.T) {
	caption := Caption("Extract audio", "song.mp3", 5*1024*1024)
	if !strings.Contains(caption, "song.mp3") || !strings.Contains(caption, "Extract audio") {
		t.Fatalf("caption = %q", caption)
	}
	if !strings.Contains(caption, "MiB") && !strings.Contains(caption, "MB") {
		t.Fatalf("caption missing humanized size: %q", caption)
	}
}
