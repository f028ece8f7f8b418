package reactor_test

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"satleds/pkg/reactor"
)

var (
	black  = [3]byte{0, 0, 0}
	blue   = [3]byte{0, 0, 255}
	yellow = [3]byte{255, 255, 0}
	red    = [3]byte{255, 0, 0}
	green  = [3]byte{0, 255, 0}
)

type fakeStrip struct {
	mu      sync.Mutex
	fills   [][3]byte
	showErr error
}

func (s *fakeStrip) SetPixel(i int, r, g, b byte, brightness int) {}

func (s *fakeStrip) Fill(r, g, b byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fills = append(s.fills, [3]byte{r, g, b})
}

func (s *fakeStrip) Show() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showErr
}

func (s *fakeStrip) Close() error { return nil }

func (s *fakeStrip) colors() [][3]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][3]byte, len(s.fills))
	copy(out, s.fills)
	return out
}

func (s *fakeStrip) last() ([3]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fills) == 0 {
		return [3]byte{}, false
	}
	return s.fills[len(s.fills)-1], true
}

func (s *fakeStrip) contains(c [3]byte) bool {
	for _, f := range s.colors() {
		if f == c {
			return true
		}
	}
	return false
}

type fakeCues struct {
	mu     sync.Mutex
	sounds []string
}

func (c *fakeCues) Trigger(sound string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sounds = append(c.sounds, sound)
}

func (c *fakeCues) played() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sounds))
	copy(out, c.sounds)
	return out
}

func fastTiming() reactor.Timing {
	return reactor.Timing{
		ErrorRevert:      40 * time.Millisecond,
		SynthesizeRevert: 40 * time.Millisecond,
		FlashPhase:       5 * time.Millisecond,
		DisconnectHold:   5 * time.Millisecond,
	}
}

func startReactor(t *testing.T, strip *fakeStrip, cues *fakeCues) (*reactor.Reactor, chan error) {
	t.Helper()

	r := reactor.New(strip, cues, zap.NewNop(), reactor.WithTiming(fastTiming()))
	errc := make(chan error, 1)
	go func() {
		errc <- r.Run()
	}()
	t.Cleanup(r.Stop)

	return r, errc
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 2*time.Millisecond, msg)
}

func TestWakeSetsBlueAndTriggersCue(t *testing.T) {
	strip, cues := &fakeStrip{}, &fakeCues{}
	r, _ := startReactor(t, strip, cues)

	r.Submit(reactor.Event{Kind: reactor.WakeDetected})

	eventually(t, func() bool {
		c, ok := strip.last()
		return ok && c == blue
	}, "wake must turn the strip blue")
	eventually(t, func() bool {
		return len(cues.played()) == 1 && cues.played()[0] == "wake"
	}, "wake must trigger the audio cue")
}

func TestStreamingIgnoredWhenIdle(t *testing.T) {
	strip, cues := &fakeStrip{}, &fakeCues{}
	r, _ := startReactor(t, strip, cues)

	r.Submit(reactor.Event{Kind: reactor.StreamingStarted})
	time.Sleep(30 * time.Millisecond)

	assert.Empty(t, strip.colors())
}

func TestUnknownEventIgnoredButCancelsPending(t *testing.T) {
	strip, cues := &fakeStrip{}, &fakeCues{}
	r, _ := startReactor(t, strip, cues)

	r.Submit(reactor.Event{Kind: reactor.ErrorReported, Code: reactor.CodeNoTextRecognized})
	r.Submit(reactor.Event{Kind: reactor.Unknown})

	time.Sleep(120 * time.Millisecond)

	colors := strip.colors()
	require.Equal(t, [][3]byte{red}, colors, "unknown event must cancel the revert without painting")
}

func TestOtherErrorCodesIgnored(t *testing.T) {
	strip, cues := &fakeStrip{}, &fakeCues{}
	r, _ := startReactor(t, strip, cues)

	r.Submit(reactor.Event{Kind: reactor.ErrorReported, Code: "stt-stream-failed"})
	time.Sleep(30 * time.Millisecond)

	assert.Empty(t, strip.colors())
}

func TestErrorRevertsToYellowWhileProcessing(t *testing.T) {
	strip, cues := &fakeStrip{}, &fakeCues{}
	r, _ := startReactor(t, strip, cues)

	r.Submit(reactor.Event{Kind: reactor.WakeDetected})
	r.Submit(reactor.Event{Kind: reactor.ErrorReported, Code: reactor.CodeNoTextRecognized})

	eventually(t, func() bool {
		c, ok := strip.last()
		return ok && c == yellow
	}, "revert while processing must restore yellow")
	assert.False(t, strip.contains(black), "no blackout while speech is processing")
}

func TestErrorRevertsToBlackWhenIdle(t *testing.T) {
	strip, cues := &fakeStrip{}, &fakeCues{}
	r, _ := startReactor(t, strip, cues)

	r.Submit(reactor.Event{Kind: reactor.ErrorReported, Code: reactor.CodeNoTextRecognized})

	eventually(t, func() bool {
		c, ok := strip.last()
		return ok && c == black
	}, "revert while idle must blank")
	assert.Equal(t, [][3]byte{red, black}, strip.colors())
}

func TestStreamingPreemptsErrorRevert(t *testing.T) {
	strip, cues := &fakeStrip{}, &fakeCues{}
	r, _ := startReactor(t, strip, cues)

	r.Submit(reactor.Event{Kind: reactor.WakeDetected})
	r.Submit(reactor.Event{Kind: reactor.ErrorReported, Code: reactor.CodeNoTextRecognized})
	r.Submit(reactor.Event{Kind: reactor.StreamingStarted})

	time.Sleep(3 * fastTiming().ErrorRevert)

	c, ok := strip.last()
	require.True(t, ok)
	assert.Equal(t, yellow, c, "display must stay yellow, never flash black")
	assert.False(t, strip.contains(black))
	assert.Equal(t, [][3]byte{blue, red, yellow}, strip.colors())
}

func TestNewScheduleSupersedesOld(t *testing.T) {
	strip, cues := &fakeStrip{}, &fakeCues{}
	r, _ := startReactor(t, strip, cues)

	// error schedules a yellow revert, synthesize replaces it with a blackout
	r.Submit(reactor.Event{Kind: reactor.WakeDetected})
	r.Submit(reactor.Event{Kind: reactor.ErrorReported, Code: reactor.CodeNoTextRecognized})
	r.Submit(reactor.Event{Kind: reactor.Synthesize})

	time.Sleep(3 * fastTiming().SynthesizeRevert)

	c, ok := strip.last()
	require.True(t, ok)
	assert.Equal(t, black, c)
	assert.False(t, strip.contains(yellow), "preempted revert must never fire")
}

func TestSynthesizeRevertResetsProcessing(t *testing.T) {
	strip, cues := &fakeStrip{}, &fakeCues{}
	r, _ := startReactor(t, strip, cues)

	r.Submit(reactor.Event{Kind: reactor.WakeDetected})
	r.Submit(reactor.Event{Kind: reactor.Synthesize})

	eventually(t, func() bool {
		c, ok := strip.last()
		return ok && c == black
	}, "synthesize must blank after its delay")

	// processing was reset, so streaming is a no-op again
	n := len(strip.colors())
	r.Submit(reactor.Event{Kind: reactor.StreamingStarted})
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, strip.colors(), n)
}

func TestConnectedFlash(t *testing.T) {
	strip, cues := &fakeStrip{}, &fakeCues{}
	r, _ := startReactor(t, strip, cues)

	r.Submit(reactor.Event{Kind: reactor.Connected})

	eventually(t, func() bool {
		return len(strip.colors()) == 4
	}, "connect flash has four phases")
	assert.Equal(t, [][3]byte{green, black, green, black}, strip.colors())
}

func TestDisconnectedFlashResetsProcessing(t *testing.T) {
	strip, cues := &fakeStrip{}, &fakeCues{}
	r, _ := startReactor(t, strip, cues)

	r.Submit(reactor.Event{Kind: reactor.WakeDetected})
	r.Submit(reactor.Event{Kind: reactor.Disconnected})

	eventually(t, func() bool {
		c, ok := strip.last()
		return ok && c == black
	}, "disconnect ends black")
	assert.Equal(t, [][3]byte{blue, red, black}, strip.colors())

	n := len(strip.colors())
	r.Submit(reactor.Event{Kind: reactor.StreamingStarted})
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, strip.colors(), n)
}

func TestFullScenarioEndsBlack(t *testing.T) {
	strip, cues := &fakeStrip{}, &fakeCues{}
	r, _ := startReactor(t, strip, cues)

	r.Submit(reactor.Event{Kind: reactor.Connected})
	r.Submit(reactor.Event{Kind: reactor.WakeDetected})
	r.Submit(reactor.Event{Kind: reactor.StreamingStarted})
	r.Submit(reactor.Event{Kind: reactor.Synthesize})
	r.Submit(reactor.Event{Kind: reactor.RunSatellite})

	eventually(t, func() bool {
		return len(strip.colors()) >= 7
	}, "scenario paints flash, blue, yellow, black")

	colors := strip.colors()
	require.Equal(t, [][3]byte{green, black, green, black, blue, yellow}, colors[:6])

	// run-satellite cancelled the synthesize timer; final state is black
	// whether or not it had fired
	time.Sleep(3 * fastTiming().SynthesizeRevert)
	c, ok := strip.last()
	require.True(t, ok)
	assert.Equal(t, black, c)

	n := len(strip.colors())
	r.Submit(reactor.Event{Kind: reactor.StreamingStarted})
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, strip.colors(), n, "run-satellite must reset processing")
}

func TestHardwareErrorHaltsRun(t *testing.T) {
	strip, cues := &fakeStrip{showErr: errors.New("boom")}, &fakeCues{}
	r, errc := startReactor(t, strip, cues)

	r.Submit(reactor.Event{Kind: reactor.WakeDetected})

	select {
	case err := <-errc:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("reactor did not halt on hardware failure")
	}
}

func TestSubmitAfterHaltDoesNotBlock(t *testing.T) {
	strip, cues := &fakeStrip{showErr: errors.New("boom")}, &fakeCues{}
	r, errc := startReactor(t, strip, cues)

	r.Submit(reactor.Event{Kind: reactor.WakeDetected})
	require.Error(t, <-errc)

	done := make(chan struct{})
	go func() {
		r.Submit(reactor.Event{Kind: reactor.RunSatellite})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked after the loop exited")
	}
}
