package voice

import (
	"math"
	"testing"
	"time"
)

func tone(n int, amp float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amp * 32767 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return out
}

func testEndpoint() EndpointConfig {
	return EndpointConfig{
		Threshold:       0.02,
		Tick:            100 * time.Millisecond,
		SpeechTicks:     2,
		TrailingSilence: 300 * time.Millisecond,
		NoSpeechTimeout: 500 * time.Millisecond,
		MaxDuration:     2 * time.Second,
	}
}

func TestEndpointTrailingSilence(t *testing.T) {
	ep := newEndpointer(testEndpoint(), 16000)

	if r := ep.Add(tone(4800, 0.3)); r != EndNone {
		t.Fatalf("speech ended early: %v", r)
	}
	if r := ep.Add(make([]int16, 3200)); r != EndNone {
		t.Fatalf("two silent ticks ended: %v", r)
	}
	if r := ep.Add(make([]int16, 1600)); r != EndSilence {
		t.Fatalf("got %v, want silence", r)
	}
	if !ep.HeardSpeech() {
		t.Error("expected speech to be recorded")
	}
}

func TestEndpointNoSpeech(t *testing.T) {
	ep := newEndpointer(testEndpoint(), 16000)
	if r := ep.Add(make([]int16, 8000)); r != EndNoSpeech {
		t.Fatalf("got %v, want no_speech", r)
	}
	if ep.HeardSpeech() {
		t.Error("silence counted as speech")
	}
}

func TestEndpointSingleClickIsNotSpeech(t *testing.T) {
	ep := newEndpointer(testEndpoint(), 16000)
	ep.Add(tone(1600, 0.5))
	if r := ep.Add(make([]int16, 6400)); r != EndNoSpeech {
		t.Fatalf("got %v, want no_speech after one loud tick", r)
	}
}

func TestEndpointMaxDuration(t *testing.T) {
	ep := newEndpointer(testEndpoint(), 16000)
	if r := ep.Add(tone(32000, 0.3)); r != EndMaxDuration {
		t.Fatalf("got %v, want max_duration", r)
	}
}

func TestEndpointPartialTicks(t *testing.T) {
	ep := newEndpointer(testEndpoint(), 16000)
	for range 7 {
		if r := ep.Add(make([]int16, 1000)); r != EndNone {
			t.Fatalf("ended after %d ticks", ep.ticks)
		}
	}
	if ep.ticks != 4 {
		t.Errorf("ticks = %d, want 4", ep.ticks)
	}
}
