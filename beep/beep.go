// Package beep renders short listening cues and plays them through audio.
package beep

import (
	"context"
	"math"
	"time"

	"bolo/audio"
)

const sampleRate = 44100

type Cue int

const (
	Start Cue = iota // listening started
	End              // listening stopped
	Error            // capture failed
)

type tone struct {
	freq     float64
	duration float64
	volume   float64
	decay    float64
	repeat   int
	gap      float64
}

var tones = map[Cue]tone{
	Start: {freq: 1200, duration: 0.2, volume: 0.5, decay: 60, repeat: 1},
	End:   {freq: 900, duration: 0.2, volume: 0.5, decay: 40, repeat: 1},
	Error: {freq: 350, duration: 0.08, volume: 0.6, decay: 30, repeat: 2, gap: 0.05},
}

// Player plays cues on an audio context. A nil *Player or a disabled one
// plays nothing.
type Player struct {
	audio    audio.Context
	disabled bool
	samples  map[Cue][]int16
}

func New(ac audio.Context) *Player {
	p := &Player{audio: ac, samples: make(map[Cue][]int16, len(tones))}
	for cue, t := range tones {
		p.samples[cue] = render(t)
	}
	return p
}

func (p *Player) Disable() { p.disabled = true }

// Play blocks until cue has been played.
func (p *Player) Play(ctx context.Context, cue Cue) error {
	if p == nil || p.disabled || p.audio == nil {
		return nil
	}
	samples := p.samples[cue]
	if len(samples) == 0 {
		return nil
	}
	out, err := p.audio.NewPlayer(audio.PlaybackConfig{SampleRate: sampleRate, Channels: 1})
	if err != nil {
		return err
	}
	defer out.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return out.Play(ctx, samples)
}

// Go plays cue without waiting for it.
func (p *Player) Go(cue Cue) {
	go p.Play(context.Background(), cue)
}

func render(t tone) []int16 {
	n := int(sampleRate * t.duration)
	tick := make([]int16, n)
	for i := range tick {
		ts := float64(i) / sampleRate
		envelope := math.Exp(-ts * t.decay)
		tick[i] = int16(math.Sin(2*math.Pi*t.freq*ts) * 32767 * t.volume * envelope)
	}
	if t.repeat <= 1 {
		return tick
	}
	gap := make([]int16, int(sampleRate*t.gap))
	out := make([]int16, 0, t.repeat*len(tick)+(t.repeat-1)*len(gap))
	for i := 0; i < t.repeat; i++ {
		if i > 0 {
			out = append(out, gap...)
		}
		out = append(out, tick...)
	}
	return out
}
