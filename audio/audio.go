// Package audio captures microphone PCM and plays PCM back.
// All sample data is signed 16-bit little-endian, interleaved.
package audio

import (
	"context"
	"errors"
)

const (
	WAVHeaderSize = 44

	CaptureRate = 16000
)

var ErrNoDevice = errors.New("no audio device available")

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type PlaybackConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	NewPlayer(config PlaybackConfig) (Player, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// Player plays one buffer at a time. Play blocks until the samples have
// been played or ctx is cancelled, in which case it returns ctx.Err().
type Player interface {
	Play(ctx context.Context, samples []int16) error
	Close()
}

// FindDevice returns the device called name, or nil for the system default.
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i], nil
		}
	}
	return nil, ErrNoDevice
}
