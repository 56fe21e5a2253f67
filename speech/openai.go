package speech

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"bolo/audio"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI TTS returns raw 24 kHz mono PCM when asked for the pcm format.
const openAISampleRate = 24000

type OpenAISynthesizer struct {
	client *openai.Client
	audio  audio.Context

	Model openai.SpeechModel
	Voice openai.SpeechVoice
}

func NewOpenAISynthesizer(apiKey, baseURL string, ac audio.Context) *OpenAISynthesizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAISynthesizer{
		client: openai.NewClientWithConfig(cfg),
		audio:  ac,
		Model:  openai.TTSModel1,
		Voice:  openai.VoiceAlloy,
	}
}

func (s *OpenAISynthesizer) Speak(ctx context.Context, u Utterance) error {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.Model,
		Input:          u.Text,
		Voice:          s.Voice,
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("openai API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("reading speech audio: %w", err)
	}

	player, err := s.audio.NewPlayer(audio.PlaybackConfig{SampleRate: openAISampleRate, Channels: 1})
	if err != nil {
		return fmt.Errorf("opening playback: %w", err)
	}
	defer player.Close()
	return player.Play(ctx, pcm16(data))
}

func pcm16(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}
