package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAI struct {
	client *openai.Client
}

// NewOpenAI uses the public API unless baseURL points elsewhere
// (any OpenAI-compatible server).
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, format, lang string) (*Result, error) {
	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "speech." + format,
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatJSON,
	}
	if lang != "" {
		req.Language = baseLanguage(lang)
	}

	resp, err := o.client.CreateTranscription(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("openai API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	return &Result{Text: resp.Text, Duration: resp.Duration}, nil
}
