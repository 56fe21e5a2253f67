package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/goccy/go-json"

	"bolo/traced"
)

const groqURL = "https://api.groq.com/openai/v1/audio/transcriptions"

type Groq struct {
	client *traced.Client
	apiURL string
	apiKey string
}

func NewGroq(apiKey string) *Groq {
	return newGroqAt(groqURL, apiKey)
}

func newGroqAt(apiURL, apiKey string) *Groq {
	return &Groq{
		client: traced.New(apiURL),
		apiURL: apiURL,
		apiKey: apiKey,
	}
}

func (g *Groq) Name() string { return "groq" }

type groqResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		NoSpeechProb float64 `json:"no_speech_prob"`
	} `json:"segments"`
}

func (g *Groq) Transcribe(ctx context.Context, audio []byte, format, lang string) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "speech."+format)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}
	writer.WriteField("model", "whisper-large-v3-turbo")
	writer.WriteField("response_format", "verbose_json")
	if lang != "" {
		writer.WriteField("language", baseLanguage(lang))
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(resp.Body))
	}

	var gResp groqResponse
	if err := json.Unmarshal(resp.Body, &gResp); err != nil {
		return nil, fmt.Errorf("groq response parse error: %w", err)
	}

	var noSpeech float64
	for _, seg := range gResp.Segments {
		noSpeech = max(noSpeech, seg.NoSpeechProb)
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")

	return &Result{
		Text:         gResp.Text,
		NoSpeechProb: noSpeech,
		Duration:     gResp.Duration,
		RateLimit:    remaining + "/" + limit,
		Metrics:      resp.Metrics,
	}, nil
}
