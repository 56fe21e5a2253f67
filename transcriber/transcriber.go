// Package transcriber turns recorded speech into text through a hosted
// Whisper model.
package transcriber

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"bolo/traced"
)

var ErrNoKey = errors.New("no transcription API key (set GROQ_API_KEY or OPENAI_API_KEY)")

type Result struct {
	Text         string
	NoSpeechProb float64
	Duration     float64
	RateLimit    string
	Metrics      *traced.Metrics
}

type Transcriber interface {
	Name() string
	// Transcribe converts one encoded recording; format is the file
	// extension ("flac"). lang is a BCP 47 tag or ISO 639-1 code.
	Transcribe(ctx context.Context, audio []byte, format, lang string) (*Result, error)
}

// New picks a backend by name, or the first one with a key when name is
// empty or "auto".
func New(name string) (Transcriber, error) {
	groqKey := os.Getenv("GROQ_API_KEY")
	openaiKey := os.Getenv("OPENAI_API_KEY")

	switch name {
	case "groq":
		if groqKey == "" {
			return nil, ErrNoKey
		}
		return NewGroq(groqKey), nil
	case "openai":
		if openaiKey == "" {
			return nil, ErrNoKey
		}
		return NewOpenAI(openaiKey, ""), nil
	case "", "auto":
		if groqKey != "" {
			return NewGroq(groqKey), nil
		}
		if openaiKey != "" {
			return NewOpenAI(openaiKey, ""), nil
		}
		return nil, ErrNoKey
	}
	return nil, errors.New("unknown transcriber " + name)
}

// baseLanguage reduces "hi-IN" to "hi"; Whisper only takes ISO 639-1.
func baseLanguage(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}
