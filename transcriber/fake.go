package transcriber

import (
	"context"
	"sync"
)

type FakeTranscriber struct {
	text string
	err  error

	mu    sync.Mutex
	calls []FakeCall
}

type FakeCall struct {
	Bytes  int
	Format string
	Lang   string
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err}
}

func (f *FakeTranscriber) Name() string { return "fake" }

func (f *FakeTranscriber) Transcribe(ctx context.Context, audio []byte, format, lang string) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Bytes: len(audio), Format: format, Lang: lang})
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Text: f.text}, nil
}

func (f *FakeTranscriber) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}
