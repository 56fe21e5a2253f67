package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bolo/speech"
	"bolo/textarea"
	"bolo/translate"
	"bolo/voice"

	"github.com/goccy/go-json"
)

type translatorFunc func(ctx context.Context, text string, src translate.Source) (string, error)

func (f translatorFunc) Translate(ctx context.Context, text string, src translate.Source) (string, error) {
	return f(ctx, text, src)
}

type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) Notify(n Notice) {
	l.mu.Lock()
	l.notices = append(l.notices, n)
	l.mu.Unlock()
}

func (l *noticeLog) all() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Notice(nil), l.notices...)
}

func start(t *testing.T, cfg Config) *Controller {
	t.Helper()
	c := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	return c
}

func waitFor(t *testing.T, c *Controller, what string, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		c.Sync()
		if s := c.State(); cond(s) {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; state %+v", what, c.State())
	return State{}
}

// translateServer answers /translate like the real service: "hello" in
// any source becomes "नमस्ते", "boom" fails with a 500.
func translateServer(t *testing.T) (*translate.Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var req struct {
			Text   string `json:"text"`
			Source string `json:"source"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		switch req.Text {
		case "hello":
			w.Write([]byte(`{"result":"नमस्ते"}`))
		case "boom":
			http.Error(w, "internal error", http.StatusInternalServerError)
		default:
			w.Write([]byte(`{"result":"` + strings.ToUpper(req.Text) + `"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return translate.NewClient(srv.URL), &hits
}

func TestSubmitTranslates(t *testing.T) {
	client, _ := translateServer(t)
	c := start(t, Config{Translator: client})

	c.SetInput("hello")
	c.SetSource(translate.English)
	c.Submit()

	s := waitFor(t, c, "result", func(s State) bool { return s.Result != "" })
	if s.Result != "नमस्ते" {
		t.Errorf("Result = %q, want नमस्ते", s.Result)
	}
	if s.Translating {
		t.Error("still translating after completion")
	}
	if s.Input != "hello" || s.Source != translate.English {
		t.Errorf("state changed unexpectedly: %+v", s)
	}
}

func TestSubmitBlankInput(t *testing.T) {
	client, hits := translateServer(t)
	notices := &noticeLog{}
	c := start(t, Config{Translator: client, Notifier: notices})

	for _, input := range []string{"", "   ", "\n\t "} {
		c.SetInput(input)
		c.Submit()
	}
	c.Sync()

	if n := hits.Load(); n != 0 {
		t.Errorf("server hit %d times for blank input", n)
	}
	got := notices.all()
	if len(got) != 3 {
		t.Fatalf("got %d notices, want 3", len(got))
	}
	for _, n := range got {
		if n.Message != MsgEmptyInput || !errors.Is(n.Err, translate.ErrEmptyInput) {
			t.Errorf("unexpected notice %+v", n)
		}
	}
}

func TestServerFaultKeepsResult(t *testing.T) {
	client, _ := translateServer(t)
	notices := &noticeLog{}
	c := start(t, Config{Translator: client, Notifier: notices})

	c.SetInput("hello")
	c.Submit()
	waitFor(t, c, "first result", func(s State) bool { return s.Result == "नमस्ते" })

	c.SetInput("boom")
	c.Submit()
	waitFor(t, c, "request end", func(s State) bool { return !s.Translating && len(notices.all()) > 0 })

	if s := c.State(); s.Result != "नमस्ते" {
		t.Errorf("Result = %q, want the previous result kept", s.Result)
	}
	n := notices.all()[0]
	if n.Kind != NoticeError || n.Message != MsgTranslationFailed {
		t.Errorf("unexpected notice %+v", n)
	}
	var fault *translate.Fault
	if !errors.As(n.Err, &fault) || fault.Kind != translate.ServerFault || fault.Status != http.StatusInternalServerError {
		t.Errorf("notice error = %v, want a 500 server fault", n.Err)
	}
}

func TestTranslationTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	notices := &noticeLog{}
	c := start(t, Config{Translator: translate.NewClient(srv.URL), Notifier: notices, Timeout: 30 * time.Millisecond})

	c.SetInput("slow")
	c.Submit()
	waitFor(t, c, "timeout notice", func(s State) bool { return !s.Translating && len(notices.all()) == 1 })

	n := notices.all()[0]
	if n.Kind != NoticeError || n.Message != MsgTranslationFailed {
		t.Errorf("unexpected notice %+v", n)
	}
	if !errors.Is(n.Err, translate.ErrTransport) {
		t.Errorf("notice error = %v, want a transport fault", n.Err)
	}
}

func TestSubmitCancelsAndReplaces(t *testing.T) {
	release := make(chan struct{})
	firstCtx := make(chan context.Context, 1)
	var calls atomic.Int32
	tr := translatorFunc(func(ctx context.Context, text string, _ translate.Source) (string, error) {
		if calls.Add(1) == 1 {
			firstCtx <- ctx
			<-release
			return "first", nil
		}
		return "second", nil
	})
	c := start(t, Config{Translator: tr})

	c.SetInput("one")
	c.Submit()
	ctx1 := <-firstCtx

	c.SetInput("two")
	c.Submit()
	waitFor(t, c, "second result", func(s State) bool { return s.Result == "second" })

	if ctx1.Err() == nil {
		t.Error("first request was not cancelled")
	}

	close(release)
	time.Sleep(50 * time.Millisecond)
	c.Sync()
	if s := c.State(); s.Result != "second" {
		t.Errorf("stale completion overwrote the result: %q", s.Result)
	}
}

func TestClearCancelsTranslation(t *testing.T) {
	reqCtx := make(chan context.Context, 1)
	tr := translatorFunc(func(ctx context.Context, _ string, _ translate.Source) (string, error) {
		reqCtx <- ctx
		<-ctx.Done()
		return "", ctx.Err()
	})
	notices := &noticeLog{}
	c := start(t, Config{Translator: tr, Notifier: notices})

	c.SetInput("hello")
	c.Submit()
	ctx := <-reqCtx
	waitFor(t, c, "translating", func(s State) bool { return s.Translating })

	c.Clear()
	s := waitFor(t, c, "cleared", func(s State) bool { return !s.Translating })
	if s.Input != "" || s.Result != "" {
		t.Errorf("Clear left %+v", s)
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("request context not cancelled")
	}
	c.Sync()
	if n := notices.all(); len(n) != 0 {
		t.Errorf("cancelled request raised notices: %+v", n)
	}
}

func TestClearLeavesPlaybackAndVoice(t *testing.T) {
	client, _ := translateServer(t)
	synth := speech.NewFakeSynthesizer()
	rec := voice.NewFakeRecognizer("")
	c := start(t, Config{
		Translator: client,
		Voice:      voice.New(rec, "hi-IN"),
		Playback:   speech.NewPlayback(synth, "hi-IN"),
	})

	c.SetInput("hello")
	c.Submit()
	waitFor(t, c, "result", func(s State) bool { return s.Result != "" })
	c.Speak()
	<-synth.Started()
	c.StartVoice()
	waitFor(t, c, "busy", func(s State) bool { return s.Speaking && s.Listening })

	c.Clear()
	c.Sync()
	s := c.State()
	if !s.Speaking || !s.Listening {
		t.Errorf("Clear interrupted playback or capture: %+v", s)
	}
	if s.Input != "" || s.Result != "" {
		t.Errorf("Clear left text behind: %+v", s)
	}
	if synth.Cancelled() != 0 {
		t.Error("utterance cancelled by Clear")
	}
}

func TestSpeakEmptyResult(t *testing.T) {
	synth := speech.NewFakeSynthesizer()
	c := start(t, Config{Translator: translatorFunc(nil), Playback: speech.NewPlayback(synth, "hi-IN")})

	c.Speak()
	c.Sync()
	if n := len(synth.Spoken()); n != 0 {
		t.Errorf("spoke %d utterances for an empty result", n)
	}
	if c.State().Speaking {
		t.Error("speaking with nothing to say")
	}
}

func TestSpeakResult(t *testing.T) {
	client, _ := translateServer(t)
	synth := speech.NewFakeSynthesizer()
	c := start(t, Config{Translator: client, Playback: speech.NewPlayback(synth, "hi-IN")})

	c.SetInput("hello")
	c.Submit()
	waitFor(t, c, "result", func(s State) bool { return s.Result != "" })

	c.Speak()
	u := <-synth.Started()
	if u.Text != "नमस्ते" || u.Language != "hi-IN" {
		t.Errorf("utterance = %+v", u)
	}
	waitFor(t, c, "speaking", func(s State) bool { return s.Speaking })

	synth.Finish()
	waitFor(t, c, "playback end", func(s State) bool { return !s.Speaking })
}

func TestSpeakReplacesPlayback(t *testing.T) {
	synth := speech.NewFakeSynthesizer()
	tr := translatorFunc(func(context.Context, string, translate.Source) (string, error) { return "फिर से", nil })
	c := start(t, Config{Translator: tr, Playback: speech.NewPlayback(synth, "hi-IN")})

	c.SetInput("again")
	c.Submit()
	waitFor(t, c, "result", func(s State) bool { return s.Result != "" })

	c.Speak()
	<-synth.Started()
	c.Speak()
	<-synth.Started()

	if got := synth.MaxActive(); got != 1 {
		t.Errorf("%d utterances overlapped", got)
	}
	if got := synth.Cancelled(); got != 1 {
		t.Errorf("cancelled %d utterances, want 1", got)
	}

	c.StopSpeaking()
	waitFor(t, c, "stopped", func(s State) bool { return !s.Speaking })
}

func TestSpeakWithoutPlayback(t *testing.T) {
	notices := &noticeLog{}
	c := start(t, Config{Translator: translatorFunc(nil), Notifier: notices})
	c.Speak()
	c.StopSpeaking()
	c.Sync()
	if n := notices.all(); len(n) != 1 || n[0].Message != MsgSpeechUnavailable {
		t.Errorf("notices = %+v", n)
	}
}

func TestVoiceTranscriptReplacesInput(t *testing.T) {
	rec := voice.NewFakeRecognizer("नमस्ते दुनिया")
	field := textarea.NewField(20)
	c := start(t, Config{Translator: translatorFunc(nil), Voice: voice.New(rec, "hi-IN"), Field: field})

	c.SetInput("typed")
	c.StartVoice()
	s := waitFor(t, c, "transcript", func(s State) bool { return s.Input == "नमस्ते दुनिया" })
	if s.InputRows != 1 {
		t.Errorf("InputRows = %d, want 1", s.InputRows)
	}
	waitFor(t, c, "idle", func(s State) bool { return !s.Listening })

	cfgs := rec.Configs()
	if len(cfgs) != 1 || cfgs[0].Language != "hi-IN" || cfgs[0].InterimResults {
		t.Errorf("recognizer configs = %+v", cfgs)
	}
}

func TestVoiceUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		voice *voice.Capture
	}{
		{"no capture", nil},
		{"no recognizer", voice.New(nil, "hi-IN")},
		{"recognizer refuses", voice.New(&voice.FakeRecognizer{Err: voice.ErrCapabilityUnavailable}, "hi-IN")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notices := &noticeLog{}
			c := start(t, Config{Translator: translatorFunc(nil), Voice: tt.voice, Notifier: notices})
			c.StartVoice()
			c.Sync()

			got := notices.all()
			if len(got) != 1 || got[0].Message != MsgVoiceUnavailable {
				t.Fatalf("notices = %+v", got)
			}
			if !errors.Is(got[0].Err, voice.ErrCapabilityUnavailable) {
				t.Errorf("notice error = %v", got[0].Err)
			}
			if c.State().Listening {
				t.Error("listening without a recognizer")
			}
		})
	}
}

func TestStartWhileListening(t *testing.T) {
	rec := voice.NewFakeRecognizer("")
	notices := &noticeLog{}
	c := start(t, Config{Translator: translatorFunc(nil), Voice: voice.New(rec, "hi-IN"), Notifier: notices})

	c.StartVoice()
	c.StartVoice()
	c.Sync()

	if n := len(rec.Sessions()); n != 1 {
		t.Errorf("%d sessions started, want 1", n)
	}
	got := notices.all()
	if len(got) != 1 || got[0].Message != MsgAlreadyListening {
		t.Errorf("notices = %+v", got)
	}
	if !c.State().Listening {
		t.Error("first session lost")
	}
}

func TestToggleVoice(t *testing.T) {
	rec := voice.NewFakeRecognizer("")
	rec.FinalOnStop = "बोलो"
	c := start(t, Config{Translator: translatorFunc(nil), Voice: voice.New(rec, "hi-IN")})

	c.ToggleVoice()
	waitFor(t, c, "listening", func(s State) bool { return s.Listening })

	c.ToggleVoice()
	s := waitFor(t, c, "transcript after stop", func(s State) bool { return s.Input == "बोलो" })
	if s.Listening {
		t.Error("still listening after toggle")
	}
	if !rec.Sessions()[0].StopCalled() {
		t.Error("session not stopped")
	}
}

// heldRecognizer hands out one session whose results the test releases.
type heldRecognizer struct {
	sess *heldSession
}

func (r *heldRecognizer) Listen(context.Context, voice.Config) (voice.Session, error) {
	return r.sess, nil
}

type heldSession struct {
	out   chan voice.Result
	stops atomic.Int32
}

func (s *heldSession) Results() <-chan voice.Result { return s.out }
func (s *heldSession) Stop()                        { s.stops.Add(1) }

// deliver releases a final transcript and waits until the controller has
// been handed it.
func (s *heldSession) deliver(t *testing.T, c *Controller, text string) {
	t.Helper()
	stops := s.stops.Load()
	s.out <- voice.FinalResult(text)
	close(s.out)
	deadline := time.Now().Add(2 * time.Second)
	for s.stops.Load() == stops {
		if time.Now().After(deadline) {
			t.Fatal("transcript never consumed")
		}
		time.Sleep(time.Millisecond)
	}
	c.Sync()
}

func TestLateTranscriptAfterStop(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *Controller)
		want string
	}{
		{"untouched", func(*Controller) {}, "देर से"},
		{"typed", func(c *Controller) { c.SetInput("typed later") }, "typed later"},
		{"cleared", func(c *Controller) { c.Clear() }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &heldSession{out: make(chan voice.Result)}
			c := start(t, Config{Translator: translatorFunc(nil), Voice: voice.New(&heldRecognizer{sess}, "hi-IN")})

			c.SetInput("before")
			c.StartVoice()
			waitFor(t, c, "listening", func(s State) bool { return s.Listening })
			c.StopVoice()
			tt.edit(c)
			c.Sync()

			sess.deliver(t, c, "देर से")
			if got := c.State().Input; got != tt.want {
				t.Errorf("Input = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranscriptWhileListeningReplacesEdits(t *testing.T) {
	sess := &heldSession{out: make(chan voice.Result)}
	c := start(t, Config{Translator: translatorFunc(nil), Voice: voice.New(&heldRecognizer{sess}, "hi-IN")})

	c.StartVoice()
	waitFor(t, c, "listening", func(s State) bool { return s.Listening })
	c.SetInput("typed while listening")
	c.Sync()

	sess.deliver(t, c, "बोलो")
	if got := c.State().Input; got != "बोलो" {
		t.Errorf("Input = %q, want the transcript", got)
	}
}

func TestStopVoiceIdle(t *testing.T) {
	c := start(t, Config{Translator: translatorFunc(nil), Voice: voice.New(voice.NewFakeRecognizer(""), "hi-IN")})
	c.StopVoice()
	c.StopSpeaking()
	c.Sync()
	if s := c.State(); s.Listening || s.Speaking {
		t.Errorf("idle stops changed state: %+v", s)
	}
}

func TestInputRowsFollowText(t *testing.T) {
	c := start(t, Config{Translator: translatorFunc(nil), Field: textarea.NewField(10)})

	c.SetInput(strings.Repeat("abcd ", 10))
	s := waitFor(t, c, "grown", func(s State) bool { return s.InputRows > 1 })
	if s.InputRows < 4 {
		t.Errorf("InputRows = %d for 50 columns at width 10", s.InputRows)
	}

	c.Clear()
	waitFor(t, c, "shrunk", func(s State) bool { return s.InputRows == 1 })

	c.SetInput("one\ntwo\nthree")
	waitFor(t, c, "three rows", func(s State) bool { return s.InputRows == 3 })

	c.SetWidth(80)
	c.SetInput(strings.Repeat("abcd ", 10))
	waitFor(t, c, "one row at 80", func(s State) bool { return s.InputRows == 1 })
}

func TestCycleSource(t *testing.T) {
	c := start(t, Config{Translator: translatorFunc(nil)})
	if got := c.State().Source; got != translate.Hindi {
		t.Fatalf("default source = %s", got)
	}
	want := []translate.Source{translate.Garhwali, translate.English, translate.GarhwaliToEng, translate.Hindi}
	for _, w := range want {
		c.CycleSource()
		c.Sync()
		if got := c.State().Source; got != w {
			t.Errorf("source = %s, want %s", got, w)
		}
	}
}

func TestTeardownStopsEverything(t *testing.T) {
	reqCtx := make(chan context.Context, 1)
	tr := translatorFunc(func(ctx context.Context, _ string, _ translate.Source) (string, error) {
		reqCtx <- ctx
		<-ctx.Done()
		return "", ctx.Err()
	})
	synth := speech.NewFakeSynthesizer()
	rec := voice.NewFakeRecognizer("")
	c := New(Config{
		Translator: tr,
		Voice:      voice.New(rec, "hi-IN"),
		Playback:   speech.NewPlayback(synth, "hi-IN"),
	})
	ctx, cancel := context.WithCancel(context.Background())
	go c.Run(ctx)

	c.SetInput("hello")
	c.Submit()
	rctx := <-reqCtx
	c.StartVoice()
	c.Sync()

	cancel()
	<-c.Done()

	if rctx.Err() == nil {
		t.Error("translation not cancelled at teardown")
	}
	if !rec.Sessions()[0].StopCalled() {
		t.Error("voice session not stopped at teardown")
	}
	if s := c.State(); s.Listening || s.Translating {
		t.Errorf("state after teardown: %+v", s)
	}

	// actions after teardown must not block
	c.Submit()
	c.Sync()
}

func TestOnChangeObservesUpdates(t *testing.T) {
	var mu sync.Mutex
	var seen []State
	c := start(t, Config{
		Translator: translatorFunc(nil),
		OnChange: func(s State) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		},
	})
	c.SetInput("a")
	c.SetInput("ab")
	c.Sync()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[1].Input != "ab" {
		t.Errorf("observed %+v", seen)
	}
}
