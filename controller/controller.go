// Package controller coordinates typing, dictation, translation and
// playback against the shared input and result text.
//
// Every state change happens on the goroutine running Run. Action
// methods and asynchronous completions only enqueue work for it, so
// they are safe to call from anywhere, including before Run starts.
package controller

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"bolo/log"
	"bolo/speech"
	"bolo/textarea"
	"bolo/translate"
	"bolo/voice"
)

const (
	MsgEmptyInput        = "Please enter some text to translate."
	MsgTranslationFailed = "Error occurred during translation."
	MsgVoiceUnavailable  = "Speech recognition is not available."
	MsgAlreadyListening  = "Already listening."
	MsgSpeechUnavailable = "Speech synthesis is not available."
	defaultFieldWidth    = 60
	eventQueueSize       = 64
)

type Translator interface {
	Translate(ctx context.Context, text string, source translate.Source) (string, error)
}

type Config struct {
	Translator Translator
	Voice      *voice.Capture   // nil: dictation unavailable
	Playback   *speech.Playback // nil: playback unavailable
	Notifier   Notifier
	// OnChange receives a snapshot after every state change, on the
	// controller goroutine.
	OnChange func(State)
	Field    *textarea.Field
	Source   translate.Source
	// Timeout bounds one translation request; zero means none.
	Timeout time.Duration
}

// State is a read-only snapshot of the controller.
type State struct {
	Input       string
	Result      string
	Source      translate.Source
	InputRows   int
	Listening   bool
	Speaking    bool
	Translating bool
}

type Controller struct {
	cfg    Config
	events chan func()
	done   chan struct{}
	snap   atomic.Pointer[State]

	// owned by the Run goroutine
	ctx         context.Context
	input       string
	result      string
	source      translate.Source
	seq         uint64
	cancelReq   context.CancelFunc
	translating bool
	dictation   *dictation
}

func New(cfg Config) *Controller {
	if cfg.Field == nil {
		cfg.Field = textarea.NewField(defaultFieldWidth)
	}
	if cfg.Source == "" {
		cfg.Source = translate.DefaultSource
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NotifierFunc(func(Notice) {})
	}

	c := &Controller{
		cfg:    cfg,
		events: make(chan func(), eventQueueSize),
		done:   make(chan struct{}),
		source: cfg.Source,
	}
	if cfg.Playback != nil {
		cfg.Playback.OnEnd = func(error) { c.post(c.changed) }
	}
	textarea.Resize(cfg.Field)
	c.snap.Store(&State{Source: c.source, InputRows: cfg.Field.Height()})
	return c
}

// Run processes actions until ctx ends, then stops dictation, playback
// and any pending translation.
func (c *Controller) Run(ctx context.Context) {
	c.ctx = ctx
	defer close(c.done)
	for {
		select {
		case fn := <-c.events:
			fn()
		case <-ctx.Done():
			c.teardown()
			return
		}
	}
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} { return c.done }

func (c *Controller) State() State { return *c.snap.Load() }

func (c *Controller) post(fn func()) {
	select {
	case c.events <- fn:
	case <-c.done:
	}
}

// Sync blocks until every action queued before it has been applied.
func (c *Controller) Sync() {
	applied := make(chan struct{})
	c.post(func() { close(applied) })
	select {
	case <-applied:
	case <-c.done:
	}
}

func (c *Controller) Submit()              { c.post(c.submit) }
func (c *Controller) Clear()               { c.post(c.clear) }
func (c *Controller) Speak()               { c.post(c.speak) }
func (c *Controller) StopSpeaking()        { c.post(c.stopSpeaking) }
func (c *Controller) StartVoice()          { c.post(c.startVoice) }
func (c *Controller) StopVoice()           { c.post(c.stopVoice) }
func (c *Controller) ToggleVoice()         { c.post(c.toggleVoice) }
func (c *Controller) CycleSource()         { c.post(func() { c.setSource(c.source.Next()) }) }
func (c *Controller) SetInput(text string) { c.post(func() { c.edit(text) }) }

func (c *Controller) SetSource(src translate.Source) {
	c.post(func() { c.setSource(src) })
}

// SetWidth rewraps the input at w columns.
func (c *Controller) SetWidth(w int) {
	c.post(func() {
		c.cfg.Field.Width = w
		c.resize()
		c.changed()
	})
}

func (c *Controller) submit() {
	if strings.TrimSpace(c.input) == "" {
		c.notify(Notice{Kind: NoticeWarn, Message: MsgEmptyInput, Err: translate.ErrEmptyInput})
		return
	}

	c.cancelTranslation()
	c.seq++
	seq := c.seq

	var rctx context.Context
	var cancel context.CancelFunc
	if c.cfg.Timeout > 0 {
		rctx, cancel = context.WithTimeout(c.ctx, c.cfg.Timeout)
	} else {
		rctx, cancel = context.WithCancel(c.ctx)
	}
	c.cancelReq = cancel
	c.translating = true
	c.changed()

	text, source := c.input, c.source
	go func() {
		result, err := c.cfg.Translator.Translate(rctx, text, source)
		c.post(func() { c.finishTranslation(seq, result, err) })
	}()
}

func (c *Controller) finishTranslation(seq uint64, result string, err error) {
	if seq != c.seq {
		return
	}
	c.cancelTranslation()

	switch {
	case err == nil:
		c.result = result
	case errors.Is(err, context.Canceled):
	default:
		log.Errorf("translation failed: %v", err)
		c.notify(Notice{Kind: NoticeError, Message: MsgTranslationFailed, Err: err})
	}
	c.changed()
}

func (c *Controller) cancelTranslation() {
	if c.cancelReq != nil {
		c.cancelReq()
		c.cancelReq = nil
	}
	c.translating = false
}

func (c *Controller) clear() {
	c.markEdited()
	c.seq++
	c.cancelTranslation()
	c.input = ""
	c.result = ""
	c.resize()
	c.changed()
}

func (c *Controller) speak() {
	if c.cfg.Playback == nil {
		c.notify(Notice{Kind: NoticeWarn, Message: MsgSpeechUnavailable})
		return
	}
	c.cfg.Playback.Speak(c.ctx, c.result)
	c.changed()
}

func (c *Controller) stopSpeaking() {
	if c.cfg.Playback != nil {
		c.cfg.Playback.Stop()
	}
	c.changed()
}

func (c *Controller) startVoice() {
	if c.cfg.Voice == nil {
		c.notify(Notice{Kind: NoticeWarn, Message: MsgVoiceUnavailable, Err: voice.ErrCapabilityUnavailable})
		return
	}

	d := &dictation{}
	err := c.cfg.Voice.Start(c.ctx,
		func(text string) { c.post(func() { c.transcript(d, text) }) },
		func() { c.post(c.changed) },
	)
	switch {
	case err == nil:
		c.dictation = d
	case errors.Is(err, voice.ErrCapabilityUnavailable):
		log.Warnf("voice: %v", err)
		c.notify(Notice{Kind: NoticeWarn, Message: MsgVoiceUnavailable, Err: err})
	case errors.Is(err, voice.ErrAlreadyListening):
		c.notify(Notice{Kind: NoticeInfo, Message: MsgAlreadyListening, Err: err})
	default:
		log.Warnf("voice: %v", err)
	}
	c.changed()
}

func (c *Controller) stopVoice() {
	if c.cfg.Voice != nil {
		if c.dictation != nil && c.cfg.Voice.State() == voice.Listening {
			c.dictation.stopped = true
		}
		c.cfg.Voice.Stop()
	}
	c.changed()
}

// dictation tracks one voice session. A transcript that arrives after an
// explicit stop is dropped if the user edited the input in between.
type dictation struct {
	stopped bool
	edited  bool
}

func (c *Controller) transcript(d *dictation, text string) {
	if d.edited {
		log.Info("voice: transcript dropped, input edited after stop")
		return
	}
	c.setInput(text)
}

// edit applies a user change to the input.
func (c *Controller) edit(text string) {
	c.markEdited()
	c.setInput(text)
}

func (c *Controller) markEdited() {
	if c.dictation != nil && c.dictation.stopped {
		c.dictation.edited = true
	}
}

func (c *Controller) toggleVoice() {
	if c.cfg.Voice != nil && c.cfg.Voice.State() == voice.Listening {
		c.stopVoice()
		return
	}
	c.startVoice()
}

func (c *Controller) setInput(text string) {
	c.input = text
	c.resize()
	c.changed()
}

func (c *Controller) setSource(src translate.Source) {
	c.source = src
	c.changed()
}

func (c *Controller) resize() {
	c.cfg.Field.Text = c.input
	textarea.Resize(c.cfg.Field)
}

func (c *Controller) notify(n Notice) {
	log.Info("notice: " + n.Message)
	c.cfg.Notifier.Notify(n)
}

func (c *Controller) changed() {
	s := State{
		Input:       c.input,
		Result:      c.result,
		Source:      c.source,
		InputRows:   c.cfg.Field.Height(),
		Translating: c.translating,
	}
	if c.cfg.Voice != nil {
		s.Listening = c.cfg.Voice.State() == voice.Listening
	}
	if c.cfg.Playback != nil {
		s.Speaking = c.cfg.Playback.Speaking()
	}
	c.snap.Store(&s)
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(s)
	}
}

func (c *Controller) teardown() {
	c.seq++
	c.cancelTranslation()
	if c.cfg.Voice != nil {
		c.cfg.Voice.Stop()
	}
	if c.cfg.Playback != nil {
		c.cfg.Playback.Stop()
	}
	c.changed()
}
