package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrNoEngine = errors.New("no speech engine found (install espeak-ng)")

// CommandSynthesizer speaks through a local engine process such as espeak-ng.
type CommandSynthesizer struct {
	Path string
	Args func(u Utterance) []string
}

func NewCommandSynthesizer() (*CommandSynthesizer, error) {
	for _, name := range []string{"espeak-ng", "espeak"} {
		if p, err := exec.LookPath(name); err == nil {
			return &CommandSynthesizer{Path: p, Args: espeakArgs}, nil
		}
	}
	return nil, ErrNoEngine
}

// espeakArgs never carries the text; it is fed on stdin so a leading "-"
// is spoken rather than parsed as an option.
func espeakArgs(u Utterance) []string {
	return []string{"-v", voiceName(u.Language), "--stdin"}
}

// voiceName maps a BCP 47 tag to an espeak voice: "hi-IN" -> "hi".
func voiceName(lang string) string {
	if lang == "" {
		return "hi"
	}
	base, _, _ := strings.Cut(lang, "-")
	return strings.ToLower(base)
}

func (c *CommandSynthesizer) Speak(ctx context.Context, u Utterance) error {
	args := espeakArgs(u)
	if c.Args != nil {
		args = c.Args(u)
	}
	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Stdin = strings.NewReader(u.Text)
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w: %s", c.Path, err, strings.TrimSpace(string(out)))
	}
	return nil
}
