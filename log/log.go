package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog       zerolog.Logger
	diagFile      *os.File
	translateFile *os.File
	logMu         sync.Mutex
	logReady      bool
	pid           int
	dir           string
)

const (
	diagFileName      = "diagnostics_log.txt"
	translateFileName = "translate_log.txt"
)

// Translation carries the per-request numbers written to the diagnostics log.
type Translation struct {
	RequestID  string
	Source     string
	Status     int
	InputChars int
	DNSMs      float64
	TLSMs      float64
	TTFBMs     float64
	TotalMs    float64
	ConnReused bool
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absFromWD(flagPath)
	}

	// Priority 2: BOLO_LOG_PATH environment variable
	if envPath := os.Getenv("BOLO_LOG_PATH"); envPath != "" {
		return absFromWD(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absFromWD(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, diagFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	translateFile, err = os.OpenFile(filepath.Join(dir, translateFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		diagFile = nil
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if translateFile != nil {
		translateFile.Close()
		translateFile = nil
	}
	logReady = false
}

func ready() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return logReady
}

func Info(msg string) {
	if ready() {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if ready() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if ready() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if ready() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if ready() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func TranslationMetrics(m Translation) {
	if !ready() {
		return
	}

	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}

	diagLog.Info().
		Str("request_id", m.RequestID).
		Str("source", m.Source).
		Int("status", m.Status).
		Int("input_chars", m.InputChars).
		Str("conn", connStatus).
		Float64("dns_ms", m.DNSMs).
		Float64("tls_ms", m.TLSMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalMs).
		Msg("translation")
}

// TranslationText appends one history line: time, pid, source, input and result.
func TranslationText(source, input, result string) {
	if !ready() {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if translateFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\t%s\n",
		time.Now().Format("2006-01-02 15:04:05"), pid, source, oneLine(input), oneLine(result))
	translateFile.WriteString(line)
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

func VoiceEvent(event, lang string) {
	if !ready() {
		return
	}
	diagLog.Info().Str("lang", lang).Msg("voice_" + event)
}

func PlaybackEvent(event string, chars int) {
	if !ready() {
		return
	}
	diagLog.Info().Int("chars", chars).Msg("playback_" + event)
}

func SessionStart(server, stt, tts string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("server", server).
		Str("stt", stt).
		Str("tts", tts).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !ready() {
		return
	}
	diagLog.Info().
		Int("translations", count).
		Msg("session_end")
}
