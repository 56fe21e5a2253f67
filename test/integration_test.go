//go:build integration

package test_test

import (
	"encoding/binary"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("BOLO_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "BOLO_TEST_BIN not set; build bolo and point BOLO_TEST_BIN at it")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// translateServer mimics the translation service: "hello" becomes
// "नमस्ते", "boom" is a 500 and anything else is echoed upper-cased.
func translateServer(t *testing.T) (string, *atomic.Int32) {
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
			data, _ := json.Marshal(map[string]string{"result": strings.ToUpper(req.Text)})
			w.Write(data)
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL, &hits
}

func generateToneWAV(path string, sampleRate int, durationS float64) error {
	const headerSize = 44
	numSamples := int(float64(sampleRate) * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	for i := 0; i < numSamples; i++ {
		s := int16(0.3 * 32767 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(buf[headerSize+i*2:], uint16(s))
	}
	return os.WriteFile(path, buf, 0644)
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

func runBolo(t *testing.T, stdin string, args ...string) (out, logDir string) {
	t.Helper()
	logDir = t.TempDir()
	cmdArgs := append([]string{"-logpath", logDir, "-test", "-hotkey=false"}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = os.Environ()
	cmd.Dir = t.TempDir() // no stray .env

	data, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("bolo exited with error: %v\noutput: %s", err, data)
	}
	return string(data), logDir
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func TestTranslateHello(t *testing.T) {
	url, _ := translateServer(t)
	out, logDir := runBolo(t, cmds("INPUT hello", "SOURCE en", "SUBMIT", "WAIT", "STATE", "QUIT"), "-server", url)

	if !strings.Contains(out, `"result":"नमस्ते"`) {
		t.Errorf("unexpected output:\n%s", out)
	}
	if hist := readLog(t, logDir, "translate_log.txt"); !strings.Contains(hist, "\ten\thello\tनमस्ते") {
		t.Errorf("translate_log.txt missing entry:\n%s", hist)
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	for _, want := range []string{"session_start", "translation", "status=200", "session_end"} {
		if !strings.Contains(diag, want) {
			t.Errorf("diagnostics missing %q", want)
		}
	}
}

func TestBlankInputSkipsNetwork(t *testing.T) {
	url, hits := translateServer(t)
	out, _ := runBolo(t, cmds("INPUT    ", "SUBMIT", "WAIT", "QUIT"), "-server", url)

	if !strings.Contains(out, "NOTICE warn Please enter some text to translate.") {
		t.Errorf("missing empty-input notice:\n%s", out)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server hit %d times", n)
	}
}

func TestServerFault(t *testing.T) {
	url, _ := translateServer(t)
	out, logDir := runBolo(t, cmds("INPUT hello", "SUBMIT", "WAIT", "INPUT boom", "SUBMIT", "WAIT", "STATE", "QUIT"), "-server", url)

	if !strings.Contains(out, "NOTICE error Error occurred during translation.") {
		t.Errorf("missing fault notice:\n%s", out)
	}
	if !strings.Contains(out, `"result":"नमस्ते"`) {
		t.Errorf("previous result not kept:\n%s", out)
	}
	if diag := readLog(t, logDir, "diagnostics_log.txt"); !strings.Contains(diag, "status=500") {
		t.Error("expected status=500 in diagnostics")
	}
}

func TestConnReuse(t *testing.T) {
	url, _ := translateServer(t)
	_, logDir := runBolo(t, cmds("INPUT one", "SUBMIT", "WAIT", "INPUT two", "SUBMIT", "WAIT", "QUIT"), "-server", url)

	diag := readLog(t, logDir, "diagnostics_log.txt")
	if strings.Count(diag, "status=200") < 2 {
		t.Error("expected 2 translation entries in diagnostics")
	}
	if !strings.Contains(diag, "conn=reused") {
		t.Error("expected conn=reused in diagnostics")
	}
}

func TestSpeakResult(t *testing.T) {
	url, _ := translateServer(t)
	out, _ := runBolo(t, cmds("SPEAK", "INPUT hello", "SUBMIT", "WAIT", "SPEAK", "WAIT", "QUIT"), "-server", url)

	if n := strings.Count(out, "SPOKEN"); n != 1 {
		t.Errorf("spoke %d times, want 1:\n%s", n, out)
	}
	if !strings.Contains(out, "SPOKEN hi-IN नमस्ते") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestVoiceUnavailableWithoutMicrophone(t *testing.T) {
	url, _ := translateServer(t)
	out, _ := runBolo(t, cmds("VOICE_START", "QUIT"), "-server", url)
	if !strings.Contains(out, "NOTICE warn Speech recognition is not available.") {
		t.Errorf("missing capability notice:\n%s", out)
	}
}

func TestDictation(t *testing.T) {
	if os.Getenv("GROQ_API_KEY") == "" && os.Getenv("OPENAI_API_KEY") == "" {
		t.Skip("no transcription key set")
	}
	wav := filepath.Join(t.TempDir(), "tone.wav")
	if err := generateToneWAV(wav, 16000, 1.0); err != nil {
		t.Fatal(err)
	}
	url, _ := translateServer(t)
	out, logDir := runBolo(t, cmds("VOICE_START", "WAIT", "STATE", "QUIT"), "-server", url, wav)

	if !strings.Contains(out, `"listening":false`) {
		t.Errorf("still listening:\n%s", out)
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "voice_start") || !strings.Contains(diag, "recording_end") {
		t.Errorf("voice session not logged:\n%s", diag)
	}
}
