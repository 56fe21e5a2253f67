package main

import (
	"strings"
	"time"

	"bolo/clipboard"
	"bolo/controller"
	"bolo/hotkey"
	"bolo/log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type tickMsg time.Time
type clearNoticeMsg struct{ id int }

// tuiActions is the part of the controller the TUI drives.
type tuiActions interface {
	Submit()
	Clear()
	Speak()
	StopSpeaking()
	ToggleVoice()
	StopVoice()
	SetInput(text string)
	CycleSource()
	SetWidth(w int)
	State() controller.State
}

type tuiModel struct {
	ctrl  tuiActions
	state controller.State
	info  string

	// draft is the text being edited; sent holds drafts handed to the
	// controller whose echoes have not come back yet.
	draft string
	sent  []string

	notice   controller.Notice
	noticeID int

	frame         int
	width, height int
}

const noticeTTL = 4 * time.Second

var spinner = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	inputStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("241")).Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	resultStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	listenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	speakStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	noticeStyles = map[controller.NoticeKind]lipgloss.Style{
		controller.NoticeInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		controller.NoticeWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		controller.NoticeError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

func newTUIModel(ctrl tuiActions, info string) tuiModel {
	s := ctrl.State()
	return tuiModel{ctrl: ctrl, state: s, draft: s.Input, info: info}
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

// inputWidth is the wrap width inside the bordered input box.
func inputWidth(termWidth int) int {
	return max(termWidth-4, 10)
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ctrl.SetWidth(inputWidth(msg.Width))

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case stateMsg:
		m.reconcile(controller.State(msg))

	case noticeMsg:
		m.notice = controller.Notice(msg)
		m.noticeID++
		id := m.noticeID
		return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{id} })

	case clearNoticeMsg:
		if msg.id == m.noticeID {
			m.notice = controller.Notice{}
		}

	case tea.KeyMsg:
		return m.key(msg)
	}
	return m, nil
}

func (m tuiModel) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		m.ctrl.Submit()
	case "ctrl+l":
		m.draft = ""
		m.sent = append(m.sent, "")
		m.ctrl.Clear()
	case "ctrl+s":
		m.ctrl.Speak()
	case "ctrl+x":
		m.ctrl.StopSpeaking()
	case "ctrl+r":
		m.ctrl.ToggleVoice()
	case "esc":
		m.ctrl.StopVoice()
		m.ctrl.StopSpeaking()
	case "tab":
		m.ctrl.CycleSource()
	case "ctrl+y":
		m.copyResult()
	case "ctrl+u":
		m.edit("")
	case "ctrl+j", "alt+enter":
		m.edit(m.draft + "\n")
	case "backspace":
		if r := []rune(m.draft); len(r) > 0 {
			m.edit(string(r[:len(r)-1]))
		}
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.edit(m.draft + string(msg.Runes))
		}
	}
	return m, nil
}

func (m *tuiModel) edit(text string) {
	m.draft = text
	m.sent = append(m.sent, text)
	m.ctrl.SetInput(text)
}

// reconcile adopts s, keeping the local draft unless the input was
// changed by something other than typing (dictation, clear).
func (m *tuiModel) reconcile(s controller.State) {
	m.state = s
	for i, d := range m.sent {
		if d == s.Input {
			m.sent = m.sent[i+1:]
			return
		}
	}
	if s.Input != m.draft {
		m.draft = s.Input
		m.sent = nil
	}
}

func (m *tuiModel) copyResult() {
	if m.state.Result == "" {
		return
	}
	if err := clipboard.Copy(m.state.Result); err != nil {
		log.Warnf("clipboard: %v", err)
		m.notice = controller.Notice{Kind: controller.NoticeWarn, Message: "Could not copy: " + err.Error()}
		return
	}
	m.notice = controller.Notice{Kind: controller.NoticeInfo, Message: "Translation copied to clipboard."}
}

func (m tuiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	width := inputWidth(m.width)

	var b strings.Builder
	b.WriteString(titleStyle.Render("bolo") + "  " + sourceStyle.Render(m.state.Source.Label()) + "\n")

	text := m.draft
	if !m.state.Listening {
		text += "█"
	}
	b.WriteString(inputStyle.Width(width+2).Height(max(m.state.InputRows, 1)).Render(text) + "\n\n")

	b.WriteString(labelStyle.Render("Translation") + "\n")
	if m.state.Result != "" {
		b.WriteString(resultStyle.Width(width).Render(m.state.Result) + "\n")
	} else {
		b.WriteString(dimStyle.Render("—") + "\n")
	}
	b.WriteString("\n")

	b.WriteString(m.statusLine() + "\n")
	if m.notice.Message != "" {
		b.WriteString(noticeStyles[m.notice.Kind].Render(m.notice.Message))
	}
	b.WriteString("\n")
	if m.info != "" {
		b.WriteString(dimStyle.Render(m.info) + "\n")
	}
	b.WriteString(m.helpLine())
	return b.String()
}

func (m tuiModel) statusLine() string {
	var parts []string
	spin := spinner[m.frame%len(spinner)]
	if m.state.Listening {
		parts = append(parts, listenStyle.Render("● listening"))
	}
	if m.state.Translating {
		parts = append(parts, sourceStyle.Render(spin+" translating"))
	}
	if m.state.Speaking {
		parts = append(parts, speakStyle.Render("♪ speaking"))
	}
	if len(parts) == 0 {
		return dimStyle.Render("○ ready")
	}
	return strings.Join(parts, "  ")
}

func (m tuiModel) helpLine() string {
	keys := []struct{ key, what string }{
		{"enter", "translate"},
		{"ctrl+r", "dictate"},
		{"ctrl+s", "speak"},
		{"ctrl+x", "stop"},
		{"tab", "language"},
		{"ctrl+y", "copy"},
		{"ctrl+l", "clear"},
		{"ctrl+c", "quit"},
	}
	var parts []string
	for _, k := range keys {
		parts = append(parts, helpKeyStyle.Render(k.key)+helpStyle.Render(" "+k.what))
	}
	line := strings.Join(parts, helpStyle.Render(" · "))
	return line + "\n" + helpStyle.Render(hotkey.Combo+" dictates from anywhere · bolo "+version)
}
