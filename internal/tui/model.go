// Package tui provides the Bubble Tea trial interface.
package tui

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/alphacmp/internal/model"
	"github.com/verte-zerg/alphacmp/internal/session"
	"github.com/verte-zerg/alphacmp/internal/trial"
)

type phase int

const (
	phaseSubject phase = iota
	phaseGetReady
	phaseTrial
	phasePause
	phaseDone
)

// cellScale converts a font size into box rows; columns are doubled to keep
// boxes roughly square in a terminal.
const cellScale = 20

const (
	barWidth  = 30
	starGlyph = "★"
)

type readyMsg struct{}

type nextTrialMsg struct{}

// SessionFactory starts a session for a subject id.
type SessionFactory func(subjectID string) (*session.Session, error)

// Model implements the Bubble Tea trial UI.
type Model struct {
	config model.Config
	start  SessionFactory
	logger *slog.Logger
	now    func() time.Time

	sess  *session.Session
	phase phase
	input textinput.Model
	bar   progress.Model

	current trial.Trial
	shownAt time.Time
	last    *session.Outcome
	errMsg  string

	width  int
	height int
}

var (
	symbolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Align(lipgloss.Center, lipgloss.Center).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	correctStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	wrongStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs the trial UI. When cfg.Subject is set the session
// starts immediately, otherwise the subject id is asked for first.
func NewModel(cfg model.Config, start SessionFactory, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "subject id"
	input.CharLimit = 64
	input.Focus()

	m := &Model{
		config: cfg,
		start:  start,
		logger: logger,
		now:    time.Now,
		input:  input,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(barWidth)),
	}
	if cfg.Subject == "" {
		m.phase = phaseSubject
		return m, nil
	}
	sess, err := start(cfg.Subject)
	if err != nil {
		return nil, err
	}
	m.begin(sess)
	return m, nil
}

// Session returns the running session, or nil while the subject prompt is
// shown.
func (m *Model) Session() *session.Session {
	return m.sess
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.phase == phaseSubject {
		return textinput.Blink
	}
	return after(m.config.GetReady, readyMsg{})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case readyMsg, nextTrialMsg:
		return m, m.showTrial()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		if m.phase == phaseSubject {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	}
	switch m.phase {
	case phaseSubject:
		if msg.Type == tea.KeyEnter {
			return m, m.submitSubject()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	case phaseTrial:
		switch strings.ToLower(msg.String()) {
		case "f":
			return m, m.respond(trial.Left)
		case "j":
			return m, m.respond(trial.Right)
		}
	case phaseDone:
		if msg.String() == "q" || msg.Type == tea.KeyEnter {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) submitSubject() tea.Cmd {
	id := strings.TrimSpace(m.input.Value())
	sess, err := m.start(id)
	if err != nil {
		m.errMsg = err.Error()
		return nil
	}
	m.input.Blur()
	m.errMsg = ""
	m.begin(sess)
	return after(m.config.GetReady, readyMsg{})
}

func (m *Model) begin(sess *session.Session) {
	m.sess = sess
	m.phase = phaseGetReady
	m.logger.Info("session started",
		"session", sess.ID().String(),
		"subject", sess.SubjectID(),
		"rounds", sess.MaxRounds(),
	)
}

func (m *Model) showTrial() tea.Cmd {
	if m.sess == nil {
		return nil
	}
	tr, err := m.sess.Next()
	if err != nil {
		if !errors.Is(err, session.ErrFinished) {
			m.errMsg = err.Error()
		}
		m.finish()
		return nil
	}
	m.current = tr
	m.shownAt = m.now()
	m.phase = phaseTrial
	return nil
}

func (m *Model) respond(chosen trial.Side) tea.Cmd {
	rt := m.now().Sub(m.shownAt)
	out, err := m.sess.Respond(chosen, rt)
	if errors.Is(err, session.ErrNoTrial) {
		return nil
	}
	m.errMsg = ""
	if err != nil {
		m.errMsg = fmt.Sprintf("not saved: %v", err)
	}
	m.last = &out
	if out.Finished {
		m.finish()
		return nil
	}
	m.phase = phasePause
	return after(m.config.InterTrial, nextTrialMsg{})
}

func (m *Model) finish() {
	m.phase = phaseDone
	m.logger.Info("session finished",
		"session", m.sess.ID().String(),
		"subject", m.sess.SubjectID(),
		"rounds", m.sess.Rounds(),
		"points", m.sess.Points(),
		"recorded", m.sess.Recorded(),
	)
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.phase {
	case phaseSubject:
		content = m.renderPrompt()
	case phaseGetReady:
		content = titleStyle.Render("Get ready") + "\n\n" + hintStyle.Render("Pick the letter that comes later in the alphabet.\nF = left   J = right")
	case phaseTrial:
		content = renderTrial(m.current)
	case phasePause:
		content = m.renderFeedback()
	case phaseDone:
		content = m.renderSummary()
	}

	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		if footer == "" {
			return content
		}
		return content + "\n\n" + footer
	}
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderPrompt() string {
	lines := []string{titleStyle.Render("Subject ID"), "", m.input.View()}
	if m.errMsg != "" {
		lines = append(lines, "", errorStyle.Render(m.errMsg))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFeedback() string {
	if m.last == nil {
		return ""
	}
	if m.last.Correct {
		return correctStyle.Render("correct")
	}
	return wrongStyle.Render("wrong")
}

func (m *Model) renderSummary() string {
	lines := []string{titleStyle.Render("Session complete"), ""}
	if m.sess != nil {
		lines = append(lines,
			fmt.Sprintf("Subject %s", m.sess.SubjectID()),
			fmt.Sprintf("%d of %d correct", m.sess.Points(), m.sess.Rounds()),
			fmt.Sprintf("Stars %s", strings.Repeat(starGlyph, m.sess.Stars())),
		)
	}
	lines = append(lines, "", hintStyle.Render("press q to quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	if m.sess == nil {
		return ""
	}
	round := fmt.Sprintf("Round %d", m.sess.Rounds())
	if limit := m.sess.MaxRounds(); limit > 0 {
		round = fmt.Sprintf("Round %d/%d", m.sess.Rounds(), limit)
	}
	segments := []string{
		m.bar.ViewAs(m.sess.Progress()),
		fmt.Sprintf("%s %d", starGlyph, m.sess.Stars()),
		round,
	}
	footer := footerStyle.Render(strings.Join(segments, "  "))
	if m.errMsg != "" && m.phase != phaseSubject {
		footer += "  " + errorStyle.Render(m.errMsg)
	}
	return footer
}

// renderTrial draws both symbols in boxes scaled by their font size.
func renderTrial(t trial.Trial) string {
	left := renderSymbol(t.LeftSymbol, t.LeftSize)
	right := renderSymbol(t.RightSymbol, t.RightSize)
	return lipgloss.JoinHorizontal(lipgloss.Center, left, "      ", right)
}

func renderSymbol(r rune, size int) string {
	rows := size / cellScale
	if rows < 1 {
		rows = 1
	}
	return symbolStyle.Width(rows * 2).Height(rows).Render(string(r))
}

// after delivers msg once d has elapsed.
func after(d time.Duration, msg tea.Msg) tea.Cmd {
	if d <= 0 {
		return func() tea.Msg { return msg }
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}
