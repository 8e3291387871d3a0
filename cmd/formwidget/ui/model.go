package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"formwidget/internal/control"
	"formwidget/internal/logging"
	"formwidget/internal/session"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	headerHeight = 3
	footerHeight = 3
)

// Options configures a Model.
type Options struct {
	Styles Styles
	// Markdown renders descriptions with glamour.
	Markdown bool
}

type (
	loadedMsg       struct{ err error }
	submitResultMsg struct{ err error }
	thanksMsg       struct{}
)

// ReloadMsg swaps in a fresh session, e.g. when a previewed file changes.
type ReloadMsg struct {
	Session *session.Session
}

// textField is the editor behind a text control.
type textField struct {
	multiline bool
	input     textinput.Model
	area      textarea.Model
}

func (f *textField) value() string {
	if f.multiline {
		return f.area.Value()
	}
	return f.input.Value()
}

func (f *textField) focus() tea.Cmd {
	if f.multiline {
		return f.area.Focus()
	}
	return f.input.Focus()
}

func (f *textField) blur() {
	if f.multiline {
		f.area.Blur()
		return
	}
	f.input.Blur()
}

func (f *textField) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.multiline {
		f.area, cmd = f.area.Update(msg)
	} else {
		f.input, cmd = f.input.Update(msg)
	}
	return cmd
}

func (f *textField) setWidth(w int) {
	if f.multiline {
		f.area.SetWidth(w)
		return
	}
	f.input.Width = w
}

func (f *textField) view() string {
	if f.multiline {
		return f.area.View()
	}
	return f.input.View()
}

// Model is the bubbletea model for one form session.
type Model struct {
	ctx  context.Context
	sess *session.Session

	styles   Styles
	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model
	md       *Markdown

	fields      map[int]*textField
	focus       int
	offsets     []int
	showMissing bool
	notice      string
	thanks      bool

	width  int
	height int
	ready  bool
}

// New creates the model. The session is loaded by Init.
func New(ctx context.Context, sess *session.Session, opts Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Styles.Spinner

	var md *Markdown
	if opts.Markdown {
		md = NewMarkdown(opts.Styles.Theme.IsDark, 80)
	}

	return Model{
		ctx:      ctx,
		sess:     sess,
		styles:   opts.Styles,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		viewport: viewport.New(80, 20),
		md:       md,
		fields:   make(map[int]*textField),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

func (m Model) loadCmd() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		return loadedMsg{err: sess.Load(ctx)}
	}
}

// Session is the session being shown.
func (m Model) Session() *session.Session { return m.sess }

func (m Model) busy() bool {
	switch m.sess.State() {
	case session.Loading, session.Submitting:
		return true
	case session.Submitted:
		return !m.thanks
	}
	return false
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			logging.UIDebug("load failed: %v", msg.err)
		}
		cmds = append(cmds, m.buildFields())

	case ReloadMsg:
		m.sess = msg.Session
		m.fields = make(map[int]*textField)
		m.focus, m.showMissing, m.notice, m.thanks = 0, false, "", false
		m.refresh()
		return m, tea.Batch(m.spinner.Tick, m.loadCmd())

	case submitResultMsg:
		m.sess.FinishSubmit(msg.err)
		if msg.err != nil {
			m.notice = fmt.Sprintf("Submission failed: %v (%s to retry)", msg.err, m.keys.Retry.Help().Key)
			break
		}
		m.notice = ""
		delay := m.sess.PostSubmitDelay()
		if delay <= 0 {
			m.thanks = true
			break
		}
		cmds = append(cmds, tea.Tick(delay, func(time.Time) tea.Msg { return thanksMsg{} }))

	case thanksMsg:
		m.thanks = true

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.ready = true
	m.help.Width = w
	m.viewport.Width = w
	m.viewport.Height = max(h-headerHeight-footerHeight, 3)
	m.md.SetWidth(w - 8)
	for _, f := range m.fields {
		f.setWidth(m.fieldWidth())
	}
}

func (m Model) fieldWidth() int {
	return max(m.width-10, 20)
}

// buildFields creates an editor per text control once the form is loaded.
func (m *Model) buildFields() tea.Cmd {
	if m.sess.State() != session.Filling {
		return nil
	}
	for i, c := range m.sess.Controls() {
		t, ok := c.(*control.Text)
		if !ok {
			continue
		}
		q := t.Question()
		f := &textField{multiline: t.Multiline()}
		if f.multiline {
			f.area = textarea.New()
			f.area.Placeholder = q.Placeholder
			f.area.ShowLineNumbers = false
			f.area.SetHeight(4)
			f.area.SetValue(t.Value())
		} else {
			f.input = textinput.New()
			f.input.Placeholder = q.Placeholder
			f.input.Prompt = "│ "
			f.input.PromptStyle = m.styles.SelectedOption
			f.input.SetValue(t.Value())
		}
		f.setWidth(m.fieldWidth())
		m.fields[i] = f
	}
	m.focus = 0
	return m.setFocus(0)
}

// setFocus moves focus to question i (clamped) and focuses its editor.
func (m *Model) setFocus(i int) tea.Cmd {
	n := len(m.sess.Controls())
	if n == 0 {
		return nil
	}
	i = max(0, min(i, n-1))
	if f, ok := m.fields[m.focus]; ok {
		f.blur()
	}
	m.focus = i
	if f, ok := m.fields[i]; ok {
		return f.focus()
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if !m.sess.Editable() {
		st := m.sess.State()
		done := st == session.LoadFailed || st == session.Closed || (st == session.Submitted && m.thanks)
		if done && (msg.String() == "q" || msg.Type == tea.KeyEnter) {
			return m, tea.Quit
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case key.Matches(msg, m.keys.Retry) && m.sess.State() == session.SubmitFailed:
		return m.submit()
	case key.Matches(msg, m.keys.Next):
		cmd = m.setFocus(m.focus + 1)
	case key.Matches(msg, m.keys.Prev):
		cmd = m.setFocus(m.focus - 1)
	case msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown:
		m.viewport, cmd = m.viewport.Update(msg)
	default:
		cmd = m.handleControlKey(msg)
	}

	m.refresh()
	return m, cmd
}

func (m *Model) handleControlKey(msg tea.KeyMsg) tea.Cmd {
	controls := m.sess.Controls()
	if m.focus >= len(controls) {
		return nil
	}

	switch c := controls[m.focus].(type) {
	case *control.Choice:
		switch {
		case key.Matches(msg, m.keys.Up):
			c.MoveCursor(-1)
		case key.Matches(msg, m.keys.Down):
			c.MoveCursor(1)
		case key.Matches(msg, m.keys.Toggle):
			if _, err := c.ToggleCursor(); err != nil {
				m.notice = err.Error()
			}
		}
		return nil

	case *control.Text:
		f := m.fields[m.focus]
		if f == nil {
			return nil
		}
		if !f.multiline && msg.Type == tea.KeyEnter {
			return m.setFocus(m.focus + 1)
		}
		cmd := f.update(msg)
		if _, err := c.SetValue(f.value()); err != nil {
			m.notice = err.Error()
		}
		return cmd
	}
	return nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	r, err := m.sess.BeginSubmit()
	if err != nil {
		var missing *session.RequiredMissingError
		switch {
		case errors.As(err, &missing):
			m.showMissing = true
			m.notice = fmt.Sprintf("Please answer %d required question(s)", len(missing.QuestionIDs))
			m.focusQuestion(missing.QuestionIDs[0])
		case errors.Is(err, session.ErrReadOnly):
			m.notice = "Preview only: submission is disabled"
		default:
			m.notice = err.Error()
		}
		m.refresh()
		return m, nil
	}

	m.notice = ""
	ctx, sess := m.ctx, m.sess
	send := func() tea.Msg {
		return submitResultMsg{err: sess.Send(ctx, r)}
	}
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, send)
}

func (m *Model) focusQuestion(id string) {
	for i, c := range m.sess.Controls() {
		if c.Question().ID == id {
			m.setFocus(i)
			return
		}
	}
}

// refresh re-renders the question list and keeps the focused question in
// view.
func (m *Model) refresh() {
	if !m.sess.Editable() && m.sess.State() != session.Submitting {
		return
	}
	m.viewport.SetContent(m.renderQuestions())
	if m.focus >= len(m.offsets) {
		return
	}
	top := m.offsets[m.focus]
	bottom := m.viewport.TotalLineCount()
	if m.focus+1 < len(m.offsets) {
		bottom = m.offsets[m.focus+1]
	}
	switch {
	case top < m.viewport.YOffset:
		m.viewport.SetYOffset(top)
	case bottom > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(min(top, bottom-m.viewport.Height))
	}
}

// answered counts questions with a non-empty answer.
func (m Model) answered() int {
	n := 0
	for _, c := range m.sess.Controls() {
		if c.Value() != "" {
			n++
		}
	}
	return n
}

func joinLines(lines ...string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
