package ui

import (
	"fmt"
	"strings"

	"formwidget/internal/control"
	"formwidget/internal/session"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n  %s Loading form...\n", m.spinner.View())
	}

	switch m.sess.State() {
	case session.Loading:
		return m.renderCentered(fmt.Sprintf("%s Loading form from %s", m.spinner.View(), m.sess.Source()))
	case session.LoadFailed:
		return m.renderCentered(joinLines(
			m.styles.Error.Render("Could not load the form"),
			"",
			m.styles.Muted.Render(errString(m.sess.Err())),
			"",
			m.styles.Muted.Render("Press q to quit"),
		))
	case session.Closed:
		return m.renderCentered(joinLines(
			m.styles.Title.Render(m.sess.Form().Name),
			m.styles.Warning.Render("This form is no longer accepting responses."),
			"",
			m.styles.Muted.Render("Press q to quit"),
		))
	case session.Submitted:
		if m.thanks {
			return m.renderCentered(joinLines(
				m.styles.Success.Render("Thanks! Your response has been recorded."),
				"",
				m.styles.Muted.Render("Press q to quit"),
			))
		}
		return m.renderCentered(m.styles.Success.Render("✓ Submitted"))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderFooter(),
	)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (m Model) renderCentered(body string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.styles.Panel.Render(body))
}

func (m Model) renderHeader() string {
	f := m.sess.Form()
	title := m.styles.Header.Render(f.Name)
	if m.sess.ReadOnly() {
		title = lipgloss.JoinHorizontal(lipgloss.Center, title, " ", m.styles.Badge.Render("PREVIEW"))
	}
	return joinLines(title, m.styles.RenderDivider(m.width))
}

func (m Model) renderFooter() string {
	var status string
	switch {
	case m.sess.State() == session.Submitting:
		status = m.spinner.View() + " Submitting..."
	case m.notice != "":
		style := m.styles.Warning
		if m.sess.State() == session.SubmitFailed {
			style = m.styles.Error
		}
		status = style.Render(m.notice)
	default:
		status = m.styles.Muted.Render(fmt.Sprintf("%d/%d answered", m.answered(), len(m.sess.Controls())))
	}
	return joinLines(
		m.styles.RenderDivider(m.width),
		m.styles.Footer.Render(status),
		m.styles.Footer.Render(m.help.View(m.keys)),
	)
}

// renderQuestions renders every question and records the line each one
// starts on.
func (m *Model) renderQuestions() string {
	f := m.sess.Form()
	var b strings.Builder
	line := 0
	write := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
		line += strings.Count(s, "\n") + 1
	}

	if f.Description != "" {
		write(m.styles.Content.Render(m.md.Render(f.Description)))
	}

	controls := m.sess.Controls()
	m.offsets = m.offsets[:0]
	for i, c := range controls {
		m.offsets = append(m.offsets, line)
		write(m.renderQuestion(i, c))
		write("")
	}
	return b.String()
}

func (m Model) renderQuestion(i int, c control.Control) string {
	q := c.Question()
	focused := i == m.focus

	prompt := q.Prompt
	if q.Required {
		prompt += " " + m.styles.RequiredMark.Render("*")
	}
	lines := []string{m.styles.Title.UnsetMarginBottom().Render(prompt)}
	if q.Description != "" {
		lines = append(lines, m.styles.Subtitle.Render(m.md.Render(q.Description)))
	}

	switch c := c.(type) {
	case *control.Choice:
		lines = append(lines, m.renderOptions(c, focused)...)
	case *control.Text:
		if f := m.fields[i]; f != nil {
			lines = append(lines, f.view())
		} else {
			lines = append(lines, m.styles.Body.Render(c.Value()))
		}
	}

	if c.Invalid() || (m.showMissing && c.Missing()) {
		lines = append(lines, m.styles.InlineError.Render("This question is required"))
	}

	style := m.styles.Question
	if focused {
		style = m.styles.FocusedQuestion
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m Model) renderOptions(c *control.Choice, focused bool) []string {
	q := c.Question()
	lines := make([]string, 0, len(q.Options))
	for j, o := range q.Options {
		mark := "( )"
		if c.Multi() {
			mark = "[ ]"
		}
		if c.IsSelected(o.ID) {
			mark = "(•)"
			if c.Multi() {
				mark = "[x]"
			}
		}

		cursor := "  "
		if focused && j == c.Cursor() {
			cursor = m.styles.OptionCursor.Render("> ")
		}

		label := mark + " " + o.Title
		if c.IsSelected(o.ID) {
			label = m.styles.SelectedOption.Render(label)
		} else {
			label = m.styles.Option.Render(label)
		}
		if o.Subtitle != "" {
			label += " " + m.styles.Muted.Render(o.Subtitle)
		}
		if o.Image != "" {
			label += " " + m.styles.Muted.Render("[image: "+o.Image+"]")
		}
		lines = append(lines, cursor+label)
	}
	return lines
}
