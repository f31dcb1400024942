package tui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MKhiriev/go-refsync/models"
)

const (
	defaultPaneWidth = 38
	statusTTL        = 2 * time.Second
)

// conflictModel presents one set of conflicts, one at a time, and collects a
// Resolution for each. It quits after the last decision, after an "apply to
// remaining" decision or on cancel.
type conflictModel struct {
	conflicts   []models.Conflict
	idx         int
	choice      models.Side
	resolutions []models.Resolution

	cancelled bool
	status    string
	errMsg    string
	width     int

	copy func(string) error
}

func newConflictModel(conflicts []models.Conflict, copyFn func(string) error) conflictModel {
	return conflictModel{
		conflicts:   conflicts,
		choice:      models.SideRemote,
		resolutions: make([]models.Resolution, 0, len(conflicts)),
		copy:        copyFn,
	}
}

func (m conflictModel) Init() tea.Cmd {
	return nil
}

func (m conflictModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case clearStatusMsg:
		m.status = ""
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m conflictModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.errMsg = ""

	switch {
	case key.Matches(msg, keys.cancel):
		m.cancelled = true
		return m, tea.Quit
	case key.Matches(msg, keys.left):
		m.choice = models.SideLocal
	case key.Matches(msg, keys.right):
		m.choice = models.SideRemote
	case key.Matches(msg, keys.toggle):
		if m.choice == models.SideRemote {
			m.choice = models.SideLocal
		} else {
			m.choice = models.SideRemote
		}
	case key.Matches(msg, keys.enter):
		return m.resolve(false)
	case key.Matches(msg, keys.apply):
		return m.resolve(true)
	case key.Matches(msg, keys.copy):
		return m.copyChoice()
	}
	return m, nil
}

func (m conflictModel) resolve(applyToRemaining bool) (tea.Model, tea.Cmd) {
	c := m.current()
	m.resolutions = append(m.resolutions, models.Resolution{
		Key:              c.Key,
		Choice:           m.choice,
		ApplyToRemaining: applyToRemaining,
	})

	if applyToRemaining || m.idx == len(m.conflicts)-1 {
		return m, tea.Quit
	}
	m.idx++
	m.choice = models.SideRemote
	m.status = ""
	return m, nil
}

func (m conflictModel) copyChoice() (tea.Model, tea.Cmd) {
	data := m.current().Remote
	if m.choice == models.SideLocal {
		data = m.current().Local
	}
	if data == nil {
		m.status = "Нечего копировать: объект удалён"
		return m, clearStatusAfter(statusTTL)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		m.errMsg = fmt.Sprintf("Ошибка копирования: %v", err)
		return m, nil
	}
	if err = m.copy(string(raw)); err != nil {
		m.errMsg = fmt.Sprintf("Ошибка копирования: %v", err)
		return m, nil
	}
	m.status = "Скопировано"
	return m, clearStatusAfter(statusTTL)
}

func (m conflictModel) current() models.Conflict {
	return m.conflicts[m.idx]
}

func (m conflictModel) View() string {
	if len(m.conflicts) == 0 || m.idx >= len(m.conflicts) {
		return ""
	}
	c := m.current()

	var b strings.Builder
	fmt.Fprintf(&b, "Тип: %s  Ключ: %s  Библиотека: %d\n", c.Type, c.Key, c.LibraryID)
	b.WriteString(kindDescription(c.Kind))
	b.WriteString("\n\n")

	fields := conflictFields(c)
	local := m.renderPane("Локально", c.LocalVersion, c.Local, fields, m.choice == models.SideLocal)
	remote := m.renderPane("На сервере", c.RemoteVersion, c.Remote, fields, m.choice == models.SideRemote)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, local, " ", remote))

	if diff := renderFieldDiffs(c, fields); diff != "" {
		b.WriteString("\n\nИзменения:\n")
		b.WriteString(diff)
	}

	if m.status != "" {
		b.WriteString("\n\n")
		b.WriteString(m.status)
	}
	if m.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(m.errMsg))
	}

	title := fmt.Sprintf("КОНФЛИКТ %d/%d", m.idx+1, len(m.conflicts))
	hotKeys := "←/→: выбор стороны  enter: применить  a: применить ко всем  y: копировать JSON  esc: отмена"
	return renderPage(title, b.String(), hotKeys)
}

func (m conflictModel) renderPane(title string, version int64, data models.ObjectData, fields []string, selected bool) string {
	width := defaultPaneWidth
	if m.width > 0 {
		width = max(20, m.width/2-6)
	}

	var b strings.Builder
	marker := "  "
	if selected {
		marker = "▶ "
	}
	fmt.Fprintf(&b, "%s%s (v%d)\n", marker, title, version)

	if data == nil {
		b.WriteString("(удалён)")
	} else {
		for i, field := range fields {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(fitText(fmt.Sprintf("%s: %s", field, formatValue(data[field])), width))
		}
	}

	style := paneStyle
	if selected {
		style = selectedPaneStyle
	}
	return style.Width(width).Render(b.String())
}

func kindDescription(kind models.ConflictKind) string {
	switch kind {
	case models.ConflictRemoteDeletion:
		return "Объект удалён на сервере, но изменён локально"
	case models.ConflictLocalDeletion:
		return "Объект удалён локально, но изменён на сервере"
	default:
		return "Одни и те же поля изменены с обеих сторон"
	}
}

// conflictFields returns the fields shown for c: the conflicting ones, or
// every field of the surviving side of a deletion conflict.
func conflictFields(c models.Conflict) []string {
	if len(c.Fields) > 0 {
		return c.Fields
	}
	fields := sortedKeys(c.Local, c.Remote)
	out := fields[:0]
	for _, f := range fields {
		if f != "key" && f != "version" {
			out = append(out, f)
		}
	}
	return out
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
