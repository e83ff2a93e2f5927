// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/chatsphere/internal/chat"
	"github.com/morganforge/chatsphere/internal/config"
	"github.com/morganforge/chatsphere/internal/model"
	"github.com/morganforge/chatsphere/internal/state"
	"github.com/morganforge/chatsphere/internal/ui/styles"
)

// =============================================================================
// FOCUS
// =============================================================================

type focusArea int

const (
	focusSidebar focusArea = iota
	focusInput
)

// =============================================================================
// MESSAGES
// =============================================================================

// submitDoneMsg reports the outcome of a chat submission.
type submitDoneMsg struct {
	threadID string
	err      error
}

// =============================================================================
// ROOT MODEL
// =============================================================================

// Model is the root Bubble Tea model for the chatsphere TUI.
type Model struct {
	manager *state.Manager
	flow    *chat.Flow
	cfg     *config.Config
	theme   *styles.Theme

	width  int
	height int
	ready  bool

	focus   focusArea
	sidebar *Sidebar

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model

	sending bool
	errText string

	md      *glamour.TermRenderer
	mdWidth int
}

// New creates the root model.
func New(manager *state.Manager, flow *chat.Flow, cfg *config.Config) *Model {
	theme := styles.NewTheme()

	input := textarea.New()
	input.Placeholder = "Type a message..."
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(3)
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := &Model{
		manager: manager,
		flow:    flow,
		cfg:     cfg,
		theme:   theme,
		focus:   focusInput,
		input:   input,
		spin:    sp,
	}
	m.sidebar = NewSidebar(manager, theme, func(threadID string) bool {
		return flow.ThreadStatus(threadID) == chat.StatusSending
	})
	return m
}

// Run starts the TUI and blocks until exit.
func Run(manager *state.Manager, flow *chat.Flow, cfg *config.Config) error {
	program := tea.NewProgram(New(manager, flow, cfg), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case submitDoneMsg:
		m.sending = false
		if msg.err != nil {
			m.errText = chat.FriendlyError(msg.err)
		}
		m.sidebar.Refresh()
		m.refreshConversation(true)
		return m, nil

	case submitProgressMsg:
		m.refreshConversation(true)
		return m, nil

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateChildren(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		if m.errText != "" {
			m.errText = ""
			return m, nil
		}

	case "tab":
		if m.focus == focusSidebar {
			m.focus = focusInput
			m.input.Focus()
		} else {
			m.focus = focusSidebar
			m.input.Blur()
		}
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.sidebar.MoveUp()

	case "down", "j":
		m.sidebar.MoveDown()

	case "enter":
		m.sidebar.Activate()
		m.refreshConversation(true)

	case " ":
		m.sidebar.ToggleExpand()

	case "n":
		if row := m.sidebar.Selected(); row != nil {
			m.manager.CreateThread(row.workspaceID)
			m.sidebar.Refresh()
			m.refreshConversation(true)
		}

	case "N":
		ws := m.manager.CreateWorkspace()
		if m.cfg.Chat.DefaultModel != "" {
			m.manager.UpdateWorkspaceSettings(ws.ID, model.WorkspaceSettings{
				SelectedModelID: m.cfg.Chat.DefaultModel,
				Temperature:     m.cfg.Chat.DefaultTemperature,
			})
		}
		m.manager.CreateThread(ws.ID)
		m.sidebar.Refresh()
		m.refreshConversation(true)

	case "d":
		if row := m.sidebar.Selected(); row != nil && row.kind == rowThread {
			m.manager.DeleteThread(row.workspaceID, row.threadID)
			m.sidebar.Refresh()
			m.refreshConversation(true)
		}
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m, m.submit()

	case "ctrl+j":
		m.input.InsertString("\n")
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateChildren(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	if m.focus == focusInput {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// submit sends the input through the chat flow off the UI goroutine.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	_, threadID := m.manager.Selection()
	if m.flow.ThreadStatus(threadID) == chat.StatusSending {
		m.errText = chat.FriendlyError(chat.ErrThreadBusy)
		return nil
	}

	m.input.Reset()
	m.errText = ""
	m.sending = true

	submitCmd := func() tea.Msg {
		err := m.flow.Submit(context.Background(), text)
		return submitDoneMsg{threadID: threadID, err: err}
	}

	// The flow appends the user message before the network call; a short
	// tick later it is in the store and the redraw shows it while the
	// completion is still in flight.
	progress := tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg { return submitProgressMsg{} })
	return tea.Batch(m.spin.Tick, submitCmd, progress)
}

// submitProgressMsg triggers a conversation redraw while a submission runs.
type submitProgressMsg struct{}

// =============================================================================
// RESIZE AND REDRAW
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	sidebarWidth := m.cfg.UI.SidebarWidth
	if sidebarWidth >= width/2 {
		sidebarWidth = width / 3
	}

	headerHeight := 1
	statusHeight := 1
	inputHeight := m.input.Height() + 1
	bodyHeight := height - headerHeight - statusHeight - inputHeight
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	m.sidebar.SetSize(sidebarWidth, bodyHeight)

	contentWidth := width - sidebarWidth - 2
	if contentWidth < 20 {
		contentWidth = 20
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, bodyHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = bodyHeight
	}
	m.input.SetWidth(contentWidth)

	m.refreshConversation(false)
}

// refreshConversation re-renders the active thread into the viewport.
func (m *Model) refreshConversation(scrollToBottom bool) {
	thread := m.manager.ActiveThread()
	if thread == nil {
		m.viewport.SetContent(m.theme.SidebarHint.Render("Select or create a thread to start chatting."))
		return
	}

	var b strings.Builder
	wrap := m.viewport.Width - 4
	if wrap < 10 {
		wrap = 10
	}

	for _, msg := range thread.Messages {
		var style lipgloss.Style
		body := msg.Content
		switch msg.Role {
		case model.RoleUser:
			style = m.theme.UserMessage
		case model.RoleAssistant:
			style = m.theme.AssistantMessage
			body = m.renderAssistant(msg.Content, wrap)
		default:
			style = m.theme.SystemMessage
		}

		b.WriteString(m.theme.MessageMeta.Render(msg.Role.DisplayName()))
		b.WriteString("\n")
		b.WriteString(style.Width(wrap).Render(body))
		b.WriteString("\n\n")
	}

	if thread.IsEmpty() {
		b.WriteString(m.theme.SidebarHint.Render("No messages yet."))
	}

	m.viewport.SetContent(b.String())
	if scrollToBottom {
		m.viewport.GotoBottom()
	}
}

// renderAssistant formats an assistant reply as markdown when enabled,
// falling back to the raw text on any renderer failure.
func (m *Model) renderAssistant(content string, wrap int) string {
	if !m.cfg.UI.Markdown {
		return content
	}
	if m.md == nil || m.mdWidth != wrap {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return content
		}
		m.md = r
		m.mdWidth = wrap
	}
	out, err := m.md.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	header := m.theme.Header.Width(m.width).Render("ChatSphere")

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.sidebar.View(m.focus == focusSidebar),
		m.viewport.View(),
	)

	inputFrame := m.theme.InputContainer
	if m.focus == focusInput {
		inputFrame = m.theme.InputFocused
	}
	inputView := inputFrame.Width(m.width - 2).Render(m.input.View())

	sections := []string{header, body}
	if m.errText != "" {
		banner := lipgloss.JoinHorizontal(lipgloss.Top,
			m.theme.ErrorTitle.Render("Error: "),
			m.theme.ErrorMessage.Render(m.errText),
			m.theme.ErrorDismiss.Render("  (esc to dismiss)"),
		)
		sections = append(sections, m.theme.ErrorBox.Width(m.width-2).Render(banner))
	}
	sections = append(sections, inputView, m.statusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) statusBar() string {
	var left string
	if ws := m.manager.ActiveWorkspace(); ws != nil {
		modelID := ws.Settings.SelectedModelID
		if modelID == "" {
			modelID = "no model"
		}
		left = fmt.Sprintf("%s  %s",
			ws.Name,
			m.theme.StatusModel.Render(modelID))
	}

	if m.sending {
		left += "  " + m.theme.StatusBusy.Render(m.spin.View()+" waiting for reply")
	}

	right := m.theme.ShortcutKey.Render("tab") + m.theme.ShortcutDesc.Render(" focus  ") +
		m.theme.ShortcutKey.Render("N") + m.theme.ShortcutDesc.Render(" workspace  ") +
		m.theme.ShortcutKey.Render("n") + m.theme.ShortcutDesc.Render(" thread  ") +
		m.theme.ShortcutKey.Render("ctrl+c") + m.theme.ShortcutDesc.Render(" quit")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
