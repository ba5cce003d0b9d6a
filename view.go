package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

func (m *model) sidebarWidth() int {
	longest := 0
	for _, c := range m.chats {
		if n := len(c.Name) + 1; n > longest {
			longest = n
		}
	}
	w := longest + sidebarPadding
	if w < minSidebarWidth {
		w = minSidebarWidth
	}
	return w
}

// chatPrefix returns the sigil shown before a chat name in the sidebar and
// title bar. Channel names already carry their own sigil.
func chatPrefix(c *Chat) string {
	switch c.Kind {
	case ChatPerson:
		return "@"
	case ChatSystem:
		return "~"
	default:
		return ""
	}
}

// renderTitleBar returns the rendered title bar for the current chat.
func (m *model) renderTitleBar() string {
	c := m.current()
	title := chatPrefix(c) + c.Name
	switch {
	case c.Kind == ChatChannel && c.State == StateJoinInProgress:
		title += " (joining...)"
	case c.Kind == ChatChannel && c.State == StateLeft:
		title += " (left)"
	case c.Kind == ChatChannel && c.State == StateDisconnected:
		title += " (disconnected)"
	}
	return lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Padding(0, 1).Render(title)
}

func (m *model) updateLayout() {
	contentWidth := m.width - m.sidebarWidth() - sidebarBorder
	if contentWidth < 10 {
		contentWidth = 10
	}

	// Set widths first so measured heights are accurate.
	m.viewport.Width = contentWidth
	m.input.SetWidth(contentWidth)

	// Measure fixed-height components dynamically.
	titleHeight := lipgloss.Height(m.renderTitleBar())
	statusHeight := lipgloss.Height(m.viewStatusBar())
	inputHeight := lipgloss.Height(m.input.View())
	acHeight := 0
	if len(m.acSuggestions) > 0 {
		acHeight = lipgloss.Height(m.viewAutocomplete())
	}

	contentHeight := m.height - titleHeight - statusHeight - inputHeight - acHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	m.viewport.Height = contentHeight
	m.updateViewport()
}

// renderChunks turns a message's chunk sequence into styled text. Links show
// their title; when the title differs from the location the location follows
// in parens so it stays visible (and copyable).
func renderChunks(msg *Message) string {
	var b strings.Builder
	for _, c := range msg.Chunks() {
		if c.Kind == ChunkText {
			b.WriteString(c.Text)
			continue
		}
		b.WriteString(linkStyle.Render(c.Title))
		if c.Title != c.Location {
			b.WriteString(chatSystemStyle.Render(" (" + c.Location + ")"))
		}
	}
	return b.String()
}

// renderMessageLine formats one message into its unwrapped display line.
func (m *model) renderMessageLine(msg *Message) string {
	ts := chatTimestampStyle.Render(msg.Time.Format("15:04"))
	content := renderChunks(msg)

	switch msg.Kind {
	case MessageSystem:
		return chatSystemStyle.Render("  " + msg.Text)
	case MessageAction:
		return fmt.Sprintf("%s %s", ts, chatActionStyle.Render("* "+msg.From+" "+msg.Text))
	}

	var authorStyle lipgloss.Style
	switch {
	case msg.From == m.cfg.Nick:
		authorStyle = chatOwnAuthorStyle
	case msg.Highlight:
		authorStyle = chatHighlightStyle
	default:
		authorStyle = lipgloss.NewStyle().Foreground(colorForNick(msg.From)).Bold(true)
	}
	author := authorStyle.Render(msg.From)
	if msg.Origin != "" {
		author += chatSystemStyle.Render(" in " + msg.Origin)
	}
	return fmt.Sprintf("%s %s: %s", ts, author, content)
}

func (m *model) updateViewport() {
	c := m.current()
	marker := c.MarkerPos()

	var lines []string
	for i := range c.Messages() {
		if i == marker && marker > 0 {
			lines = append(lines, unreadMarkerStyle.Render(strings.Repeat("─", m.viewport.Width)))
		}
		msg := &c.Messages()[i]
		raw := m.renderMessageLine(msg)

		// Word-wrap at word boundaries, then hard-wrap any remaining
		// overflows (long unbroken words like URLs).
		wrapped := wordwrap.String(raw, m.viewport.Width)
		for _, wl := range strings.Split(wrapped, "\n") {
			if lipgloss.Width(wl) > m.viewport.Width {
				lines = append(lines, strings.Split(wrap.String(wl, m.viewport.Width), "\n")...)
			} else {
				lines = append(lines, wl)
			}
		}
	}

	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	sidebar := m.viewSidebar()
	content := m.viewContent()
	statusBar := m.viewStatusBar()

	mainArea := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)

	return lipgloss.JoinVertical(lipgloss.Left, mainArea, statusBar)
}

// sidebarEntry renders one chat row, picking the style from focus, tab state
// and channel membership.
func (m *model) sidebarEntry(idx int, sw int) string {
	c := m.chats[idx]
	name := chatPrefix(c) + c.Name
	if len(name) > sw-2 {
		name = name[:sw-2]
	}
	if idx == m.activeChat {
		return sidebarSelectedStyle.Render(name)
	}
	switch c.TabState() {
	case TabHighlight:
		return sidebarHighlightStyle.Render(name)
	case TabUnread:
		return sidebarUnreadStyle.Render(name)
	}
	if c.Kind == ChatChannel && c.State != StateJoined {
		return sidebarLeftStyle.Render(name)
	}
	return sidebarItemStyle.Render(name)
}

func (m *model) viewSidebar() string {
	contentHeight := m.height - lipgloss.Height(m.viewStatusBar())
	sw := m.sidebarWidth()
	var items []string

	items = append(items, m.sidebarEntry(serverChatIdx, sw))
	items = append(items, m.sidebarEntry(highlightChatIdx, sw))

	items = append(items, sidebarSectionStyle.Render("CHANNELS"))
	for i, c := range m.chats {
		if c.Kind == ChatChannel {
			items = append(items, m.sidebarEntry(i, sw))
		}
	}

	items = append(items, sidebarSectionStyle.Render("PEOPLE"))
	for i, c := range m.chats {
		if c.Kind == ChatPerson {
			items = append(items, m.sidebarEntry(i, sw))
		}
	}

	content := strings.Join(items, "\n")

	return sidebarStyle.Width(sw).Height(contentHeight).MaxHeight(contentHeight).Render(content)
}

func (m *model) viewContent() string {
	totalHeight := m.height - lipgloss.Height(m.viewStatusBar())

	titleBar := m.renderTitleBar()
	inputView := m.input.View()
	vp := m.viewport.View()

	var inner string
	if len(m.acSuggestions) > 0 {
		acView := m.viewAutocomplete()
		inner = lipgloss.JoinVertical(lipgloss.Left, titleBar, vp, acView, inputView)
	} else {
		inner = lipgloss.JoinVertical(lipgloss.Left, titleBar, vp, inputView)
	}

	return lipgloss.NewStyle().Height(totalHeight).MaxHeight(totalHeight).Render(inner)
}

func (m *model) viewStatusBar() string {
	var status string
	switch m.status.State {
	case ConnConnected:
		status = statusConnectedStyle.Render("● " + m.status.String())
	case ConnDisconnected:
		status = statusErrorStyle.Render("○ " + m.status.String())
	default:
		status = "○ " + m.status.String()
	}
	bar := fmt.Sprintf("%s  %s @ %s", status, m.cfg.Nick, m.cfg.Server)
	if !m.lastActivity.IsZero() && m.status.State == ConnConnected {
		bar += chatTimestampStyle.Render("  last activity " + m.lastActivity.Format("15:04:05"))
	}
	return statusBarStyle.Width(m.width).Render(bar)
}

// stripANSI removes styling for tests and log output.
func stripANSI(s string) string {
	return ansi.Strip(s)
}
