package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// backendEventMsg wraps one event from the backend's event channel.
type backendEventMsg struct{ ev BackendEvent }

// backendClosedMsg signals the backend event channel was closed.
type backendClosedMsg struct{}

// statusTickMsg drives the reconnect countdown shown in the status bar.
type statusTickMsg struct{}

// waitForBackendEvent blocks on the backend event channel and delivers the
// next event as a message. Re-armed after every delivery so the pump never
// stalls.
func waitForBackendEvent(events <-chan BackendEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return backendClosedMsg{}
		}
		return backendEventMsg{ev: ev}
	}
}

func statusTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return statusTickMsg{}
	})
}

// Fixed chat slots: index 0 is the server feed, index 1 collects highlight
// copies from every other chat. Both exist for the whole session.
const (
	serverChatIdx    = 0
	highlightChatIdx = 1
)

type model struct {
	cfg         Config
	cfgFlagPath string
	backend     ChatBackend
	events      <-chan BackendEvent

	width  int
	height int

	chats      []*Chat
	activeChat int

	ignores map[string]bool

	status       ConnectionStatus
	lastActivity time.Time

	viewport        viewport.Model
	input           textarea.Model
	lastInputHeight int

	// Autocomplete
	acSuggestions []string
	acIndex       int

	// Input history
	inputHistory []string
	historyIndex int // -1 = current input
	historySaved string
}

func newModel(cfg Config, cfgFlagPath string, backend ChatBackend) model {
	ta := textarea.New()
	ta.Placeholder = "Type a message... (/help for commands)"
	ta.Prompt = "> "
	ta.CharLimit = 2000
	ta.SetHeight(inputMinHeight)
	ta.MaxHeight = inputMaxHeight
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	vp := viewport.New(80, 20)

	chats := []*Chat{
		NewChat("server", ChatSystem),
		NewChat("highlights", ChatSystem),
	}

	return model{
		cfg:             cfg,
		cfgFlagPath:     cfgFlagPath,
		backend:         backend,
		events:          backend.Events(),
		width:           80,
		height:          24,
		chats:           chats,
		activeChat:      serverChatIdx,
		ignores:         LoadIgnores(cfgFlagPath),
		historyIndex:    -1,
		lastInputHeight: inputMinHeight,
		viewport:        vp,
		input:           ta,
	}
}

func (m *model) Init() tea.Cmd {
	log.Println("Init() called")
	m.addServerMsg("tern — irc chat")
	m.addServerMsg(fmt.Sprintf("connecting to %s as %s ...", m.cfg.Server, m.cfg.Nick))
	m.backend.Connect()
	return tea.Batch(
		textarea.Blink,
		waitForBackendEvent(m.events),
		statusTickCmd(),
	)
}

// current returns the chat the user is looking at.
func (m *model) current() *Chat {
	return m.chats[m.activeChat]
}

// findChat locates a chat by kind and normalized name. Returns -1 when absent.
func (m *model) findChat(kind ChatKind, name string) int {
	k := normalizeChatName(name)
	for i, c := range m.chats {
		if c.Kind == kind && c.Key == k {
			return i
		}
	}
	return -1
}

// findOrCreateChat returns the chat for kind/name, creating it (and loading
// its persisted history) on first reference.
func (m *model) findOrCreateChat(kind ChatKind, name string) *Chat {
	if idx := m.findChat(kind, name); idx >= 0 {
		return m.chats[idx]
	}
	c := NewChat(name, kind)
	if m.cfg.LoggingEnabled() {
		history, err := loadChatHistory(m.cfg.LogDir, kind, c.Key, m.cfg.MaxMessages)
		if err != nil {
			log.Printf("findOrCreateChat: history load for %s failed: %v", c.Key, err)
		}
		for _, hm := range history {
			c.Push(hm, true)
		}
		c.MarkAsRead()
	}
	m.chats = append(m.chats, c)
	return c
}

// pushMessage appends a displayable message to a chat, persists it, and
// mirrors highlights into the highlight feed.
func (m *model) pushMessage(c *Chat, msg Message) {
	active := c == m.current()
	c.Push(msg, active)
	if m.cfg.LoggingEnabled() && msg.Kind != MessageSystem {
		appendChatLog(m.cfg.LogDir, c.Kind, c.Key, msg)
	}
	if msg.Highlight && c.Kind != ChatSystem {
		hlCopy := msg
		hlCopy.Origin = c.Name
		hl := m.chats[highlightChatIdx]
		hl.Push(hlCopy, hl == m.current())
	}
	if active {
		m.updateViewport()
	}
}

// addServerMsg appends a local notice to the server feed.
func (m *model) addServerMsg(text string) {
	c := m.chats[serverChatIdx]
	c.Push(NewMessage(MessageSystem, "", text, time.Now(), nil, ""), c == m.current())
	if c == m.current() {
		m.updateViewport()
	}
}

// addSystemMsg appends a local notice to the current chat.
func (m *model) addSystemMsg(text string) {
	c := m.current()
	c.Push(NewMessage(MessageSystem, "", text, time.Now(), nil, ""), true)
	m.updateViewport()
}

// switchChat changes focus to the chat at idx, marking it read on entry.
func (m *model) switchChat(idx int) {
	if idx < 0 || idx >= len(m.chats) {
		return
	}
	m.activeChat = idx
	m.chats[idx].MarkAsRead()
	m.updateViewport()
}

func (m *model) handleBackendEvent(ev BackendEvent) {
	switch ev := ev.(type) {
	case StatusEvent:
		prev := m.status
		m.status = ev.Status
		switch ev.Status.State {
		case ConnConnected:
			m.addServerMsg("connected to " + m.cfg.Server)
			for _, ch := range m.cfg.Channels {
				c := m.findOrCreateChat(ChatChannel, ch)
				c.State = StateJoinInProgress
				m.backend.JoinChannel(ch)
			}
		case ConnDisconnected:
			if prev.State != ConnDisconnected {
				if ev.Status.Detail != "" {
					m.addServerMsg("disconnected: " + ev.Status.Detail)
				} else {
					m.addServerMsg("disconnected")
				}
			}
			for _, c := range m.chats {
				if c.Kind == ChatChannel && c.State == StateJoined {
					c.State = StateDisconnected
				}
			}
		case ConnScheduled:
			m.addServerMsg(ev.Status.String())
		}

	case ActivityEvent:
		m.lastActivity = ev.At

	case MessageEvent:
		if m.ignores[normalizeChatName(ev.From)] {
			log.Printf("ignoring message from %s", ev.From)
			return
		}
		kind := ChatChannel
		name := ev.Target
		if !isChannelName(ev.Target) {
			kind = ChatPerson
			name = ev.From
		}
		c := m.findOrCreateChat(kind, name)
		msg := NewMessage(ev.Kind, ev.From, ev.Text, ev.Time, m.cfg.Keywords, m.cfg.Nick)
		m.pushMessage(c, msg)

	case ServerMessageEvent:
		m.addServerMsg(ev.Text)

	case ChannelJoinedEvent:
		c := m.findOrCreateChat(ChatChannel, ev.Name)
		c.State = StateJoined
		m.pushMessage(c, NewMessage(MessageSystem, "", "joined "+ev.Name, time.Now(), nil, ""))

	case ModeratorAddedEvent:
		if idx := m.findChat(ChatChannel, ev.Channel); idx >= 0 {
			m.pushMessage(m.chats[idx], NewMessage(MessageSystem, "", ev.Username+" is now a moderator", time.Now(), nil, ""))
		}

	case ProtocolErrorEvent:
		switch ev.Kind {
		case ErrorScoped:
			if idx := m.findChat(ChatChannel, ev.Target); idx >= 0 {
				c := m.chats[idx]
				c.State = StateLeft
				m.pushMessage(c, NewMessage(MessageSystem, "", ev.Text, time.Now(), nil, ""))
			} else if idx := m.findChat(ChatPerson, ev.Target); idx >= 0 {
				m.pushMessage(m.chats[idx], NewMessage(MessageSystem, "", ev.Text, time.Now(), nil, ""))
			} else {
				m.addServerMsg(ev.Text)
			}
		default:
			m.addServerMsg(ev.Text)
		}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		log.Printf("WindowSizeMsg: %dx%d", msg.Width, msg.Height)
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case backendEventMsg:
		m.handleBackendEvent(msg.ev)
		return m, waitForBackendEvent(m.events)

	case backendClosedMsg:
		log.Println("backend event channel closed")
		return m, nil

	case statusTickMsg:
		// Redraw so the reconnect countdown in the status bar stays current.
		return m, statusTickCmd()

	case tea.KeyMsg:
		// Autocomplete key handling — intercept before textarea.
		if len(m.acSuggestions) > 0 {
			switch msg.String() {
			case "tab":
				m.acIndex = (m.acIndex + 1) % len(m.acSuggestions)
				return m, nil
			case "shift+tab":
				m.acIndex--
				if m.acIndex < 0 {
					m.acIndex = len(m.acSuggestions) - 1
				}
				return m, nil
			case "enter":
				m.acceptSuggestion()
				return m, nil
			case "esc":
				m.acSuggestions = nil
				m.acIndex = 0
				return m, nil
			}
		} else if msg.String() == "tab" {
			// Open autocomplete on first Tab press.
			m.updateSuggestions()
			if len(m.acSuggestions) > 0 {
				return m, nil
			}
		}

		// Input history navigation — only when cursor is at the
		// top (up) or bottom (down) line of the textarea.
		if msg.String() == "up" && m.input.Line() == 0 && len(m.inputHistory) > 0 {
			if m.historyIndex == -1 {
				m.historySaved = m.input.Value()
				m.historyIndex = len(m.inputHistory) - 1
			} else if m.historyIndex > 0 {
				m.historyIndex--
			}
			m.input.SetValue(m.inputHistory[m.historyIndex])
			m.syncInputHeight()
			return m, nil
		}
		if msg.String() == "down" && m.input.Line() == m.input.LineCount()-1 && m.historyIndex >= 0 {
			if m.historyIndex < len(m.inputHistory)-1 {
				m.historyIndex++
				m.input.SetValue(m.inputHistory[m.historyIndex])
			} else {
				m.historyIndex = -1
				m.input.SetValue(m.historySaved)
				m.historySaved = ""
			}
			m.syncInputHeight()
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c":
			m.backend.Disconnect()
			return m, tea.Quit

		case "ctrl+up":
			if len(m.chats) > 1 {
				idx := m.activeChat - 1
				if idx < 0 {
					idx = len(m.chats) - 1
				}
				m.switchChat(idx)
			}
			return m, nil

		case "ctrl+down":
			if len(m.chats) > 1 {
				idx := m.activeChat + 1
				if idx >= len(m.chats) {
					idx = 0
				}
				m.switchChat(idx)
			}
			return m, nil

		case "pgup":
			m.viewport.ScrollUp(10)
			return m, nil

		case "pgdown":
			m.viewport.ScrollDown(10)
			return m, nil

		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.inputHistory = append(m.inputHistory, text)
			m.historyIndex = -1
			m.historySaved = ""
			m.input.Reset()
			m.acSuggestions = nil
			m.acIndex = 0
			m.input.SetHeight(inputMinHeight)
			m.lastInputHeight = inputMinHeight
			m.updateLayout()

			if strings.HasPrefix(text, "/") {
				return m.handleCommand(text)
			}

			m.sendToCurrent(MessageText, text)
			return m, nil
		}
	}

	// Pre-grow textarea before newline insertion so the internal viewport
	// calculates its scroll offset with the correct height.
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if s := keyMsg.String(); s == "alt+enter" || s == "ctrl+j" {
			target := m.input.LineCount() + 1
			if target > inputMaxHeight {
				target = inputMaxHeight
			}
			if target != m.lastInputHeight {
				m.input.SetHeight(target)
				m.lastInputHeight = target
				m.updateLayout()
			}
		}
	}

	// Always pass keys to textarea
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	// Re-filter suggestions as the user types (only when already open).
	if len(m.acSuggestions) > 0 {
		m.updateSuggestions()
	}

	// Shrink textarea when lines are removed (e.g. backspace joining lines).
	m.syncInputHeight()

	return m, tea.Batch(cmds...)
}

// sendToCurrent sends a message or action to the current chat and echoes it
// locally. The system feeds are not conversations.
func (m *model) sendToCurrent(kind MessageKind, text string) {
	c := m.current()
	if c.Kind == ChatSystem {
		m.addSystemMsg("this is not a conversation — /join a channel or /msg someone")
		return
	}
	if kind == MessageAction {
		m.backend.SendAction(c.Name, text)
	} else {
		m.backend.SendMessage(c.Name, text)
	}
	m.pushMessage(c, NewMessage(kind, m.cfg.Nick, text, time.Now(), nil, ""))
}

func (m *model) handleCommand(text string) (tea.Model, tea.Cmd) {
	parts := strings.SplitN(text, " ", 2)
	cmd := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/connect":
		m.backend.Connect()
		return m, nil

	case "/disconnect":
		m.backend.Disconnect()
		return m, nil

	case "/join":
		if arg == "" {
			m.addSystemMsg("usage: /join #channel")
			return m, nil
		}
		if !isChannelName(arg) {
			arg = "#" + arg
		}
		c := m.findOrCreateChat(ChatChannel, arg)
		c.State = StateJoinInProgress
		m.backend.JoinChannel(arg)
		m.switchChat(m.findChat(ChatChannel, arg))
		return m, nil

	case "/part", "/leave":
		c := m.current()
		if c.Kind != ChatChannel {
			m.addSystemMsg("/part only works in a channel")
			return m, nil
		}
		m.backend.LeaveChannel(c.Name)
		c.State = StateLeft
		m.pushMessage(c, NewMessage(MessageSystem, "", "left "+c.Name, time.Now(), nil, ""))
		return m, nil

	case "/msg":
		fields := strings.SplitN(arg, " ", 2)
		if len(fields) < 2 || fields[0] == "" {
			m.addSystemMsg("usage: /msg <nick> <text>")
			return m, nil
		}
		nick, body := fields[0], fields[1]
		c := m.findOrCreateChat(ChatPerson, nick)
		m.backend.SendMessage(nick, body)
		m.pushMessage(c, NewMessage(MessageText, m.cfg.Nick, body, time.Now(), nil, ""))
		m.switchChat(m.findChat(ChatPerson, nick))
		return m, nil

	case "/me":
		if arg == "" {
			m.addSystemMsg("usage: /me <action>")
			return m, nil
		}
		m.sendToCurrent(MessageAction, arg)
		return m, nil

	case "/ignore":
		if arg == "" {
			if len(m.ignores) == 0 {
				m.addSystemMsg("ignore list is empty")
				return m, nil
			}
			names := make([]string, 0, len(m.ignores))
			for n := range m.ignores {
				names = append(names, n)
			}
			m.addSystemMsg("ignoring: " + strings.Join(names, ", "))
			return m, nil
		}
		m.ignores[normalizeChatName(arg)] = true
		if err := SaveIgnores(m.cfgFlagPath, m.ignores); err != nil {
			log.Printf("handleCommand: failed to save ignore list: %v", err)
		}
		m.addSystemMsg("ignoring " + arg)
		return m, nil

	case "/unignore":
		if arg == "" {
			m.addSystemMsg("usage: /unignore <nick>")
			return m, nil
		}
		delete(m.ignores, normalizeChatName(arg))
		if err := SaveIgnores(m.cfgFlagPath, m.ignores); err != nil {
			log.Printf("handleCommand: failed to save ignore list: %v", err)
		}
		m.addSystemMsg("no longer ignoring " + arg)
		return m, nil

	case "/clear":
		m.current().Clear()
		m.updateViewport()
		return m, nil

	case "/help":
		m.addSystemMsg("/connect — connect to the configured server")
		m.addSystemMsg("/disconnect — drop the connection")
		m.addSystemMsg("/join #channel — join a channel")
		m.addSystemMsg("/part — leave the current channel")
		m.addSystemMsg("/msg <nick> <text> — send a private message")
		m.addSystemMsg("/me <action> — send an action")
		m.addSystemMsg("/ignore [nick] — list or extend the ignore list")
		m.addSystemMsg("/unignore <nick> — stop ignoring someone")
		m.addSystemMsg("/clear — clear the current chat")
		m.addSystemMsg("/quit — disconnect and exit")
		return m, nil

	case "/quit":
		m.backend.Disconnect()
		return m, tea.Quit

	default:
		m.addSystemMsg("unknown command " + cmd + " — try /help")
		return m, nil
	}
}

// syncInputHeight resizes the textarea to match its content and re-layouts if
// needed. Handles shrinking (e.g. backspace joining lines) and any growth not
// caught by pre-grow.
func (m *model) syncInputHeight() {
	lines := m.input.LineCount()
	if lines < inputMinHeight {
		lines = inputMinHeight
	}
	if lines > inputMaxHeight {
		lines = inputMaxHeight
	}
	if lines != m.lastInputHeight {
		m.input.SetHeight(lines)
		m.lastInputHeight = lines
		m.updateLayout()
	}
}
