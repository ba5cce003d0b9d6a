package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// updateSuggestions generates context-aware autocomplete suggestions based on
// the current input value.
func (m *model) updateSuggestions() {
	text := m.input.Value()

	if !strings.HasPrefix(text, "/") {
		m.acSuggestions = nil
		m.acIndex = 0
		return
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		m.acSuggestions = nil
		m.acIndex = 0
		return
	}

	// If input ends with a space, the user is starting a new token.
	trailingSpace := len(text) > 0 && text[len(text)-1] == ' '

	var suggestions []string

	switch {
	case len(tokens) == 1 && !trailingSpace:
		// Partial top-level command: /he → /help
		commands := []string{"/connect", "/disconnect", "/join", "/part", "/msg", "/me", "/ignore", "/unignore", "/clear", "/help", "/quit"}
		prefix := strings.ToLower(tokens[0])
		for _, c := range commands {
			if strings.HasPrefix(c, prefix) && c != prefix {
				suggestions = append(suggestions, c)
			}
		}

	case strings.ToLower(tokens[0]) == "/join":
		// "/join <partial>" → filter known channel names.
		if (len(tokens) == 1 && trailingSpace) || (len(tokens) == 2 && !trailingSpace) {
			partial := ""
			if len(tokens) == 2 {
				partial = strings.ToLower(tokens[1])
			}
			for _, c := range m.chats {
				if c.Kind != ChatChannel {
					continue
				}
				if partial == "" || (strings.HasPrefix(strings.ToLower(c.Name), partial) && !strings.EqualFold(c.Name, partial)) {
					suggestions = append(suggestions, c.Name)
				}
			}
		}

	case strings.ToLower(tokens[0]) == "/msg" || strings.ToLower(tokens[0]) == "/ignore" || strings.ToLower(tokens[0]) == "/unignore":
		// "/msg <partial>" → filter nicks seen in the current chat and
		// existing private conversations.
		if (len(tokens) == 1 && trailingSpace) || (len(tokens) == 2 && !trailingSpace) {
			partial := ""
			if len(tokens) == 2 {
				partial = strings.ToLower(tokens[1])
			}
			for _, nick := range m.knownNicks() {
				if partial == "" || (strings.HasPrefix(strings.ToLower(nick), partial) && !strings.EqualFold(nick, partial)) {
					suggestions = append(suggestions, nick)
				}
			}
		}
	}

	if len(suggestions) == 0 {
		m.acSuggestions = nil
		m.acIndex = 0
		return
	}

	// Reset index when the suggestion list changes.
	if !slicesEqual(suggestions, m.acSuggestions) {
		m.acIndex = 0
	}
	m.acSuggestions = suggestions
}

// acceptSuggestion replaces the partial token in input with the selected suggestion.
func (m *model) acceptSuggestion() {
	if len(m.acSuggestions) == 0 {
		return
	}
	if m.acIndex >= len(m.acSuggestions) {
		m.acIndex = 0
	}

	selected := m.acSuggestions[m.acIndex]
	text := m.input.Value()

	var newText string
	tokens := strings.Fields(text)
	if len(tokens) == 1 && strings.HasPrefix(selected, "/") {
		// Completing the command itself: replace entire text.
		newText = selected + " "
	} else {
		// Completing an argument: replace from last space.
		lastSpace := strings.LastIndex(text, " ")
		if lastSpace >= 0 {
			newText = text[:lastSpace+1] + selected + " "
		} else {
			newText = selected + " "
		}
	}

	m.input.SetValue(newText)
	m.acSuggestions = nil
	m.acIndex = 0
}

// viewAutocomplete renders suggestions as a horizontal row.
func (m *model) viewAutocomplete() string {
	maxWidth := m.viewport.Width

	// Pre-render all items so we know their widths.
	rendered := make([]string, len(m.acSuggestions))
	widths := make([]int, len(m.acSuggestions))
	for i, s := range m.acSuggestions {
		if i == m.acIndex {
			rendered[i] = acSelectedStyle.Render(s)
		} else {
			rendered[i] = acSuggestionStyle.Render(s)
		}
		widths[i] = lipgloss.Width(rendered[i])
	}

	// Find a window of items that fits within maxWidth, ensuring the
	// selected item is always visible.
	start := m.acIndex
	end := m.acIndex + 1
	used := widths[m.acIndex]

	// Expand right, then left, alternating to keep selection roughly centered.
	for {
		grew := false
		if end < len(m.acSuggestions) && used+widths[end] <= maxWidth {
			used += widths[end]
			end++
			grew = true
		}
		if start > 0 && used+widths[start-1] <= maxWidth {
			start--
			used += widths[start]
			grew = true
		}
		if !grew {
			break
		}
	}

	var parts []string
	if start > 0 {
		parts = append(parts, acSuggestionStyle.Render("◂"))
	}
	parts = append(parts, rendered[start:end]...)
	if end < len(m.acSuggestions) {
		parts = append(parts, acSuggestionStyle.Render("▸"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// knownNicks returns deduplicated author nicks from the current chat plus the
// names of open private conversations, most recent speakers first.
func (m *model) knownNicks() []string {
	seen := make(map[string]bool)
	var nicks []string

	msgs := m.current().Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		from := msgs[i].From
		if from == "" || from == m.cfg.Nick || seen[normalizeChatName(from)] {
			continue
		}
		seen[normalizeChatName(from)] = true
		nicks = append(nicks, from)
	}
	for _, c := range m.chats {
		if c.Kind != ChatPerson || seen[c.Key] {
			continue
		}
		seen[c.Key] = true
		nicks = append(nicks, c.Name)
	}
	return nicks
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
