package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// The chat-log collaborator subscribes to the same message flow as the
// presentation layer and appends one line per message to a per-conversation
// file keyed by the chat's normalized name.

// escapeContent escapes newlines and backslashes for single-line log
// storage. Backslash first, to avoid double-escaping.
func escapeContent(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

// unescapeContent reverses escapeContent.
func unescapeContent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		if i+1 < len(s) && s[i] == '\\' {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i += 2
				continue
			case '\\':
				b.WriteByte('\\')
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func chatKindTag(kind ChatKind) string {
	switch kind {
	case ChatChannel:
		return "channel"
	case ChatPerson:
		return "query"
	default:
		return "server"
	}
}

func messageKindTag(kind MessageKind) string {
	switch kind {
	case MessageAction:
		return "action"
	case MessageSystem:
		return "system"
	default:
		return "text"
	}
}

func messageKindFromTag(tag string) MessageKind {
	switch tag {
	case "action":
		return MessageAction
	case "system":
		return MessageSystem
	default:
		return MessageText
	}
}

// chatLogPath returns the log file path for a conversation, keyed by its
// normalized name.
func chatLogPath(logDir string, kind ChatKind, key string) string {
	safe := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"\t", "_",
		":", "_",
		" ", "_",
	).Replace(key)
	return filepath.Join(logDir, chatKindTag(kind)+"_"+safe+".log")
}

// appendChatLog appends a single message to the conversation's log file.
func appendChatLog(logDir string, kind ChatKind, key string, msg Message) {
	if logDir == "" {
		return
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Printf("chatlog: failed to create log dir: %v", err)
		return
	}

	path := chatLogPath(logDir, kind, key)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("chatlog: failed to open %s: %v", path, err)
		return
	}
	defer f.Close()

	ts := msg.Time.UTC().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("%s\t%s\t%s\t%s\n", ts, messageKindTag(msg.Kind), msg.From, escapeContent(msg.Text))
	if _, err := f.WriteString(line); err != nil {
		log.Printf("chatlog: failed to write to %s: %v", path, err)
	}
}

// loadChatHistory loads the last maxMessages entries from a conversation's
// log file using backward seeking for efficiency on large files.
func loadChatHistory(logDir string, kind ChatKind, key string, maxMessages int) ([]Message, error) {
	if logDir == "" {
		return nil, nil
	}

	path := chatLogPath(logDir, kind, key)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("chatlog: open %s: %w", path, err)
	}
	defer f.Close()

	lines, err := readLastNLines(f, maxMessages)
	if err != nil {
		return nil, fmt.Errorf("chatlog: read %s: %w", path, err)
	}

	msgs := make([]Message, 0, len(lines))
	for _, line := range lines {
		msg, err := parseChatLogLine(line)
		if err != nil {
			log.Printf("chatlog: skipping malformed line in %s: %v", path, err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// readLastNLines reads the last n lines from a file by seeking backward.
func readLastNLines(f *os.File, n int) ([]string, error) {
	const chunkSize = 8192

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := stat.Size()
	if size == 0 {
		return nil, nil
	}

	var buf []byte
	offset := size
	linesFound := 0

	for offset > 0 && linesFound <= n {
		readSize := int64(chunkSize)
		if readSize > offset {
			readSize = offset
		}
		offset -= readSize

		chunk := make([]byte, readSize)
		if _, err := f.ReadAt(chunk, offset); err != nil && err != io.EOF {
			return nil, err
		}

		buf = append(chunk, buf...)

		for _, b := range chunk {
			if b == '\n' {
				linesFound++
			}
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(string(buf)))
	var allLines []string
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			allLines = append(allLines, line)
		}
	}

	if len(allLines) > n {
		allLines = allLines[len(allLines)-n:]
	}
	return allLines, nil
}

// parseChatLogLine parses a single tab-separated log line. History entries
// are rebuilt as plain messages; chunks and highlight flags are not
// recomputed for replayed lines.
func parseChatLogLine(line string) (Message, error) {
	parts := strings.SplitN(line, "\t", 4)
	if len(parts) < 4 {
		return Message{}, fmt.Errorf("expected 4 tab-separated fields, got %d", len(parts))
	}

	ts, err := time.Parse("2006-01-02 15:04:05", parts[0])
	if err != nil {
		return Message{}, fmt.Errorf("invalid timestamp %q: %w", parts[0], err)
	}

	text := unescapeContent(parts[3])
	return Message{
		Time:      ts,
		Kind:      messageKindFromTag(parts[1]),
		From:      parts[2],
		Text:      text,
		lowerText: strings.ToLower(text),
		chunks:    ChunkMessage(text),
	}, nil
}
