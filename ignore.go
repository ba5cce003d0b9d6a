package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ignorePath returns the path to the ignore-list file, one normalized nick
// per line, kept next to the config.
func ignorePath(cfgFlagPath string) string {
	dir := filepath.Dir(configPath(cfgFlagPath))
	return filepath.Join(dir, "ignore")
}

// LoadIgnores reads the ignore list from disk. A missing file is an empty
// list, not an error.
func LoadIgnores(cfgFlagPath string) map[string]bool {
	ignores := make(map[string]bool)
	data, err := os.ReadFile(ignorePath(cfgFlagPath))
	if err != nil {
		return ignores
	}
	for _, line := range strings.Split(string(data), "\n") {
		name := normalizeChatName(strings.TrimSpace(line))
		if name != "" {
			ignores[name] = true
		}
	}
	return ignores
}

// SaveIgnores writes the ignore list to disk, sorted for stable files.
func SaveIgnores(cfgFlagPath string, ignores map[string]bool) error {
	path := ignorePath(cfgFlagPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	names := make([]string, 0, len(ignores))
	for name := range ignores {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}
