package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	configFlag := flag.String("config", "", "path to config file")
	debugFlag := flag.Bool("debug", false, "enable debug logging to debug.log")
	flag.Parse()

	if *debugFlag {
		f, err := tea.LogToFile("debug.log", "tern")
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not open debug log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.Println("debug logging enabled")
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := LoadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log.Printf("config loaded: server=%s nick=%s", cfg.Server, cfg.Nick)

	backend, err := NewBackend(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend error: %v\n", err)
		os.Exit(1)
	}

	// Query the terminal background before the TUI starts so the OSC
	// response arrives while stdio is still normal.
	detectAuthorPalette()

	m := newModel(cfg, *configFlag, backend)

	log.Println("starting TUI")
	p := tea.NewProgram(&m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	backend.Disconnect()
}
