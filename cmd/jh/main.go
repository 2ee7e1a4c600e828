package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/SternPhD/jh/internal/config"
	"github.com/SternPhD/jh/internal/gh"
	"github.com/SternPhD/jh/internal/git"
	"github.com/SternPhD/jh/internal/tui"
)

func main() {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// JH_CONFIG_DIR overrides the config location, mainly for testing.
	store := config.DefaultStore()
	if custom := os.Getenv("JH_CONFIG_DIR"); custom != "" {
		store = &config.Store{Dir: custom}
	}

	deps := tui.Deps{
		Store: store,
		Repo:  git.NewRepo(dir),
		GH:    gh.NewClient(dir),
	}

	p := tea.NewProgram(tui.New(deps), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
