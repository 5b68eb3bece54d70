package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"robot-gateway/cmd/console/ui"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:9300", "Gateway base URL")
	token := flag.String("token", "", "Admin JWT")
	interval := flag.Duration("interval", 3*time.Second, "Refresh interval")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "an admin token is required (-token)")
		os.Exit(1)
	}

	client := ui.NewClient(*addr, *token)
	model := ui.NewDashboardModel(client, *interval, 15)

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "console error:", err)
		os.Exit(1)
	}
}
