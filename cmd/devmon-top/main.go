package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cptspacemanspiff/device-monitor/internal/dbus"
)

func main() {
	interval := flag.Duration("interval", time.Second, "refresh interval")
	flag.Parse()

	client, err := dbus.NewClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to D-Bus: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	p := tea.NewProgram(newModel(client, *interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "devmon-top: %v\n", err)
		os.Exit(1)
	}
}
