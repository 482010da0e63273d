package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/helioforge/fswatcher/internal/version"
)

var (
	cyan = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	gray = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

func showHeader() {
	fmt.Println(cyan.Render("fswatcher"), gray.Render(version.Short()))
}
