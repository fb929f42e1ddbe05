// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains terminal output styling for the chat CLI.
//
// Styling is automatic: rich output on an interactive terminal, plain
// text when stdout is piped or NO_COLOR is set.
package ux

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/AleutianChat/services/chat/datatypes"
)

// Aleutian color palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Bright teal - highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Primary teal - main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // Deep teal - borders, accents
	ColorSlate       = lipgloss.Color("#2C4A54") // Slate - muted text, borders
	ColorWarning     = lipgloss.Color("#F4D03F") // Gold/amber for warnings
	ColorError       = lipgloss.Color("#E74C3C") // Red for errors
)

// Styles provides pre-configured lipgloss styles for the chat CLI.
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Starred   lipgloss.Style
	ErrorBox  lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	User:      lipgloss.NewStyle().Bold(true).Foreground(ColorTealPrimary),
	Assistant: lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Starred:   lipgloss.NewStyle().Foreground(ColorWarning),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

var (
	plainOnce sync.Once
	plainMode bool
)

// Plain reports whether output should skip styling: stdout is not a
// terminal, or NO_COLOR is set.
func Plain() bool {
	plainOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			plainMode = true
			return
		}
		fd := os.Stdout.Fd()
		plainMode = !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
	})
	return plainMode
}

// Title prints a styled heading.
func Title(text string) {
	if Plain() {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Muted prints secondary text.
func Muted(text string) {
	if Plain() {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Muted.Render(text))
}

// Warning prints a warning message.
func Warning(text string) {
	if Plain() {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Warning.Render("⚠"), Styles.Warning.Render(text))
}

// Error prints an error message.
func Error(text string) {
	if Plain() {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Error.Render("✗"), Styles.Error.Render(text))
}

// RoleLabel returns the styled speaker label for a message role.
func RoleLabel(role string) string {
	label := "you"
	style := Styles.User
	if role == datatypes.RoleAssistant {
		label = "aleutian"
		style = Styles.Assistant
	}
	if Plain() {
		return label + ":"
	}
	return style.Render(label + ":")
}

// RenderErrorDetail formats a server error envelope for the terminal:
// the headline, what happened, and what to do next.
func RenderErrorDetail(detail datatypes.ErrorDetail) string {
	if Plain() {
		return fmt.Sprintf("ERROR %s: %s %s %s", detail.Code, detail.Title, detail.What, detail.Action)
	}
	body := Styles.Error.Bold(true).Render(detail.Title) + "\n" +
		detail.What + "\n" +
		Styles.Muted.Render(detail.Action)
	return Styles.ErrorBox.Render(body)
}

// StarMark returns the thread star indicator, empty when unstarred.
func StarMark(starred bool) string {
	if !starred {
		return " "
	}
	if Plain() {
		return "*"
	}
	return Styles.Starred.Render("★")
}
