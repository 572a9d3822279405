// Package ui renders CLI progress and status output with color.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

const headerWidth = 60

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	stepColor    = color.New(color.FgBlue, color.Bold)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgWhite)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// center left-pads the text so it sits in the middle of the given width.
// Text wider than the width is returned unchanged.
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	padding := (width - len(text)) / 2
	return strings.Repeat(" ", padding) + text
}

// Header prints a boxed section title
func Header(title string) {
	line := strings.Repeat("=", headerWidth)
	headerColor.Println(line)
	headerColor.Println(center(title, headerWidth))
	headerColor.Println(line)
}

// Step prints a numbered phase marker, e.g. "[2/4] Loading rules"
func Step(current, total int, message string) {
	stepColor.Printf("[%d/%d] ", current, total)
	fmt.Println(message)
}

// Success prints a green checkmark line
func Success(message string) {
	successColor.Printf("✓ %s\n", message)
}

// Info prints a neutral status line
func Info(message string) {
	infoColor.Printf("  %s\n", message)
}

// Warning prints a yellow warning line
func Warning(message string) {
	warningColor.Printf("! %s\n", message)
}

// Error prints a red error line
func Error(message string) {
	errorColor.Printf("✗ %s\n", message)
}

// BlueText returns the text wrapped in blue for inline use
func BlueText(text string) string {
	return color.BlueString(text)
}

// YellowText returns the text wrapped in yellow for inline use
func YellowText(text string) string {
	return color.YellowString(text)
}
