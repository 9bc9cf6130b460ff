// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// consoleNotifier renders engine notifications to the terminal with the
// shared style palette. Prompts only engage when stdin is a terminal;
// non-interactive hosts (CI, pipes) decline automatically.
type consoleNotifier struct {
	in *bufio.Reader
}

func newConsoleNotifier() *consoleNotifier {
	return &consoleNotifier{in: bufio.NewReader(os.Stdin)}
}

// ShowError implements notify.Notifier.
func (n *consoleNotifier) ShowError(msg string) {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+msg)
}

// ShowWarning implements notify.Notifier.
func (n *consoleNotifier) ShowWarning(msg string) {
	fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+msg)
}

// ShowInfo implements notify.Notifier.
func (n *consoleNotifier) ShowInfo(msg string) {
	fmt.Fprintln(os.Stderr, SubtitleStyle.Render(msg))
}

// PromptForManualPath implements notify.Notifier. It asks for the path to an
// existing dotnet executable; an empty line declines.
func (n *consoleNotifier) PromptForManualPath() (string, bool) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", false
	}

	fmt.Fprint(os.Stderr, "Path to an existing dotnet executable (empty to skip): ")
	line, err := n.in.ReadString('\n')
	if err != nil {
		return "", false
	}
	path := strings.TrimSpace(line)
	if path == "" {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+"no file at "+path)
		return "", false
	}
	return path, true
}
