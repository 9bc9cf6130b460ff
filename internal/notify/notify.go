// SPDX-License-Identifier: MPL-2.0

// Package notify decouples the engine from user-facing presentation. The
// engine reports progress and degradations through a Notifier and never
// renders anything itself; the CLI supplies a styled implementation, and
// embedding hosts can bring their own or use Nop.
package notify

type (
	// Notifier receives user-facing events from the engine.
	Notifier interface {
		// ShowError reports a failure the user must act on.
		ShowError(msg string)
		// ShowWarning reports a degradation the operation survived, like
		// serving a cached or end-of-life version.
		ShowWarning(msg string)
		// ShowInfo reports routine progress.
		ShowInfo(msg string)
		// PromptForManualPath asks the user to point at an existing dotnet
		// installation. The second result is false when the host is
		// non-interactive or the user declined.
		PromptForManualPath() (string, bool)
	}

	// Nop discards all notifications. It is the default for library use.
	Nop struct{}
)

// ShowError implements Notifier.
func (Nop) ShowError(string) {}

// ShowWarning implements Notifier.
func (Nop) ShowWarning(string) {}

// ShowInfo implements Notifier.
func (Nop) ShowInfo(string) {}

// PromptForManualPath implements Notifier; it always declines.
func (Nop) PromptForManualPath() (string, bool) { return "", false }
