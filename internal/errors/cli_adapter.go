package errors

import (
	"errors"
	"fmt"
	"log/slog"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	var pe *ProxyError
	if errors.As(err, &pe) {
		return a.exitCodeFromProxyError(pe)
	}

	return 1
}

// exitCodeFromProxyError maps ProxyError categories to exit codes.
func (a *CLIErrorAdapter) exitCodeFromProxyError(err *ProxyError) int {
	switch err.Category {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryNetwork, CategoryNetconf, CategoryWOL:
		return 8 // External system error
	case CategoryListener:
		return 11 // Cannot acquire listen ports
	case CategoryDaemon, CategoryRuntime:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	var pe *ProxyError
	if errors.As(err, &pe) {
		return a.formatProxyError(pe)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatProxyError formats a ProxyError for display. Verbose mode shows the
// full classified form; otherwise just the message and cause.
func (a *CLIErrorAdapter) formatProxyError(err *ProxyError) string {
	if a.verbose {
		return err.Error()
	}
	if err.Cause != nil {
		return fmt.Sprintf("Error: %s: %v", err.Message, err.Cause)
	}
	return fmt.Sprintf("Error: %s", err.Message)
}
