// Package cmd provides CLI commands for vibecheck.
//
// Commands:
//   - chat: Interactive persona chat with Bubble Tea TUI
//   - sessions: Browse and export past sessions
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/vibecheck-ai/vibecheck/internal/log"
)

// Execute is the main entry point for the vibecheck CLI application.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		return runChat(logger, nil)
	}

	switch os.Args[1] {
	case "chat":
		return runChat(logger, os.Args[2:])
	case "sessions":
		return runSessions(logger, os.Args[2:])
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("vibecheck - Terminal client for the VibeCheck persona API")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  vibecheck                      Start a new persona chat")
	fmt.Println("  vibecheck chat [flags]         Start or resume a persona chat")
	fmt.Println("      --session <id>             Resume an existing session")
	fmt.Println("      --prompt <text>            Seed the opening message")
	fmt.Println("      --show-thinking            Show intermediate reasoning text")
	fmt.Println("  vibecheck sessions [flags]     Browse past sessions")
	fmt.Println("      --page <n>                 History page to show")
	fmt.Println("      --page-size <n>            Sessions per page")
	fmt.Println("      --export <id>              Write a session to a JSON file")
	fmt.Println("  vibecheck --version            Show version information")
	fmt.Println("  vibecheck --help               Show this help")
	fmt.Println()
	fmt.Println("Chat Commands (in interactive mode):")
	fmt.Println("  /help              Show available commands")
	fmt.Println("  /personas          Show every generated persona")
	fmt.Println("  /thinking          Toggle reasoning text display")
	fmt.Println("  /export            Write the session to a JSON file")
	fmt.Println("  /clear             Clear notices")
	fmt.Println("  /exit, /quit       Exit vibecheck")
	fmt.Println()
	fmt.Println("Shortcuts:")
	fmt.Println("  Ctrl+D             Exit vibecheck")
	fmt.Println("  Ctrl+C             Cancel current input or stream")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  VIBECHECK_API_BASE_URL  Backend base URL")
	fmt.Println("  VIBECHECK_API_TOKEN     Bearer token for the API")
	fmt.Println("  DEBUG                   Optional: Enable debug logging")
}
