package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with
// a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a
// lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	ListAllergies(ctx context.Context) error
	AddAllergy(ctx context.Context) error
	DeactivateAllergy(ctx context.Context, id string) error
	ListReactions(ctx context.Context, allergyID string) error
	AddReaction(ctx context.Context) error
	Scan(ctx context.Context, barcode string) error
	History(ctx context.Context) error
	ClearHistory(ctx context.Context) error
	Sync(ctx context.Context) error
}

// runREPL reads a line from the scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("at %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, add, deactivate <id>, reactions [allergyID], addreaction, scan <barcode>, history, clearhistory, sync, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "l", "list":
			_ = a.ListAllergies(ctx)

		case "add":
			_ = a.AddAllergy(ctx)

		case "deactivate":
			if len(args) == 0 {
				printlnFn("Usage: deactivate <id>")
				continue
			}
			_ = a.DeactivateAllergy(ctx, args[0])

		case "reactions":
			allergyID := ""
			if len(args) > 0 {
				allergyID = args[0]
			}
			_ = a.ListReactions(ctx, allergyID)

		case "addreaction":
			_ = a.AddReaction(ctx)

		case "scan":
			if len(args) == 0 {
				printlnFn("Usage: scan <barcode>")
				continue
			}
			_ = a.Scan(ctx, args[0])

		case "history":
			_ = a.History(ctx)

		case "clearhistory":
			_ = a.ClearHistory(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func (a *App) getStatus() string {
	s := ""
	if a.userID != "" {
		s = a.userID + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to the allergy tracker CLI (type 'help' for commands)")

	// A session persisted by a previous run comes back without prompting.
	if userID, ok := a.authService.RestoreSession(ctx); ok {
		log.Printf("Restored session for %s", userID)
		a.beginSession(userID)
		if err := a.authService.Ping(ctx); err != nil {
			a.setMode(ModeOffline)
		} else {
			a.setMode(ModeOnline)
			if err := a.manager.SyncIncremental(ctx); err != nil {
				log.Printf("Initial sync incomplete: %s", err.Error())
			}
		}
	}

	go func() {
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}
