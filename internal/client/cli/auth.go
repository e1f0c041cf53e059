package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/sultumov/allergyTracker/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for a login and password and attempts to create
// a new account.
func (a *App) Register(ctx context.Context) error {
	login, err := getSimpleText(a.reader, "Enter login", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.authService.Register(ctx, login, password); err != nil {
		log.Printf("Registration unsuccessful: %s", err.Error())
		return err
	}

	fmt.Println("Success! You can now log in.")
	return nil
}

// Login prompts the user for credentials and tries to authenticate.
//
// If the server is unavailable and a session from a previous run is cached,
// the app continues with it in offline mode; the cached collections keep
// serving reads and writes queue up behind the connectivity gate.
func (a *App) Login(ctx context.Context) error {
	login, err := getSimpleText(a.reader, "Enter login", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	userID, err := a.authService.Login(ctx, login, password)
	if err != nil {
		if errors.Is(err, common.ErrUnavailable) {
			if cached, ok := a.authService.RestoreSession(ctx); ok {
				log.Printf("Server unavailable, continuing with cached session")
				a.beginSession(cached)
				a.setMode(ModeOffline)
				return nil
			}
			log.Printf("Server unavailable and no cached session")
			a.setMode(ModeDisabled)
			return err
		}
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	log.Printf("Login successful")
	a.beginSession(userID)
	a.setMode(ModeOnline)

	if err := a.manager.SyncIncremental(ctx); err != nil {
		log.Printf("Initial sync incomplete: %s", err.Error())
	}
	return nil
}

// Logout drops the persisted session and the in-memory wiring. Cached
// collection data stays for the next sign-in.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.endSession()
	fmt.Println("Logged out.")
	return nil
}
