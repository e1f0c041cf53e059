package cli

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// History prints recorded scans, newest last.
func (a *App) History(ctx context.Context) error {
	items, ok := takeFirst(a.history.GetAll(ctx))
	if !ok {
		return fmt.Errorf("history feed closed")
	}

	if len(items) == 0 {
		fmt.Println("No scans recorded.")
		return nil
	}
	for _, h := range items {
		when := time.UnixMilli(h.ScanDate).Format("2006-01-02 15:04")
		verdict := "clean"
		if len(h.FoundAllergens) > 0 {
			verdict = "contains " + strings.Join(h.FoundAllergens, ", ")
		}
		fmt.Printf("%s  %s  %-20s %s\n", when, h.ProductBarcode, h.ProductName, verdict)
	}
	return nil
}

// ClearHistory wipes the scan log locally and remotely.
func (a *App) ClearHistory(ctx context.Context) error {
	if err := a.history.Clear(ctx); err != nil {
		fmt.Println("Could not clear history:", err)
		return err
	}
	fmt.Println("History cleared.")
	return nil
}

// Sync runs one incremental sync pass against the server.
func (a *App) Sync(ctx context.Context) error {
	if err := a.manager.SyncIncremental(ctx); err != nil {
		fmt.Println("Sync incomplete:", err)
		return err
	}
	fmt.Println("Synced.")
	return nil
}
