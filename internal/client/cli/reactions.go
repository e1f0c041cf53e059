package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sultumov/allergyTracker/internal/client/models"
)

// ListReactions prints reaction episodes, optionally filtered to one
// allergy.
func (a *App) ListReactions(ctx context.Context, allergyID string) error {
	var (
		items []models.Reaction
		ok    bool
	)
	if allergyID == "" {
		items, ok = takeFirst(a.reactions.GetAll(ctx))
	} else {
		items, ok = takeFirst(a.reactions.GetByAllergy(ctx, allergyID))
	}
	if !ok {
		return fmt.Errorf("reaction feed closed")
	}

	if len(items) == 0 {
		fmt.Println("No reactions recorded.")
		return nil
	}
	for _, re := range items {
		when := time.UnixMilli(re.Date).Format("2006-01-02 15:04")
		fmt.Printf("%s  %s  allergy=%s  %-8s  %s\n", re.ID, when, re.AllergyID, re.Severity, strings.Join(re.Symptoms, ", "))
	}
	return nil
}

// AddReaction interactively records a reaction episode against an allergy.
func (a *App) AddReaction(ctx context.Context) error {
	allergyID, err := getSimpleText(a.reader, "Allergy ID", os.Stdout)
	if err != nil {
		return err
	}
	severity, err := getSimpleText(a.reader, "Severity (mild/moderate/severe)", os.Stdout)
	if err != nil {
		return err
	}
	symptoms, err := GetList(a.reader, "Symptoms", os.Stdout)
	if err != nil {
		return err
	}
	notes, err := getSimpleText(a.reader, "Notes (optional)", os.Stdout)
	if err != nil {
		return err
	}

	re := models.Reaction{
		AllergyID: allergyID,
		Severity:  models.ReactionSeverity(severity),
		Symptoms:  symptoms,
		Notes:     notes,
	}
	if err := a.reactions.Add(ctx, re); err != nil {
		fmt.Println("Could not add reaction:", err)
		return err
	}
	fmt.Println("Added.")
	return nil
}
