package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sultumov/allergyTracker/internal/client/models"
)

// ListAllergies prints the cached allergy list, active entries first marker
// aside.
func (a *App) ListAllergies(ctx context.Context) error {
	items, ok := takeFirst(a.allergies.GetAll(ctx))
	if !ok {
		return fmt.Errorf("allergy feed closed")
	}

	if len(items) == 0 {
		fmt.Println("No allergies recorded.")
		return nil
	}
	for _, al := range items {
		state := ""
		if !al.IsActive {
			state = " (inactive)"
		}
		fmt.Printf("%s  %-20s %-13s %-6s%s\n", al.ID, al.Name, al.Category, al.Severity, state)
	}
	return nil
}

// AddAllergy interactively collects a new allergy and saves it with an
// optimistic remote push.
func (a *App) AddAllergy(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Allergy name", os.Stdout)
	if err != nil {
		return err
	}
	category, err := getSimpleText(a.reader, "Category (food/medication/environmental/other)", os.Stdout)
	if err != nil {
		return err
	}
	severity, err := getSimpleText(a.reader, "Severity (low/medium/high)", os.Stdout)
	if err != nil {
		return err
	}
	description, err := getSimpleText(a.reader, "Description (optional)", os.Stdout)
	if err != nil {
		return err
	}

	al := models.Allergy{
		Name:        name,
		Category:    models.AllergyCategory(category),
		Severity:    models.AllergySeverity(severity),
		Description: description,
	}
	if err := a.allergies.Add(ctx, al); err != nil {
		fmt.Println("Could not add allergy:", err)
		return err
	}
	fmt.Println("Added.")
	return nil
}

// DeactivateAllergy soft-hides an allergy without losing its history.
func (a *App) DeactivateAllergy(ctx context.Context, id string) error {
	if err := a.allergies.Deactivate(ctx, id); err != nil {
		fmt.Println("Could not deactivate:", err)
		return err
	}
	fmt.Println("Deactivated.")
	return nil
}
