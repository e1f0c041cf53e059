package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sultumov/allergyTracker/internal/client/models"
	"github.com/sultumov/allergyTracker/internal/client/repositories/products"
)

// Scan looks a barcode up, checks the product's allergen labels against the
// user's active allergies and records the scan in history. Unknown barcodes
// are entered interactively, which also shares them through the global
// products collection.
func (a *App) Scan(ctx context.Context, barcode string) error {
	p, ok := takeFirst(a.products.GetByBarcode(ctx, barcode))
	if !ok {
		return fmt.Errorf("product feed closed")
	}

	if p == nil {
		fmt.Println("Unknown product. Enter its details to share them.")
		entered, err := a.enterProduct(ctx, barcode)
		if err != nil {
			return err
		}
		p = &entered
	}

	active, ok := takeFirst(a.allergies.GetActive(ctx))
	if !ok {
		return fmt.Errorf("allergy feed closed")
	}

	found := products.CheckAllergens(*p, active)
	if len(found) == 0 {
		fmt.Printf("%s: no known allergens.\n", p.Name)
	} else {
		fmt.Printf("%s: CONTAINS %s\n", p.Name, strings.Join(found, ", "))
	}

	if _, err := a.history.RecordScan(ctx, *p, found, ""); err != nil {
		fmt.Println("Could not record scan:", err)
		return err
	}
	return nil
}

func (a *App) enterProduct(ctx context.Context, barcode string) (models.Product, error) {
	name, err := getSimpleText(a.reader, "Product name", os.Stdout)
	if err != nil {
		return models.Product{}, err
	}
	manufacturer, err := getSimpleText(a.reader, "Manufacturer (optional)", os.Stdout)
	if err != nil {
		return models.Product{}, err
	}
	allergens, err := GetList(a.reader, "Allergen labels", os.Stdout)
	if err != nil {
		return models.Product{}, err
	}

	p := models.Product{
		Barcode:      barcode,
		Name:         name,
		Manufacturer: manufacturer,
		Allergens:    allergens,
	}
	if err := a.products.Save(ctx, p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}
