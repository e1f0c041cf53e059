package models

import (
	"encoding/json"
	"fmt"

	"github.com/sultumov/allergyTracker/internal/common"
)

// Decoders validate structure explicitly instead of trusting whatever shape
// the remote or the cache hands back. A structural mismatch yields
// common.ErrInvalidEntity; it is the caller's job to treat that as "absent"
// rather than a failure.

// DecodeAllergy parses and validates a single allergy document.
func DecodeAllergy(data json.RawMessage) (Allergy, error) {
	var a Allergy
	if err := json.Unmarshal(data, &a); err != nil {
		return Allergy{}, fmt.Errorf("%w: allergy: %v", common.ErrInvalidEntity, err)
	}
	if a.ID == "" || a.Name == "" {
		return Allergy{}, fmt.Errorf("%w: allergy: missing id or name", common.ErrInvalidEntity)
	}
	if !a.Category.Valid() || !a.Severity.Valid() {
		return Allergy{}, fmt.Errorf("%w: allergy %s: bad category/severity", common.ErrInvalidEntity, a.ID)
	}
	return a, nil
}

// DecodeReaction parses and validates a single reaction document.
func DecodeReaction(data json.RawMessage) (Reaction, error) {
	var r Reaction
	if err := json.Unmarshal(data, &r); err != nil {
		return Reaction{}, fmt.Errorf("%w: reaction: %v", common.ErrInvalidEntity, err)
	}
	if r.ID == "" || r.AllergyID == "" {
		return Reaction{}, fmt.Errorf("%w: reaction: missing id or allergyId", common.ErrInvalidEntity)
	}
	if !r.Severity.Valid() {
		return Reaction{}, fmt.Errorf("%w: reaction %s: bad severity", common.ErrInvalidEntity, r.ID)
	}
	return r, nil
}

// DecodeProduct parses and validates a single product document.
func DecodeProduct(data json.RawMessage) (Product, error) {
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return Product{}, fmt.Errorf("%w: product: %v", common.ErrInvalidEntity, err)
	}
	if p.Barcode == "" {
		return Product{}, fmt.Errorf("%w: product: missing barcode", common.ErrInvalidEntity)
	}
	return p, nil
}

// DecodeHistoryItem parses and validates a single history document.
func DecodeHistoryItem(data json.RawMessage) (HistoryItem, error) {
	var h HistoryItem
	if err := json.Unmarshal(data, &h); err != nil {
		return HistoryItem{}, fmt.Errorf("%w: history item: %v", common.ErrInvalidEntity, err)
	}
	if h.ID == "" || h.ProductBarcode == "" {
		return HistoryItem{}, fmt.Errorf("%w: history item: missing id or barcode", common.ErrInvalidEntity)
	}
	return h, nil
}
