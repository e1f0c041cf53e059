// Package models defines the allergy-tracker entity types held in the local
// cache and exchanged with the remote document tree. All entities are value
// records with a string identity and an epoch-millisecond lastModified stamp
// used by reconciliation.
package models

// Entity is implemented by every synced record. Key identifies a record
// within its collection; Modified is the last-write-wins ordering stamp.
type Entity interface {
	Key() string
	Modified() int64
}

// AllergyCategory classifies an allergy source.
type AllergyCategory string

const (
	CategoryFood          AllergyCategory = "food"
	CategoryMedication    AllergyCategory = "medication"
	CategoryEnvironmental AllergyCategory = "environmental"
	CategoryOther         AllergyCategory = "other"
)

func (c AllergyCategory) Valid() bool {
	switch c {
	case CategoryFood, CategoryMedication, CategoryEnvironmental, CategoryOther:
		return true
	}
	return false
}

// AllergySeverity is the declared severity of an allergy.
type AllergySeverity string

const (
	SeverityLow    AllergySeverity = "low"
	SeverityMedium AllergySeverity = "medium"
	SeverityHigh   AllergySeverity = "high"
)

func (s AllergySeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// ReactionSeverity grades an individual reaction episode.
type ReactionSeverity string

const (
	ReactionMild     ReactionSeverity = "mild"
	ReactionModerate ReactionSeverity = "moderate"
	ReactionSevere   ReactionSeverity = "severe"
)

func (s ReactionSeverity) Valid() bool {
	switch s {
	case ReactionMild, ReactionModerate, ReactionSevere:
		return true
	}
	return false
}

// Allergy is a tracked allergy. IsActive is a soft-deactivation flag: the
// record is retained but excluded from active views.
type Allergy struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Category     AllergyCategory `json:"category"`
	Severity     AllergySeverity `json:"severity"`
	CreatedAt    int64           `json:"createdAt"`
	IsActive     bool            `json:"isActive"`
	LastModified int64           `json:"lastModified"`
}

func (a Allergy) Key() string     { return a.ID }
func (a Allergy) Modified() int64 { return a.LastModified }

// Reaction records one reaction episode against an allergy. AllergyID is not
// enforced to reference a live Allergy; deleting an allergy leaves its
// reactions in place.
type Reaction struct {
	ID           string           `json:"id"`
	AllergyID    string           `json:"allergyId"`
	Date         int64            `json:"date"`
	Severity     ReactionSeverity `json:"severity"`
	Symptoms     []string         `json:"symptoms"`
	Notes        string           `json:"notes"`
	Medication   string           `json:"medication,omitempty"`
	DurationMin  int              `json:"duration,omitempty"`
	LastModified int64            `json:"lastModified"`
}

func (r Reaction) Key() string     { return r.ID }
func (r Reaction) Modified() int64 { return r.LastModified }

// Product is a scanned product, identified by barcode. Products are global,
// not per-user. ImageRef is an object-storage key resolved through a
// presigned URL when the image is needed.
type Product struct {
	Barcode      string   `json:"barcode"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Allergens    []string `json:"allergens"`
	Ingredients  []string `json:"ingredients"`
	ImageRef     string   `json:"imageRef,omitempty"`
	LastModified int64    `json:"lastModified"`
}

func (p Product) Key() string     { return p.Barcode }
func (p Product) Modified() int64 { return p.LastModified }

// HistoryItem is one barcode-scan event. It carries no lastModified of its
// own; ScanDate serves as the reconciliation stamp since scan events are
// written once and never edited.
type HistoryItem struct {
	ID             string   `json:"id"`
	ProductBarcode string   `json:"productBarcode"`
	ProductName    string   `json:"productName"`
	ScanDate       int64    `json:"scanDate"`
	FoundAllergens []string `json:"foundAllergens"`
	Notes          string   `json:"notes"`
}

func (h HistoryItem) Key() string     { return h.ID }
func (h HistoryItem) Modified() int64 { return h.ScanDate }
