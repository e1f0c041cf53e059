package models

import (
	"encoding/json"
	"time"
)

// Document is one JSON record in the server-side tree. Path is the full
// document path ("users/{uid}/allergies/{id}", "products/{barcode}");
// Collection is the parent path, which watch feeds and incremental sync
// query by. Modified mirrors the record's own epoch-millisecond stamp so
// it can be filtered in SQL without unpacking the body.
type Document struct {
	Path       string
	Collection string
	OwnerID    string
	Body       json.RawMessage
	Modified   int64
	UpdatedAt  time.Time
}
