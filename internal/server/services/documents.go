package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sultumov/allergyTracker/internal/common"
	"github.com/sultumov/allergyTracker/internal/dbx"
	"github.com/sultumov/allergyTracker/internal/server/models"
	"github.com/sultumov/allergyTracker/internal/server/repositories/repomanager"
)

// Notifier is told about every mutation so live watch feeds can re-emit.
// Implemented by the HTTP layer's watch hub.
type Notifier interface {
	DocumentChanged(docPath, collection string)
}

type nopNotifier struct{}

func (nopNotifier) DocumentChanged(string, string) {}

// DocumentService guards and persists the JSON document tree. Per-user
// collections (allergies, records, history) are only reachable by their
// owner; the products catalog is shared by every signed-in user.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	notifier    Notifier
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, n Notifier) *DocumentService {
	if n == nil {
		n = nopNotifier{}
	}
	return &DocumentService{db: db, repomanager: m, notifier: n}
}

var userCollections = map[string]struct{}{
	common.CollectionAllergies: {},
	common.CollectionRecords:   {},
	common.CollectionHistory:   {},
}

// parsedPath is a validated document-tree path. Doc is empty for
// collection paths.
type parsedPath struct {
	Collection string
	Doc        string
	Owner      string // empty for the shared products tree
}

// parsePath validates a path against the fixed tree shape:
//
//	products[/{barcode}]
//	users/{uid}/{collection}[/{id}]
func parsePath(path string) (parsedPath, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case parts[0] == common.CollectionProducts && len(parts) <= 2:
		p := parsedPath{Collection: common.CollectionProducts}
		if len(parts) == 2 {
			p.Doc = path
		}
		return p, nil

	case parts[0] == "users" && (len(parts) == 3 || len(parts) == 4):
		if _, ok := userCollections[parts[2]]; !ok || parts[1] == "" {
			return parsedPath{}, fmt.Errorf("%w: unknown path %q", common.ErrInvalidEntity, path)
		}
		p := parsedPath{
			Collection: strings.Join(parts[:3], "/"),
			Owner:      parts[1],
		}
		if len(parts) == 4 {
			p.Doc = path
		}
		return p, nil
	}

	return parsedPath{}, fmt.Errorf("%w: unknown path %q", common.ErrInvalidEntity, path)
}

func (s *DocumentService) authorize(userID, path string) (parsedPath, error) {
	p, err := parsePath(path)
	if err != nil {
		return parsedPath{}, err
	}
	if p.Owner != "" && p.Owner != userID {
		return parsedPath{}, common.ErrNotAuthenticated
	}
	return p, nil
}

// extractModified pulls the record's own modification stamp out of its
// body. Allergies, records and products carry lastModified; history items
// are immutable and stamped by scanDate.
func extractModified(body json.RawMessage) int64 {
	var fields struct {
		LastModified int64 `json:"lastModified"`
		ScanDate     int64 `json:"scanDate"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return 0
	}
	if fields.LastModified != 0 {
		return fields.LastModified
	}
	return fields.ScanDate
}

// Get returns the document at a doc path.
func (s *DocumentService) Get(ctx context.Context, userID, path string) (json.RawMessage, error) {
	p, err := s.authorize(userID, path)
	if err != nil {
		return nil, err
	}
	if p.Doc == "" {
		return nil, fmt.Errorf("%w: %q is not a document path", common.ErrInvalidEntity, path)
	}

	doc, err := s.repomanager.Documents(s.db).Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return doc.Body, nil
}

// Put replaces the document at a doc path with body.
func (s *DocumentService) Put(ctx context.Context, userID, path string, body json.RawMessage) error {
	p, err := s.authorize(userID, path)
	if err != nil {
		return err
	}
	if p.Doc == "" {
		return fmt.Errorf("%w: %q is not a document path", common.ErrInvalidEntity, path)
	}
	if !json.Valid(body) {
		return fmt.Errorf("%w: body is not valid JSON", common.ErrInvalidEntity)
	}

	doc := &models.Document{
		Path:       path,
		Collection: p.Collection,
		OwnerID:    p.Owner,
		Body:       body,
		Modified:   extractModified(body),
	}
	if err := s.repomanager.Documents(s.db).Upsert(ctx, doc); err != nil {
		return err
	}

	s.notifier.DocumentChanged(path, p.Collection)
	return nil
}

// Patch merges fields into the existing document. The read and write run
// in one transaction so concurrent patches cannot drop each other's fields.
func (s *DocumentService) Patch(ctx context.Context, userID, path string, fields map[string]any) error {
	p, err := s.authorize(userID, path)
	if err != nil {
		return err
	}
	if p.Doc == "" {
		return fmt.Errorf("%w: %q is not a document path", common.ErrInvalidEntity, path)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Documents(tx)

		doc, err := repo.Get(ctx, path)
		if err != nil {
			return err
		}

		var merged map[string]any
		if err := json.Unmarshal(doc.Body, &merged); err != nil {
			return fmt.Errorf("%w: stored document is not an object", common.ErrInvalidEntity)
		}
		for k, v := range fields {
			merged[k] = v
		}

		body, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encoding merged document: %w", err)
		}

		doc.Body = body
		doc.Modified = extractModified(body)
		return repo.Upsert(ctx, doc)
	})
	if err != nil {
		return err
	}

	s.notifier.DocumentChanged(path, p.Collection)
	return nil
}

// Delete removes the document at a doc path. Absent documents delete
// cleanly.
func (s *DocumentService) Delete(ctx context.Context, userID, path string) error {
	p, err := s.authorize(userID, path)
	if err != nil {
		return err
	}
	if p.Doc == "" {
		return fmt.Errorf("%w: %q is not a document path", common.ErrInvalidEntity, path)
	}

	if err := s.repomanager.Documents(s.db).Delete(ctx, path); err != nil {
		return err
	}

	s.notifier.DocumentChanged(path, p.Collection)
	return nil
}

// Snapshot returns the current contents under path: every document of a
// collection, or a zero-or-one element slice for a doc path. Watch feeds
// send exactly this on attach and after every change.
func (s *DocumentService) Snapshot(ctx context.Context, userID, path string) ([]json.RawMessage, error) {
	p, err := s.authorize(userID, path)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Documents(s.db)

	if p.Doc != "" {
		doc, err := repo.Get(ctx, path)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return []json.RawMessage{}, nil
			}
			return nil, err
		}
		return []json.RawMessage{doc.Body}, nil
	}

	docs, err := repo.SelectCollection(ctx, p.Collection)
	if err != nil {
		return nil, err
	}
	return docBodies(docs), nil
}

// ModifiedSince returns collection documents stamped strictly after since.
func (s *DocumentService) ModifiedSince(ctx context.Context, userID, path string, since int64) ([]json.RawMessage, error) {
	p, err := s.authorize(userID, path)
	if err != nil {
		return nil, err
	}
	if p.Doc != "" {
		return nil, fmt.Errorf("%w: %q is not a collection path", common.ErrInvalidEntity, path)
	}

	docs, err := s.repomanager.Documents(s.db).SelectModifiedSince(ctx, p.Collection, since)
	if err != nil {
		return nil, err
	}
	return docBodies(docs), nil
}

func docBodies(docs []*models.Document) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Body)
	}
	return out
}
