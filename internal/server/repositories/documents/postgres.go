package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sultumov/allergyTracker/internal/common"
	"github.com/sultumov/allergyTracker/internal/dbx"
	"github.com/sultumov/allergyTracker/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx). Bodies live in a JSONB column; the modification
// stamp is kept alongside so sync queries stay in SQL.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, path string) (*models.Document, error) {
	query := `
		SELECT path, collection, body, modified
		FROM documents
		WHERE path = $1
	`
	doc := &models.Document{}
	err := r.db.QueryRowContext(ctx, query, path).Scan(&doc.Path, &doc.Collection, &doc.Body, &doc.Modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (path, collection, owner_id, body, modified, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, now())
		ON CONFLICT (path)
		DO UPDATE SET
			body = EXCLUDED.body,
			modified = EXCLUDED.modified,
			updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query,
		doc.Path, doc.Collection, doc.OwnerID, []byte(doc.Body), doc.Modified); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, path string) error {
	query := `
		DELETE FROM documents
		WHERE path = $1
	`
	if _, err := r.db.ExecContext(ctx, query, path); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SelectCollection(ctx context.Context, collection string) ([]*models.Document, error) {
	query := `
		SELECT path, collection, body, modified
		FROM documents
		WHERE collection = $1
		ORDER BY modified, path
	`
	return r.selectDocs(ctx, query, collection)
}

func (r *PostgresRepository) SelectModifiedSince(ctx context.Context, collection string, since int64) ([]*models.Document, error) {
	query := `
		SELECT path, collection, body, modified
		FROM documents
		WHERE collection = $1 AND modified > $2
		ORDER BY modified, path
	`
	return r.selectDocs(ctx, query, collection, since)
}

func (r *PostgresRepository) selectDocs(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		if err := rows.Scan(&doc.Path, &doc.Collection, &doc.Body, &doc.Modified); err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
