package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sultumov/allergyTracker/internal/common"
	"github.com/sultumov/allergyTracker/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func docRows(docs ...*models.Document) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"path", "collection", "body", "modified"})
	for _, d := range docs {
		rows.AddRow(d.Path, d.Collection, []byte(d.Body), d.Modified)
	}
	return rows
}

func TestGet_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	body := json.RawMessage(`{"id":"a1","lastModified":100}`)
	mock.ExpectQuery(`SELECT path, collection, body, modified`).
		WithArgs("users/u1/allergies/a1").
		WillReturnRows(docRows(&models.Document{
			Path:       "users/u1/allergies/a1",
			Collection: "users/u1/allergies",
			Body:       body,
			Modified:   100,
		}))

	doc, err := repo.Get(context.Background(), "users/u1/allergies/a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Modified != 100 || string(doc.Body) != string(body) {
		t.Fatalf("unexpected doc: %+v", doc)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT path, collection, body, modified`).
		WithArgs("users/u1/allergies/ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "users/u1/allergies/ghost")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUpsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO documents .* ON CONFLICT \(path\)`).
		WithArgs("users/u1/allergies/a1", "users/u1/allergies", "u1", []byte(`{"id":"a1"}`), int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.Document{
		Path:       "users/u1/allergies/a1",
		Collection: "users/u1/allergies",
		OwnerID:    "u1",
		Body:       json.RawMessage(`{"id":"a1"}`),
		Modified:   100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelete_AbsentIsNotAnError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM documents`).
		WithArgs("users/u1/allergies/ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "users/u1/allergies/ghost"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSelectModifiedSince_FiltersAndOrders(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT path, collection, body, modified .* WHERE collection = \$1 AND modified > \$2`).
		WithArgs("users/u1/allergies", int64(50)).
		WillReturnRows(docRows(
			&models.Document{Path: "p1", Collection: "users/u1/allergies", Body: json.RawMessage(`{"id":"a1"}`), Modified: 60},
			&models.Document{Path: "p2", Collection: "users/u1/allergies", Body: json.RawMessage(`{"id":"a2"}`), Modified: 70},
		))

	docs, err := repo.SelectModifiedSince(context.Background(), "users/u1/allergies", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 || docs[0].Modified != 60 || docs[1].Modified != 70 {
		t.Fatalf("unexpected docs: %+v", docs)
	}
}

func TestSelectCollection_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT path, collection, body, modified .* WHERE collection = \$1`).
		WithArgs("products").
		WillReturnRows(docRows())

	docs, err := repo.SelectCollection(context.Background(), "products")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("want empty, got %+v", docs)
	}
}
