package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/causalfunnel/cartsurvey/internal/api"
	"github.com/causalfunnel/cartsurvey/internal/models"
)

// SQLiteStore persists store/response/customer documents in SQLite. The
// survey and answer lists are stored as JSON columns, keeping the document
// shape identical across backends.
type SQLiteStore struct {
	db *sql.DB
}

var _ api.Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (or creates) the database at path, applies pragmas
// and migrations, and returns a ready store.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	store, err := NewSQLiteStore(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

func NewSQLiteStore(sqlDB *sql.DB) (*SQLiteStore, error) {
	if sqlDB == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := sqlDB.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	if err := RunMigrations(sqlDB); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: sqlDB}, nil
}

func (s *SQLiteStore) GetStore(ctx context.Context, shop string) (*models.StoreRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT shop, survey, created_at, updated_at FROM stores WHERE shop = ?`, shop)
	var (
		rec       models.StoreRecord
		surveyCol sql.NullString
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&rec.Shop, &surveyCol, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query store %q: %w", shop, err)
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	if surveyCol.Valid && surveyCol.String != "" {
		var survey models.Survey
		if err := json.Unmarshal([]byte(surveyCol.String), &survey); err != nil {
			return nil, fmt.Errorf("decode survey for %q: %w", shop, err)
		}
		rec.Survey = &survey
	}
	return &rec, nil
}

func (s *SQLiteStore) UpsertStore(ctx context.Context, rec *models.StoreRecord) (*models.StoreRecord, error) {
	surveyCol := sql.NullString{}
	if rec.Survey != nil {
		b, err := json.Marshal(rec.Survey)
		if err != nil {
			return nil, fmt.Errorf("encode survey for %q: %w", rec.Shop, err)
		}
		surveyCol = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stores (shop, survey, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(shop) DO UPDATE SET survey = excluded.survey, updated_at = excluded.updated_at`,
		rec.Shop, surveyCol, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("upsert store %q: %w", rec.Shop, err)
	}
	return s.GetStore(ctx, rec.Shop)
}

func (s *SQLiteStore) DeleteStore(ctx context.Context, shop string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stores WHERE shop = ?`, shop); err != nil {
		return fmt.Errorf("delete store %q: %w", shop, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE shop = ?`, shop); err != nil {
		return fmt.Errorf("delete customers for %q: %w", shop, err)
	}
	return nil
}

func (s *SQLiteStore) AddResponse(ctx context.Context, resp *models.Response) (*models.Response, error) {
	answers, err := json.Marshal(resp.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO responses (response_id, shop, customer_id, answers, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		resp.ID, resp.Shop, resp.CustomerID, string(answers), formatTime(resp.SubmittedAt))
	if err != nil {
		return nil, fmt.Errorf("insert response %q: %w", resp.ID, err)
	}
	return resp, nil
}

func (s *SQLiteStore) ListResponsesByShop(ctx context.Context, shop string) ([]*models.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT response_id, shop, customer_id, answers, submitted_at FROM responses
		 WHERE shop = ? ORDER BY submitted_at DESC, rowid DESC`, shop)
	if err != nil {
		return nil, fmt.Errorf("query responses for %q: %w", shop, err)
	}
	defer rows.Close()
	out := []*models.Response{}
	for rows.Next() {
		var (
			resp        models.Response
			answersCol  string
			submittedAt string
		)
		if err := rows.Scan(&resp.ID, &resp.Shop, &resp.CustomerID, &answersCol, &submittedAt); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		if err := json.Unmarshal([]byte(answersCol), &resp.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for %q: %w", resp.ID, err)
		}
		resp.SubmittedAt = parseTime(submittedAt)
		out = append(out, &resp)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteResponsesByShop(ctx context.Context, shop string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE shop = ?`, shop)
	if err != nil {
		return 0, fmt.Errorf("delete responses for %q: %w", shop, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) UpsertCustomer(ctx context.Context, c *models.Customer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (shop, customer_id, email, name) VALUES (?, ?, ?, ?)
		 ON CONFLICT(shop, customer_id) DO UPDATE SET email = excluded.email, name = excluded.name`,
		c.Shop, c.CustomerID, c.Email, c.Name)
	if err != nil {
		return fmt.Errorf("upsert customer %q: %w", c.CustomerID, err)
	}
	return nil
}

func (s *SQLiteStore) GetCustomer(ctx context.Context, shop, customerID string) (*models.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT shop, customer_id, email, name FROM customers WHERE shop = ? AND customer_id = ?`,
		shop, customerID)
	var c models.Customer
	if err := row.Scan(&c.Shop, &c.CustomerID, &c.Email, &c.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query customer %q: %w", customerID, err)
	}
	return &c, nil
}

func (s *SQLiteStore) DeleteCustomerData(ctx context.Context, shop, customerID string) (int, error) {
	removed := 0
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM customers WHERE shop = ? AND customer_id = ?`, shop, customerID)
	if err != nil {
		return 0, fmt.Errorf("delete customer %q: %w", customerID, err)
	}
	n, _ := res.RowsAffected()
	removed += int(n)
	res, err = s.db.ExecContext(ctx,
		`DELETE FROM responses WHERE shop = ? AND customer_id = ?`, shop, customerID)
	if err != nil {
		return removed, fmt.Errorf("delete customer responses %q: %w", customerID, err)
	}
	n, _ = res.RowsAffected()
	removed += int(n)
	return removed, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close(context.Context) error { return s.db.Close() }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
