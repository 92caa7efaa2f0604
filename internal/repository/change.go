package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/vitor-labes/catalog-browser/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS product_changes (
		event_id    TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		product_id  INTEGER NOT NULL,
		product     JSONB,
		occurred_at TIMESTAMPTZ NOT NULL
	)
`

// ChangeRepository is the journal of product changes accepted by the catalog.
type ChangeRepository struct {
	db *sql.DB
}

func NewChangeRepository(databaseURL string) (*ChangeRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir conexão: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("erro ao conectar no banco: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	slog.Info("conectado ao PostgreSQL")

	return &ChangeRepository{db: db}, nil
}

func (r *ChangeRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("erro ao criar tabela product_changes: %w", err)
	}
	return nil
}

// Save stores change once; redelivered events are ignored.
func (r *ChangeRepository) Save(ctx context.Context, change domain.ProductChange) error {
	query := `
		INSERT INTO product_changes (event_id, kind, product_id, product, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
	`

	product, err := productColumn(change.Product)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(
		ctx,
		query,
		change.EventID,
		string(change.Kind),
		change.ProductID,
		product,
		change.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("erro ao inserir alteração: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		slog.Info("alteração já registrada", "event_id", change.EventID)
		return nil
	}

	slog.Info("alteração salva no banco",
		"event_id", change.EventID,
		"kind", change.Kind,
		"product_id", change.ProductID,
	)

	return nil
}

// Recent returns the latest changes, newest first.
func (r *ChangeRepository) Recent(ctx context.Context, limit int) ([]domain.ProductChange, error) {
	query := `
		SELECT event_id, kind, product_id, product, occurred_at
		FROM product_changes
		ORDER BY occurred_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar alterações: %w", err)
	}
	defer rows.Close()

	var changes []domain.ProductChange
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao ler alterações: %w", err)
	}

	return changes, nil
}

func (r *ChangeRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChange(row rowScanner) (domain.ProductChange, error) {
	var (
		c       domain.ProductChange
		kind    string
		product []byte
	)
	if err := row.Scan(&c.EventID, &kind, &c.ProductID, &product, &c.OccurredAt); err != nil {
		return domain.ProductChange{}, fmt.Errorf("erro ao escanear linha: %w", err)
	}
	c.Kind = domain.ChangeKind(kind)

	var err error
	if c.Product, err = scanProduct(product); err != nil {
		return domain.ProductChange{}, err
	}
	return c, nil
}

// productColumn maps a nil product to SQL NULL.
func productColumn(p *domain.Product) (any, error) {
	if p == nil {
		return nil, nil
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("erro ao serializar produto: %w", err)
	}
	return string(body), nil
}

func scanProduct(raw []byte) (*domain.Product, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var p domain.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("erro ao ler produto salvo: %w", err)
	}
	return &p, nil
}
