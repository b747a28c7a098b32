package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/database"
)

const dbTimeout = 5 * time.Second

// PostgresRepository stores one JSONB document per (user, category).
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository on pool. The learn_progress
// table must exist (see database.Migrate).
func NewPostgresRepository(pool *pgxpool.Pool) (*PostgresRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, category string) (*CategoryProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM learn_progress WHERE user_id = $1 AND category = $2`,
		userID, category,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return NewCategoryProgress(), nil
		}
		return nil, fmt.Errorf("query progress: %w", err)
	}
	return decodeCategory(data)
}

func (r *PostgresRepository) All(ctx context.Context, userID string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT category, data FROM learn_progress WHERE user_id = $1 ORDER BY category`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	rec := Record{}
	for rows.Next() {
		var category string
		var data []byte
		if err := rows.Scan(&category, &data); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		p, err := decodeCategory(data)
		if err != nil {
			return nil, err
		}
		rec[category] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) SetTopic(ctx context.Context, userID, category, topic string, completed *bool) (*CategoryProgress, error) {
	return r.update(ctx, userID, category, func(p *CategoryProgress) {
		applyTopic(p, topic, completed)
	})
}

func (r *PostgresRepository) SetSection(ctx context.Context, userID, category, topic, section string, completed *bool, total int) (*CategoryProgress, error) {
	return r.update(ctx, userID, category, func(p *CategoryProgress) {
		applySection(p, topic, section, completed, total)
	})
}

// update runs a locked read-modify-write of one category document.
func (r *PostgresRepository) update(ctx context.Context, userID, category string, fn func(*CategoryProgress)) (*CategoryProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var p *CategoryProgress
	err := database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO learn_progress (user_id, category) VALUES ($1, $2)
			 ON CONFLICT (user_id, category) DO NOTHING`,
			userID, category,
		); err != nil {
			return fmt.Errorf("ensure progress row: %w", err)
		}

		var data []byte
		if err := tx.QueryRow(ctx,
			`SELECT data FROM learn_progress WHERE user_id = $1 AND category = $2 FOR UPDATE`,
			userID, category,
		).Scan(&data); err != nil {
			return fmt.Errorf("lock progress row: %w", err)
		}

		var err error
		if p, err = decodeCategory(data); err != nil {
			return err
		}
		fn(p)

		encoded, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal progress: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE learn_progress SET data = $3::jsonb, updated_at = NOW()
			 WHERE user_id = $1 AND category = $2`,
			userID, category, string(encoded),
		); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// decodeCategory accepts both the current object shape and legacy topic arrays.
func decodeCategory(data []byte) (*CategoryProgress, error) {
	var entry storedEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	p, _ := entry.progress()
	return p, nil
}
