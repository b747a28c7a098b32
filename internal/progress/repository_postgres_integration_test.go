//go:build integration

package progress_test

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/config"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/database"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/progress"
)

// setupPostgres starts a Postgres container with the schema migrated.
func setupPostgres(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("learn"),
		postgres.WithUsername("learn"),
		postgres.WithPassword("learn"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := database.New(ctx, config.DatabaseConfig{URL: url, MaxConns: 4, MinConns: 1})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestIntegration_PostgresRepository(t *testing.T) {
	db := setupPostgres(t)

	repo, err := progress.NewPostgresRepository(db.Pool)
	if err != nil {
		t.Fatal(err)
	}
	exerciseRepository(t, repo)
}

func TestIntegration_PostgresRepository_LegacyRow(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO learn_progress (user_id, category, data) VALUES ('u1', 'dsa', '["arrays"]'::jsonb)`,
	); err != nil {
		t.Fatal(err)
	}

	repo, _ := progress.NewPostgresRepository(db.Pool)
	p, err := repo.Get(ctx, "u1", "dsa")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !p.Topics.Has("arrays") {
		t.Error("legacy array rows should decode")
	}
}

func TestIntegration_MigrateIsIdempotent(t *testing.T) {
	db := setupPostgres(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestIntegration_PostgresEventSink(t *testing.T) {
	db := setupPostgres(t)
	sink := progress.NewPostgresEventSink(db.Pool)

	if err := sink.LogEvent(progress.Event{UserID: "u1", Type: progress.EventTopicChanged, Category: "dsa", Topic: "arrays", Completed: true}); err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	var n int
	if err := db.Pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM progress_events WHERE user_id = 'u1'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("events = %d, want 1", n)
	}
}
