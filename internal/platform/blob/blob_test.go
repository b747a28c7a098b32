package blob

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestStores_ReadWrite(t *testing.T) {
	ctx := context.Background()

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	sqliteStore, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	stores := []struct {
		name  string
		store Store
	}{
		{"memory", NewMemoryStore()},
		{"file", fileStore},
		{"sqlite", sqliteStore},
	}

	for _, tt := range stores {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.store.Read(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Read(missing) error = %v, want ErrNotFound", err)
			}

			if err := tt.store.Write(ctx, "gn_progress_v1", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if err := tt.store.Write(ctx, "gn_progress_v1", []byte(`{"b":2}`)); err != nil {
				t.Fatalf("Write() overwrite error = %v", err)
			}

			got, err := tt.store.Read(ctx, "gn_progress_v1")
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !bytes.Equal(got, []byte(`{"b":2}`)) {
				t.Errorf("Read() = %s, want {\"b\":2}", got)
			}
		})
	}
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if err := store.Write(context.Background(), "key", []byte("data")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "key.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir entries = %v, want [key.json]", names)
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	store := NewMemoryStore()
	data := []byte("abc")
	_ = store.Write(context.Background(), "k", data)
	data[0] = 'z'

	got, _ := store.Read(context.Background(), "k")
	if string(got) != "abc" {
		t.Errorf("Read() = %q, want abc (store must not alias caller buffers)", got)
	}
}

func TestRedisStore_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	client := redis.NewClient(&redis.Options{Addr: "localhost:59999", DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client, "learn:test:")

	_, err := store.Read(t.Context(), "gn_progress_v1")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("Read() error = %v, want connection error", err)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		client  *redis.Client
		wantErr bool
	}{
		{"memory", "memory", nil, false},
		{"file", "file", nil, false},
		{"sqlite", "sqlite", nil, false},
		{"redis without client", "redis", nil, true},
		{"redis", "redis", redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), false},
		{"unknown", "s3", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closer, err := Open(tt.backend, filepath.Join(t.TempDir(), "state"), tt.client)
			if tt.client != nil {
				defer tt.client.Close()
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer closer.Close()
			if store == nil {
				t.Fatal("Open() returned nil store")
			}
			if tt.backend == "redis" {
				return
			}

			ctx := context.Background()
			if err := store.Write(ctx, "k", []byte("v")); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			got, err := store.Read(ctx, "k")
			if err != nil || string(got) != "v" {
				t.Errorf("Read() = %q, %v", got, err)
			}
		})
	}
}
