package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/platform/cache"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the Store for backend ("file", "sqlite", "redis" or "memory").
// path is the state directory for file and sqlite; client is required for redis.
// The returned Closer releases the backend and is never nil on success.
func Open(backend, path string, client *redis.Client) (Store, io.Closer, error) {
	switch backend {
	case "memory":
		return NewMemoryStore(), nopCloser{}, nil
	case "file":
		s, err := NewFileStore(path)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case "sqlite":
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create state dir: %w", err)
		}
		s, err := OpenSQLite(filepath.Join(path, "state.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "redis":
		if client == nil {
			return nil, nil, fmt.Errorf("redis backend needs a client")
		}
		return NewRedisStore(client, cache.Key("state")+":"), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", backend)
	}
}
