package tail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// Checkpoint is a saved follower position. Offset always sits on a line
// boundary.
type Checkpoint struct {
	Path      string    `json:"path"`
	Offset    int64     `json:"offset"`
	Inode     uint64    `json:"inode,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckpointStore persists the follower position between runs.
type CheckpointStore interface {
	// Load returns the saved checkpoint, or found=false when none exists.
	Load(ctx context.Context) (cp Checkpoint, found bool, err error)
	Save(ctx context.Context, cp Checkpoint) error
}

// FileCheckpointStore keeps the checkpoint in a small JSON file.
type FileCheckpointStore struct {
	path string
}

// NewFileCheckpointStore creates a checkpoint store writing to path.
func NewFileCheckpointStore(path string) *FileCheckpointStore {
	return &FileCheckpointStore{path: path}
}

func (s *FileCheckpointStore) Load(ctx context.Context) (Checkpoint, bool, error) {
	var cp Checkpoint
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return cp, false, nil
	}
	if err != nil {
		return cp, false, fmt.Errorf("read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return cp, false, fmt.Errorf("decode checkpoint: %w", err)
	}
	return cp, true, nil
}

func (s *FileCheckpointStore) Save(ctx context.Context, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// RedisCheckpointStore keeps the checkpoint under a single Redis key so a
// replacement host can resume where the previous one stopped.
type RedisCheckpointStore struct {
	client *redis.Client
	key    string
}

// NewRedisCheckpointStore creates a Redis-backed checkpoint store.
func NewRedisCheckpointStore(client *redis.Client, key string) *RedisCheckpointStore {
	return &RedisCheckpointStore{client: client, key: key}
}

func (s *RedisCheckpointStore) Load(ctx context.Context) (Checkpoint, bool, error) {
	var cp Checkpoint
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cp, false, nil
	}
	if err != nil {
		return cp, false, fmt.Errorf("failed to load checkpoint from redis: %w", err)
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return cp, false, fmt.Errorf("decode checkpoint: %w", err)
	}
	return cp, true, nil
}

func (s *RedisCheckpointStore) Save(ctx context.Context, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}
