package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/google/renameio/v2"
)

var ErrCheckpointNotFound = errors.New("checkpoint not found")

const defaultTarget = "default"

// CheckpointKey identifies the persisted result of one grid point.
type CheckpointKey struct {
	Target string
	M      int
	Alpha  float64
	Beta   float64
}

func (k CheckpointKey) target() string {
	if k.Target == "" {
		return defaultTarget
	}
	return k.Target
}

func (k CheckpointKey) String() string {
	return fmt.Sprintf("%s/m=%d/alpha=%s/beta=%s", k.target(), k.M, formatWeight(k.Alpha), formatWeight(k.Beta))
}

// CheckpointStore is a write-once key/value store of grid point results. Presence of a
// key means the point is done. Stores provide no locking: two scans writing the same
// keys at once race.
type CheckpointStore interface {
	Exists(ctx context.Context, key CheckpointKey) (bool, error)
	Load(ctx context.Context, key CheckpointKey) (Result, error)
	Save(ctx context.Context, key CheckpointKey, r Result) error
}

// FileCheckpointStore keeps one JSON file per point under
// <root>/<target>/<m>/<alpha>/<beta>.json.
type FileCheckpointStore struct {
	Root string
}

func NewFileCheckpointStore(root string) *FileCheckpointStore {
	return &FileCheckpointStore{Root: root}
}

func (s *FileCheckpointStore) Path(key CheckpointKey) string {
	return filepath.Join(s.Root, key.target(), strconv.Itoa(key.M), formatWeight(key.Alpha), formatWeight(key.Beta)+".json")
}

func (s *FileCheckpointStore) Exists(_ context.Context, key CheckpointKey) (bool, error) {
	_, err := os.Stat(s.Path(key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat checkpoint %s: %w", key, err)
	}
}

func (s *FileCheckpointStore) Load(_ context.Context, key CheckpointKey) (Result, error) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrCheckpointNotFound, key)
		}
		return Result{}, fmt.Errorf("failed to read checkpoint %s: %w", key, err)
	}

	var r Result
	if err := sonic.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("failed to decode checkpoint %s: %w", key, err)
	}
	return r, nil
}

// Save replaces the checkpoint atomically, so a checkpoint is either absent or complete.
func (s *FileCheckpointStore) Save(_ context.Context, key CheckpointKey, r Result) error {
	data, err := sonic.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint %s: %w", key, err)
	}

	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint dir: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint %s: %w", key, err)
	}
	return nil
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'g', -1, 64)
}
