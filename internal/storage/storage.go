// Package storage persists whole-graph save files.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/chmielvu/Forge-Text/pkg/common"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrInvalidName      = errors.New("invalid snapshot name")
)

// SnapshotStore saves and loads named graph snapshots.
type SnapshotStore interface {
	Save(ctx context.Context, name string, snap common.Snapshot) error
	Load(ctx context.Context, name string) (common.Snapshot, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidateName rejects names that could escape the snapshot namespace.
func ValidateName(name string) error {
	if !validName.MatchString(name) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Encode strips layout coordinates before serialising.
func Encode(snap common.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap.Compact())
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (common.Snapshot, error) {
	var snap common.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return common.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
