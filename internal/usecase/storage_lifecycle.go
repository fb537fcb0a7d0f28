package usecase

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/videoflix/videoflix/internal/domain/model"
	"github.com/videoflix/videoflix/internal/domain/repository"
)

// StorageLifecycle owns the two cross-cutting storage guarantees:
// reprocessing a video replaces its derived files instead of accumulating
// them, and deleting a video removes every file it ever referenced.
type StorageLifecycle struct {
	storage repository.ObjectStorage
}

// NewStorageLifecycle creates a StorageLifecycle on top of object storage.
func NewStorageLifecycle(storage repository.ObjectStorage) *StorageLifecycle {
	return &StorageLifecycle{storage: storage}
}

// DerivedPrefix returns the storage prefix holding every derived artifact
// for the given output name: "videos/<name>/".
func DerivedPrefix(name string) string {
	return path.Join("videos", name) + "/"
}

// PurgeDerived removes all derived artifacts under the video's output
// prefix. Called before re-uploading so a reprocess with fewer segments
// leaves no orphans. A prefix with nothing under it is fine.
func (l *StorageLifecycle) PurgeDerived(ctx context.Context, outputName string) error {
	if err := l.storage.RemoveByPrefix(ctx, DerivedPrefix(outputName)); err != nil {
		return fmt.Errorf("purge derived prefix: %w", err)
	}
	return nil
}

// RemoveAll deletes every storage object the video references: the derived
// prefix and the original upload. Objects that are already gone count as
// removed.
func (l *StorageLifecycle) RemoveAll(ctx context.Context, video *model.Video) error {
	if video.SourcePath != "" {
		if err := l.PurgeDerived(ctx, video.OutputName()); err != nil {
			return err
		}
		if err := l.storage.Delete(ctx, video.SourcePath); err != nil &&
			!errors.Is(err, repository.ErrObjectNotFound) {
			return fmt.Errorf("delete original: %w", err)
		}
	}
	return nil
}
