package model

import (
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QualityLevel is one playable rendition of a video. Source is the
// storage-relative path to that rendition's index manifest.
type QualityLevel struct {
	Label  string `json:"label"`
	Source string `json:"source"`
}

// Video represents a video asset and its derived streaming artifacts.
// All path fields are relative storage keys; the presentation layer turns
// them into absolute URLs.
type Video struct {
	ID          uuid.UUID
	Title       string
	Genre       string
	Description string

	// SourcePath is the storage key of the uploaded original.
	// Set once after creation, never touched by the pipeline.
	SourcePath string

	DurationSeconds    float64
	QualityLevels      []QualityLevel
	MasterManifestPath string
	PreviewPath        string
	ThumbnailPath      string
	SpritePath         string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Derived is the set of fields the pipeline writes back after processing.
// It is committed as a whole: a reader must never observe a partially
// applied Derived.
type Derived struct {
	DurationSeconds    float64
	QualityLevels      []QualityLevel
	MasterManifestPath string
	PreviewPath        string
	ThumbnailPath      string
	SpritePath         string
}

var (
	ErrEmptyTitle   = errors.New("title cannot be empty")
	ErrTitleTooLong = errors.New("title exceeds maximum length of 200 characters")
)

const maxTitleLength = 200

// NewVideo creates a new Video with empty derived fields.
func NewVideo(title, genre, description string) (*Video, error) {
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return nil, ErrTitleTooLong
	}

	now := time.Now()
	return &Video{
		ID:          uuid.New(),
		Title:       title,
		Genre:       genre,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetSourcePath records the storage key of the uploaded original.
func (v *Video) SetSourcePath(key string) {
	v.SourcePath = key
	v.UpdatedAt = time.Now()
}

// IsPlayable reports whether the video has a complete streaming ladder.
// An unplayable video is "not yet processed", never an error state.
func (v *Video) IsPlayable() bool {
	return len(v.QualityLevels) > 0 && v.MasterManifestPath != ""
}

// OutputName derives the filesystem-safe slug that names this video's
// output prefix, from the original file name without its extension.
func (v *Video) OutputName() string {
	base := path.Base(v.SourcePath)
	stem := strings.TrimSuffix(base, path.Ext(base))
	return strings.ToLower(strings.ReplaceAll(stem, " ", "_"))
}
