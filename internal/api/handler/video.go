package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/videoflix/videoflix/internal/domain/model"
	"github.com/videoflix/videoflix/internal/domain/repository"
	"github.com/videoflix/videoflix/internal/usecase"
)

// Request/Response types

type CreateVideoRequest struct {
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	FileName    string `json:"file_name"`
}

type CreateVideoResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Genre     string `json:"genre"`
	UploadURL string `json:"upload_url"`
	CreatedAt string `json:"created_at"`
}

type QualityLevelResponse struct {
	Label  string `json:"label"`
	Source string `json:"source"`
}

type VideoResponse struct {
	ID              string                 `json:"id"`
	Title           string                 `json:"title"`
	Genre           string                 `json:"genre"`
	Description     string                 `json:"description"`
	DurationSeconds float64                `json:"duration_seconds"`
	Playable        bool                   `json:"playable"`
	QualityLevels   []QualityLevelResponse `json:"quality_levels,omitempty"`
	MasterManifest  string                 `json:"master_manifest,omitempty"`
	Preview         string                 `json:"preview,omitempty"`
	Thumbnail       string                 `json:"thumbnail,omitempty"`
	Sprite          string                 `json:"sprite,omitempty"`
	CreatedAt       string                 `json:"created_at"`
	UpdatedAt       string                 `json:"updated_at"`
}

// VideoHandler handles video-related HTTP requests.
type VideoHandler struct {
	svc usecase.VideoService
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(svc usecase.VideoService) *VideoHandler {
	return &VideoHandler{svc: svc}
}

// Create handles POST /v1/videos
func (h *VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if req.Title == "" {
		Error(w, http.StatusBadRequest, "invalid_title", "Title is required")
		return
	}

	if req.FileName == "" {
		Error(w, http.StatusBadRequest, "invalid_file_name", "File name is required")
		return
	}

	output, err := h.svc.CreateVideo(r.Context(), usecase.CreateVideoInput{
		Title:       req.Title,
		Genre:       req.Genre,
		Description: req.Description,
		FileName:    req.FileName,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusCreated, CreateVideoResponse{
		ID:        output.Video.ID.String(),
		Title:     output.Video.Title,
		Genre:     output.Video.Genre,
		UploadURL: output.UploadURL,
		CreatedAt: output.Video.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// TriggerProcess handles POST /v1/videos/{id}/process
func (h *VideoHandler) TriggerProcess(w http.ResponseWriter, r *http.Request) {
	videoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_video_id", "Video ID must be a valid UUID")
		return
	}

	if err := h.svc.TriggerProcess(r.Context(), videoID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Get handles GET /v1/videos/{id}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	videoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_video_id", "Video ID must be a valid UUID")
		return
	}

	video, err := h.svc.GetVideo(r.Context(), videoID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toVideoResponse(video))
}

// List handles GET /v1/videos
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	videos, err := h.svc.ListVideos(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	items := make([]VideoResponse, len(videos))
	for i, v := range videos {
		items[i] = toVideoResponse(v)
	}

	JSON(w, http.StatusOK, items)
}

// Delete handles DELETE /v1/videos/{id}
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	videoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_video_id", "Video ID must be a valid UUID")
		return
	}

	if err := h.svc.DeleteVideo(r.Context(), videoID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *VideoHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrVideoNotFound):
		Error(w, http.StatusNotFound, "video_not_found", "Video not found")
	case errors.Is(err, model.ErrEmptyTitle):
		Error(w, http.StatusBadRequest, "invalid_title", "Title cannot be empty")
	case errors.Is(err, model.ErrTitleTooLong):
		Error(w, http.StatusBadRequest, "invalid_title", "Title exceeds maximum length")
	case errors.Is(err, usecase.ErrOriginalNotUploaded):
		Error(w, http.StatusConflict, "original_not_uploaded", "Original file has not been uploaded yet")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func toVideoResponse(v *model.Video) VideoResponse {
	var levels []QualityLevelResponse
	for _, q := range v.QualityLevels {
		levels = append(levels, QualityLevelResponse{Label: q.Label, Source: q.Source})
	}

	return VideoResponse{
		ID:              v.ID.String(),
		Title:           v.Title,
		Genre:           v.Genre,
		Description:     v.Description,
		DurationSeconds: v.DurationSeconds,
		Playable:        v.IsPlayable(),
		QualityLevels:   levels,
		MasterManifest:  v.MasterManifestPath,
		Preview:         v.PreviewPath,
		Thumbnail:       v.ThumbnailPath,
		Sprite:          v.SpritePath,
		CreatedAt:       v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:       v.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
