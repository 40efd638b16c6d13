package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/storage"
)

// VideoHandler handles the published-video API and media file serving.
type VideoHandler struct {
	videos repository.VideoRepository
	store  *storage.MediaStore
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(videos repository.VideoRepository, store *storage.MediaStore) *VideoHandler {
	return &VideoHandler{videos: videos, store: store}
}

// Register registers the video routes with the API.
func (h *VideoHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getVideos",
		Method:      "GET",
		Path:        "/api/v1/videos",
		Summary:     "List videos",
		Description: "Returns ready videos, newest first",
		Tags:        []string{"Videos"},
	}, h.GetVideos)

	huma.Register(api, huma.Operation{
		OperationID: "getVideo",
		Method:      "GET",
		Path:        "/api/v1/videos/{slug}",
		Summary:     "Get video by slug",
		Description: "Returns a video with its quality variants",
		Tags:        []string{"Videos"},
	}, h.GetVideo)

	huma.Register(api, huma.Operation{
		OperationID: "deleteVideo",
		Method:      "DELETE",
		Path:        "/api/v1/videos/{slug}",
		Summary:     "Delete video",
		Description: "Deletes a video, its variants, and its published files",
		Tags:        []string{"Videos"},
	}, h.DeleteVideo)
}

// RegisterFileServer registers the published-media file server on the router.
// Assets are served at /media/{slug}/... from the final media directory.
func (h *VideoHandler) RegisterFileServer(router chi.Router) error {
	root, err := h.store.FinalRoot()
	if err != nil {
		return err
	}

	fs := http.StripPrefix("/media/", http.FileServer(http.Dir(root)))
	router.Get("/media/{slug}/*", fs.ServeHTTP)
	router.Head("/media/{slug}/*", fs.ServeHTTP)
	return nil
}

// GetVideosInput is the input for listing videos.
type GetVideosInput struct{}

// GetVideosOutput is the output for listing videos.
type GetVideosOutput struct {
	Body struct {
		Videos []*models.Video `json:"videos"`
		Total  int             `json:"total"`
	}
}

// GetVideos lists ready videos, newest first.
func (h *VideoHandler) GetVideos(ctx context.Context, input *GetVideosInput) (*GetVideosOutput, error) {
	videos, err := h.videos.GetReady(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list videos", err)
	}

	out := &GetVideosOutput{}
	out.Body.Videos = videos
	out.Body.Total = len(videos)
	return out, nil
}

// GetVideoInput is the input for fetching a single video.
type GetVideoInput struct {
	Slug string `path:"slug" doc:"Video slug"`
}

// GetVideoOutput is the output for fetching a single video.
type GetVideoOutput struct {
	Body models.Video
}

// GetVideo returns a video with its variants.
func (h *VideoHandler) GetVideo(ctx context.Context, input *GetVideoInput) (*GetVideoOutput, error) {
	video, err := h.videos.GetBySlug(ctx, input.Slug)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to fetch video", err)
	}
	if video == nil {
		return nil, huma.Error404NotFound("video not found")
	}

	return &GetVideoOutput{Body: *video}, nil
}

// DeleteVideoInput is the input for deleting a video.
type DeleteVideoInput struct {
	Slug string `path:"slug" doc:"Video slug"`
}

// DeleteVideoOutput is the output for deleting a video.
type DeleteVideoOutput struct {
	Body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
}

// DeleteVideo removes the video record and its published files.
func (h *VideoHandler) DeleteVideo(ctx context.Context, input *DeleteVideoInput) (*DeleteVideoOutput, error) {
	video, err := h.videos.GetBySlug(ctx, input.Slug)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to fetch video", err)
	}
	if video == nil {
		return nil, huma.Error404NotFound("video not found")
	}

	if err := h.videos.Delete(ctx, video.ID); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete video", err)
	}
	if err := h.store.DeleteFinal(input.Slug); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete media files", err)
	}

	out := &DeleteVideoOutput{}
	out.Body.Success = true
	out.Body.Message = "video deleted"
	return out, nil
}
