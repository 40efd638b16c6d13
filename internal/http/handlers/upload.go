// Package handlers provides the HTTP API handlers for vodarr.
package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/vodarr/vodarr/internal/media"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/pipeline"
	"github.com/vodarr/vodarr/internal/service"
)

// UploadHandler handles upload intake, progress, and cancellation.
type UploadHandler struct {
	uploads      *service.UploadService
	orchestrator *pipeline.Orchestrator
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(uploads *service.UploadService, orchestrator *pipeline.Orchestrator) *UploadHandler {
	return &UploadHandler{uploads: uploads, orchestrator: orchestrator}
}

// Register registers the upload routes with the API.
func (h *UploadHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:      "uploadMedia",
		Method:           "POST",
		Path:             "/media/upload",
		Summary:          "Upload a video",
		Description:      "Accepts a video file and queues it for transcoding",
		Tags:             []string{"Uploads"},
		DefaultStatus:    http.StatusAccepted,
		RequestBody:      &huma.RequestBody{Content: map[string]*huma.MediaType{"multipart/form-data": {}}},
		SkipValidateBody: true,
	}, h.UploadMedia)

	huma.Register(api, huma.Operation{
		OperationID: "getUploadProgress",
		Method:      "GET",
		Path:        "/media/upload/{upload_id}/progress",
		Summary:     "Get upload progress",
		Description: "Returns the pipeline stage and progress of an upload",
		Tags:        []string{"Uploads"},
	}, h.GetProgress)

	huma.Register(api, huma.Operation{
		OperationID: "cancelUpload",
		Method:      "DELETE",
		Path:        "/media/upload/{upload_id}",
		Summary:     "Cancel an upload",
		Description: "Cancels a queued or in-flight upload and removes its staged files",
		Tags:        []string{"Uploads"},
	}, h.CancelUpload)
}

// UploadMediaInput is the multipart input for uploading a video.
type UploadMediaInput struct {
	RawBody multipart.Form
}

// UploadMediaOutput is the accepted-upload response.
type UploadMediaOutput struct {
	Body service.UploadResult
}

// UploadMedia accepts a multipart video upload and queues it.
func (h *UploadHandler) UploadMedia(ctx context.Context, input *UploadMediaInput) (*UploadMediaOutput, error) {
	files := input.RawBody.File["file"]
	if len(files) == 0 {
		return nil, huma.Error400BadRequest("no file provided")
	}
	fileHeader := files[0]

	file, err := fileHeader.Open()
	if err != nil {
		return nil, huma.Error400BadRequest("failed to open uploaded file")
	}
	defer file.Close()

	title := strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))
	if titles := input.RawBody.Value["title"]; len(titles) > 0 && titles[0] != "" {
		title = titles[0]
	}
	var description string
	if descs := input.RawBody.Value["description"]; len(descs) > 0 {
		description = descs[0]
	}
	isPublic := false
	if vals := input.RawBody.Value["is_public"]; len(vals) > 0 {
		isPublic = vals[0] == "true" || vals[0] == "1"
	}

	result, err := h.uploads.Accept(ctx, &service.UploadRequest{
		Filename:    fileHeader.Filename,
		Size:        fileHeader.Size,
		Title:       title,
		Description: description,
		IsPublic:    isPublic,
		File:        file,
	})
	if err != nil {
		var verr *media.ValidationError
		if errors.As(err, &verr) {
			return nil, huma.Error400BadRequest(verr.Message, &huma.ErrorDetail{
				Location: "body.file",
				Message:  verr.Message,
				Value:    verr.Reason,
			})
		}
		if errors.Is(err, pipeline.ErrQueueFull) || errors.Is(err, pipeline.ErrPoolStopped) {
			return nil, huma.Error503ServiceUnavailable("transcode queue is full, try again later")
		}
		return nil, huma.Error500InternalServerError("failed to accept upload", err)
	}

	return &UploadMediaOutput{Body: *result}, nil
}

// GetProgressInput is the input for the progress endpoint.
type GetProgressInput struct {
	UploadID string `path:"upload_id" doc:"Upload job ID"`
}

// ProgressResponse reports the last committed state of an upload job.
type ProgressResponse struct {
	UploadID  string `json:"upload_id"`
	Slug      string `json:"slug"`
	Stage     string `json:"stage"`
	Progress  int    `json:"progress"`
	Status    string `json:"status"`
	LastError string `json:"last_error,omitempty"`
}

// GetProgressOutput is the output for the progress endpoint.
type GetProgressOutput struct {
	Body ProgressResponse
}

// GetProgress returns the stage and progress of an upload job.
func (h *UploadHandler) GetProgress(ctx context.Context, input *GetProgressInput) (*GetProgressOutput, error) {
	id, err := models.ParseULID(input.UploadID)
	if err != nil {
		return nil, huma.Error404NotFound("upload not found")
	}

	job, err := h.uploads.Progress(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to fetch upload", err)
	}
	if job == nil {
		return nil, huma.Error404NotFound("upload not found")
	}

	return &GetProgressOutput{
		Body: ProgressResponse{
			UploadID:  job.ID.String(),
			Slug:      job.Slug,
			Stage:     job.Stage.String(),
			Progress:  job.Progress,
			Status:    string(job.Status),
			LastError: job.LastError,
		},
	}, nil
}

// CancelUploadInput is the input for cancelling an upload.
type CancelUploadInput struct {
	UploadID string `path:"upload_id" doc:"Upload job ID"`
}

// CancelUploadOutput is the output for cancelling an upload.
type CancelUploadOutput struct {
	Body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
}

// CancelUpload cancels a queued or running upload job.
func (h *UploadHandler) CancelUpload(ctx context.Context, input *CancelUploadInput) (*CancelUploadOutput, error) {
	id, err := models.ParseULID(input.UploadID)
	if err != nil {
		return nil, huma.Error404NotFound("upload not found")
	}

	if err := h.orchestrator.Cancel(ctx, id); err != nil {
		if errors.Is(err, pipeline.ErrJobNotFound) {
			return nil, huma.Error404NotFound("upload not found")
		}
		return nil, huma.Error500InternalServerError("failed to cancel upload", err)
	}

	out := &CancelUploadOutput{}
	out.Body.Success = true
	out.Body.Message = "upload cancelled"
	return out, nil
}
