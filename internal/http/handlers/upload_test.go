package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/http/handlers"
	"github.com/vodarr/vodarr/internal/http/middleware"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/pipeline"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/service"
	"github.com/vodarr/vodarr/internal/storage"
)

const testMaxUploadSize = 1024

type uploadFixture struct {
	router *chi.Mux
	repos  *repository.Repositories
	store  *storage.MediaStore
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UploadJob{}, &models.Video{}, &models.QualityVariant{}))

	store, err := storage.NewMediaStore(config.StorageConfig{
		MediaDir: t.TempDir(),
		TempDir:  "temp",
		FinalDir: "final",
	})
	require.NoError(t, err)

	repos := repository.New(db)

	// The pool is never started, so submitted jobs just sit in the queue.
	orchestrator := pipeline.NewOrchestrator(config.TranscodeConfig{MaxRetries: 1}, nil, store, repos.UploadJobs, repos.Videos, nil)
	pool := pipeline.NewPool(1, 16, orchestrator, nil)

	uploads := service.NewUploadService(testMaxUploadSize, store, repos.UploadJobs, pool, nil)

	router := chi.NewRouter()
	router.Use(middleware.MaxBytes(testMaxUploadSize))
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	handlers.NewUploadHandler(uploads, orchestrator).Register(api)

	return &uploadFixture{router: router, repos: repos, store: store}
}

func multipartUpload(t *testing.T, filename, title string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	if title != "" {
		require.NoError(t, writer.WriteField("title", title))
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestUploadMedia_Accepted(t *testing.T) {
	f := newUploadFixture(t)

	body, contentType := multipartUpload(t, "holiday.mp4", "My Holiday", []byte("fake video content"))
	req := httptest.NewRequest("POST", "/media/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp service.UploadResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.UploadID)
	assert.Equal(t, "my-holiday", resp.Slug)
	assert.Equal(t, "/media/upload/"+resp.UploadID+"/progress", resp.ProgressURL)

	// The job row and staged file both exist.
	id, err := models.ParseULID(resp.UploadID)
	require.NoError(t, err)
	job, err := f.repos.UploadJobs.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, models.StageUploaded, job.Stage)
	assert.Equal(t, models.JobStatusProcessing, job.Status)

	_, err = f.store.SourcePath(resp.UploadID)
	assert.NoError(t, err)
}

func TestUploadMedia_ValidationFailures(t *testing.T) {
	f := newUploadFixture(t)

	post := func(t *testing.T, filename string, content []byte) *httptest.ResponseRecorder {
		t.Helper()
		body, contentType := multipartUpload(t, filename, "", content)
		req := httptest.NewRequest("POST", "/media/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("too large", func(t *testing.T) {
		rec := post(t, "big.mp4", bytes.Repeat([]byte("x"), testMaxUploadSize+1))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "exceeds")
	})

	t.Run("unsupported format", func(t *testing.T) {
		rec := post(t, "notes.txt", []byte("plain text"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unsupported")
	})

	t.Run("empty file", func(t *testing.T) {
		rec := post(t, "empty.mp4", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "empty")
	})

	t.Run("no file part", func(t *testing.T) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		require.NoError(t, writer.WriteField("title", "No File"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest("POST", "/media/upload", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejected uploads leave no job rows", func(t *testing.T) {
		jobs, err := f.repos.UploadJobs.GetByStatus(context.Background(), models.JobStatusProcessing)
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})
}

// countingReader tracks how many bytes the server pulls from a request body.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func TestUploadMedia_OversizedBodyNotConsumed(t *testing.T) {
	f := newUploadFixture(t)

	body, contentType := multipartUpload(t, "huge.mp4", "", bytes.Repeat([]byte("x"), 5<<20))
	bodyLen := int64(body.Len())

	t.Run("declared length rejected before reading", func(t *testing.T) {
		cr := &countingReader{r: bytes.NewReader(body.Bytes())}
		req := httptest.NewRequest("POST", "/media/upload", cr)
		req.Header.Set("Content-Type", contentType)
		req.ContentLength = bodyLen
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "maximum upload size")
		assert.Zero(t, cr.n, "body must not be read when the declared length is over the limit")
	})

	t.Run("undeclared length capped mid-stream", func(t *testing.T) {
		cr := &countingReader{r: bytes.NewReader(body.Bytes())}
		req := httptest.NewRequest("POST", "/media/upload", cr)
		req.Header.Set("Content-Type", contentType)
		req.ContentLength = -1
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)
		assert.Less(t, cr.n, bodyLen, "reading must stop at the cap, not drain the body")
	})

	t.Run("no job rows created", func(t *testing.T) {
		jobs, err := f.repos.UploadJobs.GetByStatus(context.Background(), models.JobStatusProcessing)
		require.NoError(t, err)
		assert.Empty(t, jobs)

		ids, err := f.store.ListTempIDs()
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestGetProgress(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	job := &models.UploadJob{
		Slug:   "progress-job",
		Title:  "Progress Job",
		Stage:  models.TranscodingStage("720p"),
		Status: models.JobStatusProcessing,
	}
	require.NoError(t, f.repos.UploadJobs.Create(ctx, job))
	job.MarkStage(models.TranscodingStage("720p"), 66)
	require.NoError(t, f.repos.UploadJobs.Update(ctx, job))

	t.Run("known job", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/media/upload/"+job.ID.String()+"/progress", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp handlers.ProgressResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, job.ID.String(), resp.UploadID)
		assert.Equal(t, "transcoding:720p", resp.Stage)
		assert.Equal(t, 66, resp.Progress)
		assert.Equal(t, "processing", resp.Status)
		assert.Empty(t, resp.LastError)
	})

	t.Run("unknown job", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/media/upload/"+models.NewULID().String()+"/progress", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/media/upload/not-a-ulid/progress", nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCancelUpload(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	job := &models.UploadJob{
		Slug:   "cancel-me",
		Title:  "Cancel Me",
		Stage:  models.StageUploaded,
		Status: models.JobStatusProcessing,
	}
	require.NoError(t, f.repos.UploadJobs.Create(ctx, job))

	t.Run("cancels queued job", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/media/upload/"+job.ID.String(), nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		cancelled, err := f.repos.UploadJobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusFailed, cancelled.Status)
		assert.Equal(t, "cancelled", cancelled.LastError)
	})

	t.Run("unknown job", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/media/upload/"+models.NewULID().String(), nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
