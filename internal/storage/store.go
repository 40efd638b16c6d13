package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/vodarr/vodarr/internal/config"
)

// sourceBasename is the staged upload filename inside a job's temp dir.
const sourceBasename = "source"

// outputDirname holds pipeline outputs inside a job's temp dir until finalize.
const outputDirname = "out"

// MediaStore manages upload staging and published media on disk.
//
// Layout under the media root:
//
//	temp/{upload_id}/source.{ext}   staged upload
//	temp/{upload_id}/out/...        pipeline outputs before finalize
//	final/{slug}/...                published assets
type MediaStore struct {
	sandbox  *Sandbox
	tempDir  string
	finalDir string
}

// NewMediaStore creates a MediaStore rooted at the configured media directory.
func NewMediaStore(cfg config.StorageConfig) (*MediaStore, error) {
	sandbox, err := NewSandbox(cfg.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("creating media sandbox: %w", err)
	}

	store := &MediaStore{
		sandbox:  sandbox,
		tempDir:  cfg.TempDir,
		finalDir: cfg.FinalDir,
	}

	if err := sandbox.MkdirAll(store.tempDir); err != nil {
		return nil, err
	}
	if err := sandbox.MkdirAll(store.finalDir); err != nil {
		return nil, err
	}

	return store, nil
}

// StageUpload streams an upload into the job's temp directory.
// The extension is taken from the client filename so probing sees a
// recognizable container. Returns the absolute staged path and bytes written.
func (s *MediaStore) StageUpload(uploadID, ext string, r io.Reader) (string, int64, error) {
	rel := path.Join(s.tempDir, uploadID, sourceBasename+ext)
	written, err := s.sandbox.AtomicWriteReader(rel, r)
	if err != nil {
		return "", 0, fmt.Errorf("staging upload %s: %w", uploadID, err)
	}

	abs, err := s.sandbox.ResolvePath(rel)
	if err != nil {
		return "", 0, err
	}
	return abs, written, nil
}

// SourcePath returns the absolute path of the staged source file.
// Returns an error if no source file has been staged.
func (s *MediaStore) SourcePath(uploadID string) (string, error) {
	entries, err := s.sandbox.List(path.Join(s.tempDir, uploadID))
	if err != nil {
		return "", fmt.Errorf("listing temp dir for %s: %w", uploadID, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == sourceBasename || len(name) > len(sourceBasename) && name[:len(sourceBasename)+1] == sourceBasename+"." {
			return s.sandbox.ResolvePath(path.Join(s.tempDir, uploadID, name))
		}
	}
	return "", fmt.Errorf("no staged source for upload %s", uploadID)
}

// OutputDir returns the absolute output directory for the job, creating it
// if needed. All pipeline outputs are written here until finalize.
func (s *MediaStore) OutputDir(uploadID string) (string, error) {
	rel := path.Join(s.tempDir, uploadID, outputDirname)
	if err := s.sandbox.MkdirAll(rel); err != nil {
		return "", err
	}
	return s.sandbox.ResolvePath(rel)
}

// Finalize publishes the job's output directory as final/{slug}.
// The publish is a single directory rename, so a partially populated final
// directory is never observable. Falls back to copy-then-rename when the
// rename crosses filesystems.
func (s *MediaStore) Finalize(uploadID, slug string) error {
	finalRel := path.Join(s.finalDir, slug)
	outRel := path.Join(s.tempDir, uploadID, outputDirname)

	finalExists, err := s.sandbox.Exists(finalRel)
	if err != nil {
		return err
	}
	if finalExists {
		outExists, err := s.sandbox.Exists(outRel)
		if err != nil {
			return err
		}
		if !outExists {
			// A previous attempt already published this job.
			return nil
		}
		return fmt.Errorf("final directory already exists for slug %s", slug)
	}

	outAbs, err := s.sandbox.ResolvePath(outRel)
	if err != nil {
		return err
	}
	finalAbs, err := s.sandbox.ResolvePath(finalRel)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(finalAbs), 0750); err != nil {
		return fmt.Errorf("creating final parent directory: %w", err)
	}

	if err := os.Rename(outAbs, finalAbs); err == nil {
		return nil
	}

	// Cross-filesystem fallback: copy into a hidden sibling, then rename.
	stagingRel := path.Join(s.finalDir, fmt.Sprintf(".%s.%s.tmp", slug, randomHex(8)))
	stagingAbs, err := s.sandbox.ResolvePath(stagingRel)
	if err != nil {
		return err
	}

	if err := copyTree(outAbs, stagingAbs); err != nil {
		os.RemoveAll(stagingAbs)
		return fmt.Errorf("copying outputs for %s: %w", uploadID, err)
	}
	if err := os.Rename(stagingAbs, finalAbs); err != nil {
		os.RemoveAll(stagingAbs)
		return fmt.Errorf("publishing %s: %w", slug, err)
	}
	return nil
}

// DeleteTemp removes the job's entire temp directory. Idempotent.
func (s *MediaStore) DeleteTemp(uploadID string) error {
	return s.sandbox.RemoveAll(path.Join(s.tempDir, uploadID))
}

// DeleteFinal removes the published directory for a slug. Idempotent.
func (s *MediaStore) DeleteFinal(slug string) error {
	return s.sandbox.RemoveAll(path.Join(s.finalDir, slug))
}

// FinalDir returns the absolute published directory for a slug.
func (s *MediaStore) FinalDir(slug string) (string, error) {
	return s.sandbox.ResolvePath(path.Join(s.finalDir, slug))
}

// FinalRoot returns the absolute root of published media, for file serving.
func (s *MediaStore) FinalRoot() (string, error) {
	return s.sandbox.ResolvePath(s.finalDir)
}

// ListTempIDs returns the upload IDs with temp directories on disk.
func (s *MediaStore) ListTempIDs() ([]string, error) {
	entries, err := s.sandbox.List(s.tempDir)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}

// copyTree recursively copies a directory tree.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0750)
		}

		in, err := os.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	})
}
