package delivery

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hbomb79/Mediagate/pkg/logger"
	"github.com/spf13/afero"
)

const (
	downloadFilename    = "video.mp4"
	downloadContentType = "video/mp4"
)

// DownloadArtifact is the temporary directory, and the single output file
// within it, owned by one download request.
type DownloadArtifact struct {
	Dir  string
	Path string
	fs   afero.Fs
}

func newDownloadArtifact(fs afero.Fs, tempDir string) (*DownloadArtifact, error) {
	dir, err := afero.TempDir(fs, tempDir, "ytdlp-")
	if err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	return &DownloadArtifact{
		Dir:  dir,
		Path: filepath.Join(dir, fmt.Sprintf("video-%s.mp4", uuid.NewString())),
		fs:   fs,
	}, nil
}

// Release removes the output file followed by its directory. Failures are
// logged and never surfaced.
func (artifact *DownloadArtifact) Release() {
	if err := artifact.fs.Remove(artifact.Path); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to remove download artifact %s: %v\n", artifact.Path, err)
	}

	// yt-dlp may leave fragments (.part, .ytdl) behind when it fails
	if err := artifact.fs.RemoveAll(artifact.Dir); err != nil {
		log.Warnf("Failed to remove download directory %s: %v\n", artifact.Dir, err)
	}
}

// ServeDownload downloads the media in full to a temporary artifact and
// streams it to the caller as a 'video.mp4' attachment. The artifact is
// removed after the response has been written (or the download failed),
// and before the cookie context is released.
func (service *Service) ServeDownload(w http.ResponseWriter, r *http.Request, rawURL any) error {
	ctx := r.Context()
	return service.run(rawURL, func(session *Session) error {
		artifact, err := newDownloadArtifact(service.fs, service.config.TempDir)
		if err != nil {
			return err
		}
		defer artifact.Release()

		if err := service.resolver.Download(ctx, session.URL, artifact.Path, session.Cookies); err != nil {
			return err
		}

		file, err := service.fs.Open(artifact.Path)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("download of %s completed without producing an output file", session.URL)
		} else if err != nil {
			return fmt.Errorf("failed to open download artifact: %w", err)
		}
		defer file.Close()

		stat, err := file.Stat()
		if err != nil {
			return fmt.Errorf("failed to stat download artifact: %w", err)
		}

		w.Header().Set("Content-Type", downloadContentType)
		w.Header().Set("Content-Disposition", attachment(downloadFilename))
		http.ServeContent(w, r, downloadFilename, stat.ModTime(), file)
		log.Emit(logger.SUCCESS, "Served download of %s (%d bytes)\n", session.URL, stat.Size())

		return nil
	})
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=\"%s\"", filename)
}
