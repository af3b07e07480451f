package delivery

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hbomb79/Mediagate/internal/media"
	"github.com/hbomb79/Mediagate/pkg/logger"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/samber/lo"
)

const (
	archiveFilename = "x-images.zip"
	noImagesReason  = "No images found in this post."
)

// ServeImageArchive extracts the metadata for a post and streams every image
// found in it (up to the configured cap) to the caller as a zip archive.
//
// Images are fetched one at a time, in discovery order, and appended to the
// archive as they arrive. An image which cannot be fetched is skipped. If no
// image qualifies a NotFoundError is returned and nothing is written.
func (service *Service) ServeImageArchive(w http.ResponseWriter, r *http.Request, rawURL any) error {
	ctx := r.Context()
	return service.run(rawURL, func(session *Session) error {
		doc, err := service.resolver.ExtractMetadata(ctx, session.URL, session.Cookies)
		if err != nil {
			return err
		}

		candidates := archiveCandidates(media.Collect(doc).Images, service.config.MaxArchiveImages)
		if len(candidates) == 0 {
			return &NotFoundError{Reason: noImagesReason}
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", attachment(archiveFilename))
		w.WriteHeader(http.StatusOK)

		written, err := service.writeArchive(ctx, w, candidates)
		if err != nil {
			return fmt.Errorf("image archive for %s aborted after %d entries: %w", session.URL, written, err)
		}

		log.Emit(logger.SUCCESS, "Served archive of %d/%d images for %s\n", written, len(candidates), session.URL)
		return nil
	})
}

// archiveCandidates de-duplicates the image URLs, drops those without an
// image extension and caps the result.
func archiveCandidates(images []string, max int) []string {
	unique := lo.Filter(lo.Uniq(images), func(url string, _ int) bool {
		return media.IsImageURL(url)
	})

	return lo.Slice(unique, 0, max)
}

// writeArchive streams a zip archive containing the images at the URLs
// provided to out. Entries are named 'image-<n>.<ext>' where n counts
// only the images successfully added. The archive is finalized once every
// URL has been attempted; the number of entries written is returned.
func (service *Service) writeArchive(ctx context.Context, out io.Writer, urls []string) (int, error) {
	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	written := 0
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		data, err := service.fetchImage(ctx, url)
		if err != nil {
			log.Warnf("Skipping archive image %s: %v\n", url, err)
			continue
		}

		entry, err := zw.Create(fmt.Sprintf("image-%d.%s", written+1, media.GuessImageExtension(url)))
		if err != nil {
			return written, err
		}
		if _, err := entry.Write(data); err != nil {
			return written, err
		}

		written++
	}

	return written, zw.Close()
}

// fetchImage reads an entire image in to memory so that a failure part way
// through the upstream body does not leave a truncated entry in the archive.
func (service *Service) fetchImage(ctx context.Context, url string) ([]byte, error) {
	resp, err := service.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, service.maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if int64(len(data)) > service.maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d byte limit", service.maxImageBytes)
	}

	return data, nil
}
