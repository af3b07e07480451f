package delivery

import (
	"fmt"
	"io"
	"net/http"

	"github.com/hbomb79/Mediagate/internal/media"
)

// ServeImage proxies a single remote image to the caller as an attachment.
// Unlike the archive flow, an upstream failure is fatal here and is
// returned to the caller (as a *fetch.UpstreamError where the upstream
// responded with a non-success status).
func (service *Service) ServeImage(w http.ResponseWriter, r *http.Request, rawURL any) error {
	url, ok := media.Sanitize(rawURL)
	if !ok {
		return &ValidationError{Value: rawURL}
	}

	resp, err := service.fetcher.Fetch(r.Context(), url.String())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.ContentType)
	w.Header().Set("Content-Disposition", attachment(fmt.Sprintf("image.%s", media.ExtensionForContentType(resp.ContentType))))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to proxy image %s: %w", url, err)
	}

	return nil
}
