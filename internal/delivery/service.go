package delivery

import (
	"context"
	"fmt"
	"os"

	"github.com/hbomb79/Mediagate/internal/http/fetch"
	"github.com/hbomb79/Mediagate/internal/media"
	"github.com/hbomb79/Mediagate/internal/ytdlp"
	"github.com/hbomb79/Mediagate/pkg/logger"
	"github.com/labstack/gommon/bytes"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

var log = logger.Get("Delivery")

type (
	Resolver interface {
		ExtractMetadata(ctx context.Context, url media.ValidatedURL, cookies *ytdlp.CookieContext) (*media.Document, error)
		ResolveDirectURL(ctx context.Context, url media.ValidatedURL, cookies *ytdlp.CookieContext) (string, error)
		Download(ctx context.Context, url media.ValidatedURL, outputPath string, cookies *ytdlp.CookieContext) error
	}

	CookieProvisioner interface {
		Provision() (*ytdlp.CookieContext, error)
	}

	Fetcher interface {
		Fetch(ctx context.Context, url string) (*fetch.Response, error)
	}

	// Config holds the presentation limits applied by the delivery flows.
	// The video and archive caps are intentionally independent.
	Config struct {
		MaxVideos        int    `yaml:"max_videos" env:"MEDIA_MAX_VIDEOS" env-default:"25" validate:"min=1"`
		MaxArchiveImages int    `yaml:"max_archive_images" env:"ZIP_MAX_IMAGES" env-default:"20" validate:"min=1"`
		MaxImageSize     string `yaml:"max_image_size" env:"IMAGE_MAX_BYTES" env-default:"25MiB"`
		TempDir          string `yaml:"temp_dir" env:"TEMP_DIR"`
	}

	// Service implements every request flow as the same linear protocol:
	// Validate -> Resolve -> Deliver -> Cleanup. Cleanup of the cookie
	// context (and any download artifact) happens on every exit path.
	Service struct {
		resolver      Resolver
		provisioner   CookieProvisioner
		fetcher       Fetcher
		fs            afero.Fs
		config        Config
		maxImageBytes int64
	}

	// Session is the state of a single request once its URL has been
	// validated and its cookies provisioned.
	Session struct {
		URL     media.ValidatedURL
		Cookies *ytdlp.CookieContext
	}

	InfoResult struct {
		Title    *string `json:"title"`
		Site     *string `json:"site"`
		Download string  `json:"download"`
	}

	MediaResult struct {
		Title     *string  `json:"title"`
		Extractor *string  `json:"extractor"`
		Images    []string `json:"images"`
		Videos    []string `json:"videos"`
	}
)

func New(config Config, resolver Resolver, provisioner CookieProvisioner, fetcher Fetcher, fs afero.Fs) (*Service, error) {
	maxImageBytes, err := bytes.Parse(config.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("image size limit '%s' is not valid: %w", config.MaxImageSize, err)
	}

	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}

	return &Service{
		resolver:      resolver,
		provisioner:   provisioner,
		fetcher:       fetcher,
		fs:            fs,
		config:        config,
		maxImageBytes: maxImageBytes,
	}, nil
}

// run validates the raw URL, provisions cookies and hands the resulting
// Session to the delivery function. The cookie context is released once
// deliver returns, regardless of the outcome.
func (service *Service) run(rawURL any, deliver func(*Session) error) error {
	url, ok := media.Sanitize(rawURL)
	if !ok {
		return &ValidationError{Value: rawURL}
	}

	cookies, err := service.provisioner.Provision()
	if err != nil {
		return fmt.Errorf("failed to provision cookies: %w", err)
	}
	defer cookies.Release()

	return deliver(&Session{URL: url, Cookies: cookies})
}

// Info extracts the metadata for the URL and resolves a direct download URL.
func (service *Service) Info(ctx context.Context, rawURL any) (*InfoResult, error) {
	var result *InfoResult
	err := service.run(rawURL, func(session *Session) error {
		doc, err := service.resolver.ExtractMetadata(ctx, session.URL, session.Cookies)
		if err != nil {
			return err
		}

		direct, err := service.resolver.ResolveDirectURL(ctx, session.URL, session.Cookies)
		if err != nil {
			return err
		}

		summary := doc.Summary()
		result = &InfoResult{Title: summary.Title, Site: summary.Extractor, Download: direct}
		return nil
	})

	return result, err
}

// Media extracts the metadata for the URL and lists every image and video
// found in it. Videos are capped to the configured maximum.
func (service *Service) Media(ctx context.Context, rawURL any) (*MediaResult, error) {
	var result *MediaResult
	err := service.run(rawURL, func(session *Session) error {
		doc, err := service.resolver.ExtractMetadata(ctx, session.URL, session.Cookies)
		if err != nil {
			return err
		}

		set := media.Collect(doc)
		summary := doc.Summary()
		result = &MediaResult{
			Title:     summary.Title,
			Extractor: summary.Extractor,
			Images:    set.Images,
			Videos:    lo.Slice(set.Videos, 0, service.config.MaxVideos),
		}
		return nil
	})

	return result, err
}

// Redirect resolves the direct media URL to which the caller should be
// redirected.
func (service *Service) Redirect(ctx context.Context, rawURL any) (string, error) {
	var direct string
	err := service.run(rawURL, func(session *Session) error {
		url, err := service.resolver.ResolveDirectURL(ctx, session.URL, session.Cookies)
		direct = url
		return err
	})

	return direct, err
}
