package ytdlp

import (
	"context"
	"strings"
	"time"

	"github.com/hbomb79/Mediagate/internal/media"
)

// formatSelector asks for the best video+audio pair, falling back to the
// best single file which contains both.
const formatSelector = "bv*+ba/b"

// Config controls how the yt-dlp binary is invoked.
type Config struct {
	BinPath         string        `yaml:"bin_path" env:"YTDLP_BIN_PATH" env-default:"yt-dlp" validate:"required"`
	MetadataTimeout time.Duration `yaml:"metadata_timeout" env:"YTDLP_METADATA_TIMEOUT" env-default:"45s"`
	ResolveTimeout  time.Duration `yaml:"resolve_timeout" env:"YTDLP_RESOLVE_TIMEOUT" env-default:"30s"`
	DownloadTimeout time.Duration `yaml:"download_timeout" env:"YTDLP_DOWNLOAD_TIMEOUT" env-default:"120s"`
	MaxOutput       string        `yaml:"max_output" env:"YTDLP_MAX_OUTPUT" env-default:"10MiB"`
}

// Runner is satisfied by *Invoker.
type Runner interface {
	Run(ctx context.Context, args []string, limits Limits) (string, error)
}

// Client exposes the three ways this service uses yt-dlp: metadata
// extraction, direct URL resolution and full downloads.
type Client struct {
	runner         Runner
	config         Config
	maxOutputBytes int64
}

func NewClient(runner Runner, config Config, maxOutputBytes int64) *Client {
	return &Client{runner: runner, config: config, maxOutputBytes: maxOutputBytes}
}

// ExtractMetadata dumps the JSON media tree for the URL.
func (client *Client) ExtractMetadata(ctx context.Context, url media.ValidatedURL, cookies *CookieContext) (*media.Document, error) {
	args := withCookies(cookies, "-J", "--no-warnings", url.String())
	out, err := client.runner.Run(ctx, args, Limits{Timeout: client.config.MetadataTimeout, MaxOutputBytes: client.maxOutputBytes})
	if err != nil {
		return nil, err
	}

	doc, err := media.ParseDocument([]byte(out))
	if err != nil {
		return nil, &ToolError{Kind: MalformedOutput, Err: err}
	}

	return doc, nil
}

// ResolveDirectURL asks yt-dlp for a URL which streams the media directly.
// When the selected format is split in to separate video and audio streams
// yt-dlp prints one URL per line; the first (video) is returned.
func (client *Client) ResolveDirectURL(ctx context.Context, url media.ValidatedURL, cookies *CookieContext) (string, error) {
	args := withCookies(cookies, "-f", formatSelector, "-g", url.String())
	out, err := client.runner.Run(ctx, args, Limits{Timeout: client.config.ResolveTimeout, MaxOutputBytes: client.maxOutputBytes})
	if err != nil {
		return "", err
	}

	direct, _, _ := strings.Cut(out, "\n")
	direct = strings.TrimSpace(direct)
	if direct == "" {
		return "", &ToolError{Kind: MalformedOutput, Err: errEmptyResolution}
	}

	return direct, nil
}

// Download fetches the media in to outputPath, merging separate streams in
// to a single mp4 container. Tool output is not captured beyond diagnostics,
// so no output cap applies.
func (client *Client) Download(ctx context.Context, url media.ValidatedURL, outputPath string, cookies *CookieContext) error {
	args := withCookies(cookies, "-f", formatSelector, "--merge-output-format", "mp4", "-o", outputPath, url.String())
	_, err := client.runner.Run(ctx, args, Limits{Timeout: client.config.DownloadTimeout})
	return err
}

func withCookies(cookies *CookieContext, args ...string) []string {
	if cookies == nil || len(cookies.Args) == 0 {
		return args
	}

	return append(append(make([]string, 0, len(cookies.Args)+len(args)), cookies.Args...), args...)
}
