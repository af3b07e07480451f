package delivery_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hbomb79/Mediagate/internal/delivery"
	"github.com/hbomb79/Mediagate/internal/http/fetch"
	"github.com/hbomb79/Mediagate/internal/media"
	"github.com/hbomb79/Mediagate/internal/ytdlp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	tempDir   = "/tmp/mediagate-test"
	postURL   = "https://x.com/someone/status/1"
	directURL = "https://video.twimg.com/direct.mp4"
)

var errTool = &ytdlp.ToolError{Kind: ytdlp.ExitStatus, Err: errors.New("exit status 1")}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ExtractMetadata(ctx context.Context, url media.ValidatedURL, cookies *ytdlp.CookieContext) (*media.Document, error) {
	args := m.Called(url.String(), cookies)
	doc, _ := args.Get(0).(*media.Document)
	return doc, args.Error(1)
}

func (m *mockResolver) ResolveDirectURL(ctx context.Context, url media.ValidatedURL, cookies *ytdlp.CookieContext) (string, error) {
	args := m.Called(url.String(), cookies)
	return args.String(0), args.Error(1)
}

func (m *mockResolver) Download(ctx context.Context, url media.ValidatedURL, outputPath string, cookies *ytdlp.CookieContext) error {
	args := m.Called(url.String(), outputPath, cookies)
	return args.Error(0)
}

type harness struct {
	service  *delivery.Service
	resolver *mockResolver
	fs       afero.Fs
}

// newHarness constructs a delivery service backed by an in-memory filesystem
// and inline cookies, so every request materializes a temporary cookie file
// which must be cleaned up.
func newHarness(t *testing.T, config delivery.Config) *harness {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(tempDir, 0o755))

	if config.MaxVideos == 0 {
		config.MaxVideos = 25
	}
	if config.MaxArchiveImages == 0 {
		config.MaxArchiveImages = 20
	}
	if config.MaxImageSize == "" {
		config.MaxImageSize = "1MB"
	}
	config.TempDir = tempDir

	resolver := &mockResolver{}
	provisioner := ytdlp.NewProvisioner(ytdlp.CookieConfig{Data: "# Netscape HTTP Cookie File\n"}, fs, tempDir)
	fetcher := fetch.NewClient(fetch.Config{Timeout: 5 * time.Second})

	service, err := delivery.New(config, resolver, provisioner, fetcher, fs)
	require.NoError(t, err)

	t.Cleanup(func() { resolver.AssertExpectations(t) })
	return &harness{service: service, resolver: resolver, fs: fs}
}

// assertTempAreaEmpty ensures no cookie file or download artifact
// outlived the request.
func (h *harness) assertTempAreaEmpty(t *testing.T) {
	entries, err := afero.ReadDir(h.fs, tempDir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Empty(t, names, "temporary resources must be removed once the request completes")
}

func cookiesWithFile(t *testing.T) any {
	return mock.MatchedBy(func(cookies *ytdlp.CookieContext) bool {
		return cookies != nil && cookies.Path() != "" && len(cookies.Args) == 2
	})
}

func document(t *testing.T, raw string) *media.Document {
	doc, err := media.ParseDocument([]byte(raw))
	require.NoError(t, err)
	return doc
}

func TestInfo(t *testing.T) {
	t.Parallel()
	h := newHarness(t, delivery.Config{})
	h.resolver.On("ExtractMetadata", postURL, cookiesWithFile(t)).Return(document(t, `{"title": "Post", "extractor": "twitter"}`), nil).Once()
	h.resolver.On("ResolveDirectURL", postURL, cookiesWithFile(t)).Return(directURL, nil).Once()

	result, err := h.service.Info(context.Background(), "  "+postURL+" ")
	require.NoError(t, err)
	require.NotNil(t, result.Title)
	require.NotNil(t, result.Site)
	assert.Equal(t, "Post", *result.Title)
	assert.Equal(t, "twitter", *result.Site)
	assert.Equal(t, directURL, result.Download)
	h.assertTempAreaEmpty(t)
}

func TestInfo_ToolFailureStillReleasesCookies(t *testing.T) {
	t.Parallel()
	h := newHarness(t, delivery.Config{})
	h.resolver.On("ExtractMetadata", postURL, mock.Anything).Return(nil, errTool).Once()

	_, err := h.service.Info(context.Background(), postURL)
	assert.ErrorIs(t, err, errTool)
	h.assertTempAreaEmpty(t)
}

func TestInvalidURLsNeverReachTheTool(t *testing.T) {
	t.Parallel()
	h := newHarness(t, delivery.Config{})

	for _, raw := range []any{nil, 12, "", "   ", "ftp://x", "https://" + strings.Repeat("a", 2001)} {
		var validationErr *delivery.ValidationError

		_, err := h.service.Info(context.Background(), raw)
		assert.True(t, errors.As(err, &validationErr), "Info(%v)", raw)

		_, err = h.service.Media(context.Background(), raw)
		assert.True(t, errors.As(err, &validationErr), "Media(%v)", raw)

		_, err = h.service.Redirect(context.Background(), raw)
		assert.True(t, errors.As(err, &validationErr), "Redirect(%v)", raw)

		rec := httptest.NewRecorder()
		err = h.service.ServeDownload(rec, httptest.NewRequest(http.MethodGet, "/download", nil), raw)
		assert.True(t, errors.As(err, &validationErr), "ServeDownload(%v)", raw)

		err = h.service.ServeImageArchive(rec, httptest.NewRequest(http.MethodGet, "/x-images", nil), raw)
		assert.True(t, errors.As(err, &validationErr), "ServeImageArchive(%v)", raw)

		err = h.service.ServeImage(rec, httptest.NewRequest(http.MethodGet, "/image", nil), raw)
		assert.True(t, errors.As(err, &validationErr), "ServeImage(%v)", raw)

		assert.False(t, rec.Flushed)
		assert.Zero(t, rec.Body.Len())
	}

	h.assertTempAreaEmpty(t)
}

func TestMedia_TruncatesVideos(t *testing.T) {
	t.Parallel()
	formats := make([]any, 30)
	for i := range formats {
		formats[i] = map[string]any{"url": fmt.Sprintf("https://cdn.example/%d.mp4", i)}
	}
	doc := media.NewDocument(map[string]any{
		"title":      "Clip",
		"formats":    formats,
		"thumbnails": []any{map[string]any{"url": "https://img.example/thumb.jpg"}},
	})

	h := newHarness(t, delivery.Config{})
	h.resolver.On("ExtractMetadata", postURL, cookiesWithFile(t)).Return(doc, nil).Once()

	result, err := h.service.Media(context.Background(), postURL)
	require.NoError(t, err)
	assert.Len(t, result.Videos, 25)
	assert.Equal(t, "https://cdn.example/0.mp4", result.Videos[0])
	assert.Equal(t, "https://cdn.example/24.mp4", result.Videos[24])
	assert.Equal(t, []string{"https://img.example/thumb.jpg"}, result.Images)
	require.NotNil(t, result.Title)
	assert.Equal(t, "Clip", *result.Title)
	assert.Nil(t, result.Extractor)
	h.assertTempAreaEmpty(t)
}

func TestMedia_ConfigurableVideoCap(t *testing.T) {
	t.Parallel()
	h := newHarness(t, delivery.Config{MaxVideos: 2})
	h.resolver.On("ExtractMetadata", postURL, mock.Anything).Return(document(t, `{"formats": [{"url": "a"}, {"url": "b"}, {"url": "c"}]}`), nil).Once()

	result, err := h.service.Media(context.Background(), postURL)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.Videos)
	assert.NotNil(t, result.Images)
	assert.Empty(t, result.Images)
}

func TestRedirect(t *testing.T) {
	t.Parallel()
	h := newHarness(t, delivery.Config{})
	h.resolver.On("ResolveDirectURL", postURL, cookiesWithFile(t)).Return(directURL, nil).Once()

	direct, err := h.service.Redirect(context.Background(), postURL)
	require.NoError(t, err)
	assert.Equal(t, directURL, direct)
	h.assertTempAreaEmpty(t)
}

func TestRedirect_ResolutionFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t, delivery.Config{})
	h.resolver.On("ResolveDirectURL", postURL, mock.Anything).Return("", errTool).Once()

	_, err := h.service.Redirect(context.Background(), postURL)
	var toolErr *ytdlp.ToolError
	assert.True(t, errors.As(err, &toolErr))
	h.assertTempAreaEmpty(t)
}

func TestNew_RejectsInvalidImageSize(t *testing.T) {
	t.Parallel()
	_, err := delivery.New(delivery.Config{MaxImageSize: "lots"}, &mockResolver{}, nil, nil, afero.NewMemMapFs())
	assert.Error(t, err)
}
