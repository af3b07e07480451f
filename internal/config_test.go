package internal_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hbomb79/Mediagate/internal"
	"github.com/labstack/gommon/bytes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	var config internal.MediagateConfig
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "0.0.0.0:3000", config.RestConfig.Address())
	assert.Equal(t, "256KiB", config.RestConfig.BodyLimit)
	assert.Equal(t, "yt-dlp", config.YtDlp.BinPath)
	assert.Equal(t, 45*time.Second, config.YtDlp.MetadataTimeout)
	assert.Equal(t, 30*time.Second, config.YtDlp.ResolveTimeout)
	assert.Equal(t, 120*time.Second, config.YtDlp.DownloadTimeout)
	assert.EqualValues(t, 10*1024*1024, config.MaxOutputBytes())
	assert.Equal(t, 25, config.Delivery.MaxVideos)
	assert.Equal(t, 20, config.Delivery.MaxArchiveImages)
	assert.Equal(t, 30*time.Second, config.Fetch.Timeout)
	assert.Equal(t, "info", config.LogLevel)
}

func TestLoadFromEnv_DefaultSizesAreBinary(t *testing.T) {
	var config internal.MediagateConfig
	require.NoError(t, config.LoadFromEnv())

	for expected, value := range map[int64]string{
		256 * 1024:       config.RestConfig.BodyLimit,
		10 * 1024 * 1024: config.YtDlp.MaxOutput,
		25 * 1024 * 1024: config.Delivery.MaxImageSize,
	} {
		size, err := bytes.Parse(value)
		require.NoError(t, err)
		assert.Equal(t, expected, size, "size %q", value)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("YTDLP_DOWNLOAD_TIMEOUT", "5m")
	t.Setenv("MEDIA_MAX_VIDEOS", "3")
	t.Setenv("COOKIES_B64", "IyBOZXRzY2FwZSBIVFRQIENvb2tpZSBGaWxl")

	var config internal.MediagateConfig
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "0.0.0.0:8081", config.RestConfig.Address())
	assert.Equal(t, 5*time.Minute, config.YtDlp.DownloadTimeout)
	assert.Equal(t, 3, config.Delivery.MaxVideos)
	assert.Equal(t, "IyBOZXRzY2FwZSBIVFRQIENvb2tpZSBGaWxl", config.Cookies.Base64)
}

func TestLoadFromEnv_Rejects(t *testing.T) {
	tests := []struct {
		summary string
		key     string
		value   string
	}{
		{"zero video cap", "MEDIA_MAX_VIDEOS", "0"},
		{"zero archive cap", "ZIP_MAX_IMAGES", "0"},
		{"unparseable output cap", "YTDLP_MAX_OUTPUT", "plenty"},
		{"unparseable image cap", "IMAGE_MAX_BYTES", "big"},
		{"unparseable body limit", "REQUEST_BODY_LIMIT", "huge"},
		{"unknown log level", "LOG_LEVEL", "loud"},
	}

	for _, test := range tests {
		t.Run(test.summary, func(t *testing.T) {
			t.Setenv(test.key, test.value)

			var config internal.MediagateConfig
			assert.Error(t, config.LoadFromEnv())
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediagate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: "9000"
ytdlp:
  bin_path: /opt/yt-dlp
delivery:
  max_archive_images: 5
log_level: debug
`), 0o644))

	var config internal.MediagateConfig
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, "0.0.0.0:9000", config.RestConfig.Address())
	assert.Equal(t, "/opt/yt-dlp", config.YtDlp.BinPath)
	assert.Equal(t, 5, config.Delivery.MaxArchiveImages)
	assert.Equal(t, 25, config.Delivery.MaxVideos)
	assert.Equal(t, "debug", config.LogLevel)
}

func TestLoadFromFile_Missing(t *testing.T) {
	var config internal.MediagateConfig
	assert.Error(t, config.LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")))
}
