package ytdlp

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

const cookiesFlag = "--cookies"

// CookieConfig is the process-wide cookie material which may be handed to
// yt-dlp. At most one source is used per request, in the order the fields
// are declared here.
type CookieConfig struct {
	// Path to an existing Netscape formatted cookie file.
	Path string `yaml:"cookies_path" env:"YTDLP_COOKIES_PATH" env-description:"path to an existing cookies.txt"`

	// Raw contents of a cookie file.
	Data string `yaml:"cookies" env:"YTDLP_COOKIES" env-description:"inline cookies.txt contents"`

	// Base64 encoded contents of a cookie file.
	Base64 string `yaml:"cookies_b64" env:"COOKIES_B64" env-description:"base64 encoded cookies.txt contents"`
}

// CookieContext is the result of provisioning cookies for a single
// request: the arguments to append to the yt-dlp invocation, and the
// obligation to Release any temporary file backing them.
type CookieContext struct {
	Args []string

	path    string
	fs      afero.Fs
	release sync.Once
}

// Path returns the temporary cookie file owned by this context, or an empty
// string if no temporary file was created.
func (cookies *CookieContext) Path() string {
	return cookies.path
}

// Release removes the temporary cookie file (if any). It is safe to call
// more than once, and on a nil context. Filesystem errors are logged and
// otherwise ignored.
func (cookies *CookieContext) Release() {
	if cookies == nil || cookies.path == "" {
		return
	}

	cookies.release.Do(func() {
		if err := cookies.fs.Remove(cookies.path); err != nil && !os.IsNotExist(err) {
			log.Warnf("Failed to remove temporary cookie file %s: %v\n", cookies.path, err)
		}
	})
}

// Provisioner materializes the configured cookie material in to a
// CookieContext for each request.
type Provisioner struct {
	config  CookieConfig
	fs      afero.Fs
	tempDir string
}

func NewProvisioner(config CookieConfig, fs afero.Fs, tempDir string) *Provisioner {
	return &Provisioner{config: config, fs: fs, tempDir: tempDir}
}

// Provision returns the CookieContext for a request. The caller MUST
// Release the returned context once the tool is no longer running, on
// every exit path.
//
// Precedence is: cookie file path, inline cookie data, base64 cookie data.
// Inline and base64 material is written to a uniquely named temporary file
// owned by the returned context.
func (provisioner *Provisioner) Provision() (*CookieContext, error) {
	config := provisioner.config
	switch {
	case config.Path != "":
		path, err := homedir.Expand(config.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to expand cookie path %s: %w", config.Path, err)
		}
		if _, err := provisioner.fs.Stat(path); err != nil {
			log.Warnf("Configured cookie file %s could not be read: %v\n", path, err)
		}

		return &CookieContext{Args: []string{cookiesFlag, path}}, nil
	case config.Data != "":
		return provisioner.materialize(config.Data)
	case config.Base64 != "":
		decoded, skipped := decodeBase64Cookies(config.Base64)
		if skipped > 0 {
			log.Warnf("Skipped %d characters outside the base64 alphabet in COOKIES_B64\n", skipped)
		}

		contents := strings.TrimRightFunc(decoded, unicode.IsSpace)
		if contents == "" {
			return &CookieContext{}, nil
		}

		return provisioner.materialize(contents + "\n")
	default:
		return &CookieContext{}, nil
	}
}

// decodeBase64Cookies decodes cookie material leniently: both the standard
// and URL-safe alphabets are accepted, padding is optional, decoding stops
// at the first '=' and any other character outside the alphabet is skipped.
// The returned count is the number of
// characters that were skipped.
func decodeBase64Cookies(encoded string) (string, int) {
	var (
		clean   strings.Builder
		skipped int
	)
	for _, r := range encoded {
		switch {
		case r == '=':
			return decodeRawBase64(clean.String()), skipped
		case r == '-':
			clean.WriteByte('+')
		case r == '_':
			clean.WriteByte('/')
		case r < utf8.RuneSelf && strings.IndexByte(base64Alphabet, byte(r)) >= 0:
			clean.WriteByte(byte(r))
		case !unicode.IsSpace(r):
			skipped++
		}
	}

	return decodeRawBase64(clean.String()), skipped
}

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// decodeRawBase64 decodes unpadded standard base64 made only of alphabet
// characters. A single dangling character carries no complete byte and is
// dropped.
func decodeRawBase64(clean string) string {
	if len(clean)%4 == 1 {
		clean = clean[:len(clean)-1]
	}

	decoded, _ := base64.RawStdEncoding.DecodeString(clean)
	return string(decoded)
}

func (provisioner *Provisioner) materialize(contents string) (*CookieContext, error) {
	name := fmt.Sprintf("ytdlp-cookies-%d-%s.txt", os.Getpid(), uuid.NewString())
	path := filepath.Join(provisioner.tempDir, name)
	if err := afero.WriteFile(provisioner.fs, path, []byte(contents), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temporary cookie file: %w", err)
	}

	log.Debugf("Materialized cookies to %s\n", path)
	return &CookieContext{
		Args: []string{cookiesFlag, path},
		path: path,
		fs:   provisioner.fs,
	}, nil
}
