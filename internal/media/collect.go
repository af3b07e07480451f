package media

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hbomb79/Mediagate/pkg/logger"
)

var (
	log = logger.Get("Media")

	imageURLMatcher = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)(\?|$)`)
)

// MediaSet holds the distinct image and video URLs harvested from a
// Document. Each slice is ordered by first discovery.
type MediaSet struct {
	Images []string
	Videos []string
}

// orderedSet is an insertion ordered set of strings.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: []string{}}
}

func (set *orderedSet) add(item string) {
	if _, ok := set.seen[item]; ok {
		return
	}

	set.seen[item] = struct{}{}
	set.items = append(set.items, item)
}

// IsImageURL reports whether the URL looks like it points at an image file
// (.jpg, .jpeg, .png or .webp, optionally followed by a query string).
func IsImageURL(url string) bool {
	return imageURLMatcher.MatchString(url)
}

// Collect walks the media tree depth-first and harvests every image and
// video URL it can find, irrespective of how the extractor nested them.
//
// At every object node:
//   - each string 'url' in the 'formats' sequence is a video
//   - each string 'url' in the 'thumbnails' sequence is an image
//   - a string 'url' on the node itself is an image if it has an image extension
//   - every child in the 'entries' sequence is walked
//
// after which every other field of the node is walked (in key order) to catch
// extractor specific nesting. The full sets are returned; truncation is left
// to the caller.
func Collect(doc *Document) MediaSet {
	images, videos := newOrderedSet(), newOrderedSet()
	walk(doc.root, images, videos)

	return MediaSet{Images: images.items, Videos: videos.items}
}

func walk(node any, images *orderedSet, videos *orderedSet) {
	switch v := node.(type) {
	case []any:
		for _, child := range v {
			walk(child, images, videos)
		}
	case map[string]any:
		walkObject(v, images, videos)
	}
}

func walkObject(obj map[string]any, images *orderedSet, videos *orderedSet) {
	for _, url := range urlsOf(obj["formats"]) {
		videos.add(url)
	}
	for _, url := range urlsOf(obj["thumbnails"]) {
		images.add(url)
	}
	if url, ok := obj["url"].(string); ok && IsImageURL(url) {
		images.add(url)
	}
	if entries, ok := obj["entries"].([]any); ok {
		for _, entry := range entries {
			walk(entry, images, videos)
		}
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		if key == "entries" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		walk(obj[key], images, videos)
	}
}

// urlsOf returns the string 'url' field of every object inside the
// sequence provided. Elements without one are ignored, as is a
// value which is not a sequence.
func urlsOf(node any) []string {
	seq, ok := node.([]any)
	if !ok {
		return nil
	}

	urls := make([]string, 0, len(seq))
	for _, elem := range seq {
		obj, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		if url, ok := obj["url"].(string); ok {
			urls = append(urls, url)
		}
	}

	return urls
}

// GuessImageExtension picks a file extension for an image based purely
// on the URL: png and webp are recognised, anything else is assumed jpg.
func GuessImageExtension(url string) string {
	switch {
	case strings.Contains(url, ".png"):
		return "png"
	case strings.Contains(url, ".webp"):
		return "webp"
	default:
		return "jpg"
	}
}

// ExtensionForContentType maps an upstream Content-Type to the file
// extension used when serving it as an attachment.
func ExtensionForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "jpeg"):
		return "jpg"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return "img"
	}
}
