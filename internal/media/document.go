package media

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

type (
	// Document is the media tree produced by yt-dlp when asked to dump
	// JSON for a page. Its shape varies per extractor (single media,
	// playlists, galleries, ...), so the tree is kept in its dynamic form:
	// objects are map[string]any, sequences are []any and everything else
	// is a leaf.
	Document struct {
		root any
	}

	// Summary holds the few top-level fields of a Document which are
	// surfaced to API callers. Any of them may be absent.
	Summary struct {
		ID         *string `mapstructure:"id"`
		Title      *string `mapstructure:"title"`
		Extractor  *string `mapstructure:"extractor"`
		WebpageURL *string `mapstructure:"webpage_url"`
	}
)

var summaryFields = []string{"id", "title", "extractor", "webpage_url"}

// ParseDocument decodes the JSON output of yt-dlp in to a Document.
func ParseDocument(data []byte) (*Document, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("media document is not valid JSON: %w", err)
	}

	return &Document{root: root}, nil
}

// NewDocument wraps an already decoded tree.
func NewDocument(root any) *Document {
	return &Document{root: root}
}

func (doc *Document) Root() any { return doc.root }

// Summary extracts the well-known top-level fields of the document. Fields
// which are missing, or not strings, are left nil.
func (doc *Document) Summary() Summary {
	var summary Summary
	obj, ok := doc.root.(map[string]any)
	if !ok {
		return summary
	}

	// Only string values are considered, a null or numeric title is
	// treated the same as a missing one.
	fields := make(map[string]any, len(summaryFields))
	for _, key := range summaryFields {
		if v, isString := obj[key].(string); isString {
			fields[key] = v
		}
	}

	if err := mapstructure.Decode(fields, &summary); err != nil {
		log.Warnf("Failed to decode media document summary: %v\n", err)
		return Summary{}
	}

	return summary
}
