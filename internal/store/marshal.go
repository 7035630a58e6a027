package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/patchlib/internal/library"
)

// marshalTags converts a tag set to a JSON array TEXT for storage.
// Tags are normalised first so equal sets always serialise identically.
func marshalTags(tags []string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(library.NormalizeTags(tags)); err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalTags parses a JSON array TEXT into a normalised tag set.
func unmarshalTags(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return library.NormalizeTags(tags), nil
}
