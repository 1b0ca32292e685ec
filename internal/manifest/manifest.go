// Package manifest loads the clip manifest document: a JSON object with a
// "videos" array of {address, optional title}. A missing or non-array videos
// field yields an empty library; an unreachable or malformed document is an
// error, which callers treat as fatal at startup.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Entry is one clip reference from the manifest.
type Entry struct {
	Address string `json:"address"`
	Title   string `json:"title,omitempty"`
}

type document struct {
	Videos json.RawMessage `json:"videos"`
}

// Fetch retrieves and parses the manifest at url. Any offline-cache layer in
// front of the URL is transparent here; a cache miss is just a network fetch.
func Fetch(ctx context.Context, client *http.Client, url string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("manifest request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch manifest: unexpected status %d", resp.StatusCode)
	}
	return Parse(resp.Body)
}

// Parse decodes a manifest document. Entries without an address are dropped.
func Parse(r io.Reader) ([]Entry, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(doc.Videos) == 0 {
		return nil, nil
	}

	var entries []Entry
	if err := json.Unmarshal(doc.Videos, &entries); err != nil {
		// videos present but not an array of entries: empty library
		return nil, nil
	}

	out := entries[:0]
	for _, e := range entries {
		if e.Address != "" {
			out = append(out, e)
		}
	}
	return out, nil
}
