package manifest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	doc := `{"videos": [
		{"address": "/clips/a.mp4", "title": "Waves"},
		{"address": "/clips/b.mp4"},
		{"title": "no address"}
	]}`
	entries, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (address-less dropped)", len(entries))
	}
	if entries[0].Address != "/clips/a.mp4" || entries[0].Title != "Waves" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
}

func TestParse_missingVideosField(t *testing.T) {
	entries, err := Parse(strings.NewReader(`{"name": "library"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want empty library", len(entries))
	}
}

func TestParse_nonArrayVideosField(t *testing.T) {
	entries, err := Parse(strings.NewReader(`{"videos": "oops"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want empty library", len(entries))
	}
}

func TestParse_malformedDocument(t *testing.T) {
	if _, err := Parse(strings.NewReader(`{not json`)); err == nil {
		t.Fatal("expected an error for a malformed document")
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"videos": [{"address": "/a.mp4"}]}`))
	}))
	defer srv.Close()

	entries, err := Fetch(context.Background(), srv.Client(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 1 || entries[0].Address != "/a.mp4" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestFetch_non200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.Client(), srv.URL); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestFetch_unreachableIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	if _, err := Fetch(context.Background(), http.DefaultClient, srv.URL); err == nil {
		t.Fatal("expected an error for an unreachable manifest")
	}
}
