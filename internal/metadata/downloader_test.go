package metadata

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newManifestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/index.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"versions": ["0.17.3", "0.18.1", "0.18.0", "0.19.0"]}`))
	})
	mux.HandleFunc("/0.18.1/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testManifest))
	})
	mux.HandleFunc("/0.19.0/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"engine": "manim"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestDownloadManifestPicksNewestMatching(t *testing.T) {
	server := newManifestServer(t)
	target := filepath.Join(t.TempDir(), "catalog", "manifest.json")

	selected, err := DownloadManifest(server.Client(), server.URL+"/", "~> 0.18.0", target)
	if err != nil {
		t.Fatalf("DownloadManifest failed: %v", err)
	}
	if selected != "0.18.1" {
		t.Errorf("Expected 0.18.1, got %s", selected)
	}

	if _, err := NewReader(target); err != nil {
		t.Errorf("Stored manifest is not readable: %v", err)
	}
}

func TestDownloadManifestRejectsInvalidManifest(t *testing.T) {
	server := newManifestServer(t)
	target := filepath.Join(t.TempDir(), "manifest.json")

	if _, err := DownloadManifest(server.Client(), server.URL, "", target); err == nil {
		t.Fatal("Expected manifest without root to be rejected")
	}
	if _, err := os.Stat(target); !errors.Is(err, os.ErrNotExist) {
		t.Error("Invalid manifest must not be stored")
	}
}

func TestDownloadManifestNoMatchingVersion(t *testing.T) {
	server := newManifestServer(t)

	_, err := DownloadManifest(server.Client(), server.URL, ">= 1.0", filepath.Join(t.TempDir(), "m.json"))
	if !errors.Is(err, ErrNoManifestVersion) {
		t.Errorf("Expected ErrNoManifestVersion, got %v", err)
	}
}
