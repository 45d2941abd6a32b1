package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchLocal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "scene.zip")
	if err := os.WriteFile(archive, []byte("zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewFetcher(FetchOptions{})

	for _, locator := range []string{archive, "file://" + filepath.ToSlash(archive)} {
		got, err := f.Fetch(context.Background(), locator, dir)
		if err != nil {
			t.Fatalf("%s: %v", locator, err)
		}
		if got != archive {
			t.Errorf("got %s, want %s", got, archive)
		}
	}

	if _, err := f.Fetch(context.Background(), filepath.Join(dir, "missing.zip"), dir); !errors.Is(err, ErrUnreachable) {
		t.Errorf("got %v, want ErrUnreachable", err)
	}
	if _, err := f.Fetch(context.Background(), "gs://bucket/scene.zip", dir); !errors.Is(err, ErrUnreachable) {
		t.Errorf("got %v, want ErrUnreachable without a GCS client", err)
	}
}

func TestFetchHTTPWithClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"secret-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/scenes/S2A_T37MBU.zip", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("scene-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	f := NewFetcher(FetchOptions{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL + "/token"})
	got, err := f.Fetch(context.Background(), srv.URL+"/scenes/S2A_T37MBU.zip", dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "S2A_T37MBU.zip") {
		t.Errorf("got %s", got)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "scene-bytes" {
		t.Errorf("got %q", data)
	}

	plain := NewFetcher(FetchOptions{})
	if _, err := plain.Fetch(context.Background(), srv.URL+"/scenes/S2A_T37MBU.zip", dir); !errors.Is(err, ErrUnreachable) {
		t.Errorf("got %v, want ErrUnreachable for an unauthorised request", err)
	}
}

func TestJobID(t *testing.T) {
	tests := map[string]string{
		"https://storage.googleapis.com/bucket/raw/abc123.zip": "abc123",
		"/data/uploads/test_mock.zip":                         "test_mock",
		"gs://bucket/S2A_MSIL1C.SAFE.zip":                     "S2A_MSIL1C",
	}
	for in, want := range tests {
		if got := JobID(in); got != want {
			t.Errorf("JobID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLocalPublisher(t *testing.T) {
	src := filepath.Join(t.TempDir(), "prediction.tif")
	if err := os.WriteFile(src, []byte("tif"), 0o644); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	got, err := LocalPublisher{Dir: dir}.Publish(context.Background(), src, "job_pred.tif")
	if err != nil {
		t.Fatal(err)
	}
	want := "file://" + filepath.ToSlash(filepath.Join(dir, "job_pred.tif"))
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "job_pred.tif")); err != nil {
		t.Error(err)
	}
}
