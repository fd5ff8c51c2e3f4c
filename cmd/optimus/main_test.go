package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOptimizeAndHistoryCommands(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "image/webp")
		w.Write(append([]byte("RIFF"), body...))
	}))
	defer srv.Close()

	dir := t.TempDir()
	in := filepath.Join(dir, "cat.jpg")
	out := filepath.Join(dir, "out", "cat.webp")
	db := filepath.Join(dir, "history.db")
	if err := os.WriteFile(in, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	var stderr bytes.Buffer
	root.SetErr(&stderr)
	root.SetArgs([]string{"optimize", in,
		"--api-key", "abc123",
		"--endpoint", srv.URL,
		"--history", db,
		"--option", "webp",
		"-o", out,
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if gotPath != "/abc123" || gotQuery != "webp" {
		t.Fatalf("request path=%s query=%s", gotPath, gotQuery)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "RIFFjpeg" {
		t.Fatalf("output = %q", data)
	}
	if !strings.Contains(stderr.String(), "4 -> 8 bytes") {
		t.Fatalf("summary = %q", stderr.String())
	}

	history := newRootCmd()
	var stdout bytes.Buffer
	history.SetOut(&stdout)
	history.SetArgs([]string{"history", "--history", db})
	if err := history.Execute(); err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(stdout.String(), "succeeded") || !strings.Contains(stdout.String(), in) {
		t.Fatalf("history output = %q", stdout.String())
	}
}

func TestOptimizeRequiresAPIKey(t *testing.T) {
	t.Setenv("OPTIMUS_API_KEY", "")
	t.Setenv("HISTORY_TYPE", "none")
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	root.SetArgs([]string{"optimize", "whatever.jpg"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestOptimizeSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	in := filepath.Join(dir, "cat.jpg")
	if err := os.WriteFile(in, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	t.Setenv("HISTORY_TYPE", "none")
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	root.SetArgs([]string{"optimize", in, "--api-key", "bad", "--endpoint", srv.URL})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "cat.optimized.jpg")); !os.IsNotExist(statErr) {
		t.Fatalf("no output expected on failure")
	}
}
