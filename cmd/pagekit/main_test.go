package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-pagekit/pkg/testsupport"
)

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testsupport.WriteFiles(t, root, map[string]string{
		"site/layout.html":     `<html><body>{{ header }}<main>{{ main }}</main>{{ footer }}</body></html>`,
		"site/pages/home.json": `{"name": "Home", "slug": "index", "widgets": {"a": {"type": "core-image", "settings": {"image": "/img/a.png"}}}, "widgetsOrder": ["a"]}`,
		"site/media.json":      `[{"id": "a", "filename": "a.png", "path": "/img/a.png", "type": "image/png", "usedIn": []}]`,
	})
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderCommandPrintsDocument(t *testing.T) {
	root := writeProject(t)

	out, err := run(t, "--quiet", "--data", root, "render", "site", "home")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `<main><figure class="widget widget-image"`) {
		t.Fatalf("expected rendered main region, got %q", out)
	}
}

func TestRenderCommandWritesFile(t *testing.T) {
	root := writeProject(t)
	target := filepath.Join(t.TempDir(), "out", "index.html")

	if _, err := run(t, "-q", "-d", root, "render", "site", "home", "--mode", "preview", "-o", target); err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "/img/a.png") {
		t.Fatalf("expected image in output, got %q", data)
	}
}

func TestRenderCommandRejectsUnknownMode(t *testing.T) {
	root := writeProject(t)

	if _, err := run(t, "-q", "-d", root, "render", "site", "home", "--mode", "draft"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestMediaRefreshThenUsage(t *testing.T) {
	root := writeProject(t)

	out, err := run(t, "-q", "-d", root, "media", "refresh", "site")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !strings.Contains(out, "media usage refreshed for site") {
		t.Fatalf("unexpected refresh output %q", out)
	}

	out, err = run(t, "-q", "-d", root, "media", "usage", "site", "a")
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	var usage struct {
		FileID  string   `json:"fileId"`
		UsedIn  []string `json:"usedIn"`
		IsInUse bool     `json:"isInUse"`
	}
	if err := json.Unmarshal([]byte(out), &usage); err != nil {
		t.Fatalf("decode usage: %v", err)
	}
	if !usage.IsInUse || len(usage.UsedIn) != 1 || usage.UsedIn[0] != "page:home" {
		t.Fatalf("unexpected usage %+v", usage)
	}

	if _, err := run(t, "-q", "-d", root, "media", "update-page", "site", "home", "--removed"); err != nil {
		t.Fatalf("update-page: %v", err)
	}
	out, err = run(t, "-q", "-d", root, "media", "usage", "site", "a")
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if !strings.Contains(out, `"isInUse": false`) {
		t.Fatalf("expected file to be unused after removal, got %q", out)
	}
}

func TestMediaRefreshMissingProjectFails(t *testing.T) {
	root := writeProject(t)

	if _, err := run(t, "-q", "-d", root, "media", "refresh", "ghost"); err == nil {
		t.Fatalf("expected error for missing project")
	}
}

func TestUnsupportedMediaStorageFails(t *testing.T) {
	root := writeProject(t)

	if _, err := run(t, "-q", "-d", root, "--media-storage", "mongo", "media", "usage", "site", "a"); err == nil {
		t.Fatalf("expected config error")
	}
}
