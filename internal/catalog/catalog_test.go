package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

const validCatalog = `
templates:
  - name: jupyter
    image: jupyter/base-notebook:latest
    ports:
      notebook: 8888
    cpuLimit: 1.0
    memoryLimitMb: 1024
    environment:
      JUPYTER_ENABLE_LAB: "yes"
    volumeMounts:
      workspace: /home/jovyan/work
  - name: vscode
    image: codercom/code-server:latest
    ports:
      editor: 8080
    cpuLimit: 2.0
    memoryLimitMb: 2048
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadAndGet(t *testing.T) {
	m := NewCatalogManager(writeCatalog(t, validCatalog), zap.NewNop())
	if err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	tpl, err := m.Get("jupyter")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if tpl.Image != "jupyter/base-notebook:latest" || tpl.Ports["notebook"] != 8888 {
		t.Fatalf("unexpected template: %+v", tpl)
	}

	if _, err := m.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list := m.List()
	if len(list) != 2 || list[0].Name != "jupyter" || list[1].Name != "vscode" {
		t.Fatalf("expected sorted list of 2, got %+v", list)
	}
}

func TestLoadRejectsInvalidTemplates(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{
			name: "zero cpu",
			content: `
templates:
  - name: bad
    image: img:latest
    cpuLimit: 0
    memoryLimitMb: 1024
`,
		},
		{
			name: "memory under floor",
			content: `
templates:
  - name: bad
    image: img:latest
    cpuLimit: 1.0
    memoryLimitMb: 64
`,
		},
		{
			name: "missing image",
			content: `
templates:
  - name: bad
    cpuLimit: 1.0
    memoryLimitMb: 1024
`,
		},
		{
			name: "duplicate name",
			content: `
templates:
  - name: dup
    image: a:latest
    cpuLimit: 1.0
    memoryLimitMb: 1024
  - name: dup
    image: b:latest
    cpuLimit: 1.0
    memoryLimitMb: 1024
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewCatalogManager(writeCatalog(t, tc.content), zap.NewNop())
			if err := m.Load(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestWatchReloadsInBackground(t *testing.T) {
	path := writeCatalog(t, validCatalog)
	m := NewCatalogManager(path, zap.NewNop())
	if err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	// Watch runs as an event loop and only returns on watcher failure,
	// so the boot path must start it on its own goroutine
	done := make(chan error, 1)
	go func() { done <- m.Watch() }()

	extended := validCatalog + `
  - name: postgres
    image: postgres:16
    ports:
      db: 5432
    cpuLimit: 1.0
    memoryLimitMb: 512
`
	if err := os.WriteFile(path, []byte(extended), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		if _, err := m.Get("postgres"); err == nil {
			break
		}
		select {
		case err := <-done:
			t.Fatalf("Watch returned before a reload: %v", err)
		case <-deadline:
			t.Fatalf("catalog not reloaded after file change")
		case <-time.After(20 * time.Millisecond):
		}
	}

	select {
	case err := <-done:
		t.Fatalf("Watch returned while the file is still watched: %v", err)
	default:
	}
}

func TestReloadKeepsPreviousOnBrokenFile(t *testing.T) {
	path := writeCatalog(t, validCatalog)
	m := NewCatalogManager(path, zap.NewNop())
	if err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := os.WriteFile(path, []byte("templates: ["), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := m.Load(); err == nil {
		t.Fatalf("expected parse error")
	}

	// previous catalog still served
	if _, err := m.Get("jupyter"); err != nil {
		t.Fatalf("previous catalog lost: %v", err)
	}
}
