package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func NewCatalogManager(path string, log *zap.Logger) *CatalogManager {
	return &CatalogManager{
		path:      path,
		log:       log,
		templates: map[string]TemplateSpec{},
	}
}

// CatalogManager serves the template catalog from a YAML file and keeps
// it current via a file watcher. A broken edit keeps the last good
// catalog in service.
type CatalogManager struct {
	path string
	log  *zap.Logger

	mu        sync.RWMutex
	templates map[string]TemplateSpec
}

func (m *CatalogManager) Load() error {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}

	var file catalogFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return fmt.Errorf("catalog yaml broken: %w", err)
	}

	parsed := make(map[string]TemplateSpec, len(file.Templates))
	for _, tpl := range file.Templates {
		if err := validateTemplate(tpl); err != nil {
			return err
		}
		if _, dup := parsed[tpl.Name]; dup {
			return fmt.Errorf("template name duplicated: %s", tpl.Name)
		}
		parsed[tpl.Name] = tpl
	}

	m.mu.Lock()
	m.templates = parsed
	m.mu.Unlock()

	m.log.Info("catalog loaded", zap.Int("templates", len(parsed)))
	return nil
}

func (m *CatalogManager) Get(name string) (TemplateSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tpl, ok := m.templates[name]
	if !ok {
		return TemplateSpec{}, fmt.Errorf("template %s: %w", name, ErrNotFound)
	}
	return tpl, nil
}

func (m *CatalogManager) List() []TemplateSpec {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]TemplateSpec, 0, len(m.templates))
	for _, tpl := range m.templates {
		list = append(list, tpl)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Watch reloads the catalog when the file changes. Runs until the
// watcher fails; callers start it on its own goroutine.
func (m *CatalogManager) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// watch the directory: editors replace the file on save
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		return err
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(m.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := m.Load(); err != nil {
				m.log.Error("catalog reload failed, keeping previous", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.log.Error("catalog watcher error", zap.Error(err))
		}
	}
}

func validateTemplate(tpl TemplateSpec) error {
	if tpl.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if tpl.Image == "" {
		return fmt.Errorf("template %s: image is required", tpl.Name)
	}
	if tpl.CpuLimit <= 0 {
		return fmt.Errorf("template %s: cpuLimit must be > 0", tpl.Name)
	}
	if tpl.MemoryLimitMb < 128 {
		return fmt.Errorf("template %s: memoryLimitMb must be >= 128", tpl.Name)
	}
	return nil
}
