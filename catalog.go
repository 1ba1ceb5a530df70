package openai

import (
	_ "embed"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/models.yaml
var embeddedModelsYAML []byte

// Catalog Philosophy:
//
// The catalog is MODEL METADATA used for client-side warnings. It does NOT gate
// requests unless Config.StrictValidation is set; the API is the source of truth.
// New models appear faster than this file is updated, so an unknown model is only
// ever an informational warning.
//
// Library users can extend the embedded catalog by:
//  1. Calling LoadCatalogFromFile() with custom YAML
//  2. Calling RegisterModel() programmatically

// Endpoint names an API endpoint family.
type Endpoint string

const (
	EndpointChat        Endpoint = "chat"
	EndpointCompletions Endpoint = "completions"
	EndpointEdits       Endpoint = "edits"
	EndpointEmbeddings  Endpoint = "embeddings"
	EndpointImages      Endpoint = "images"
)

// CatalogFile is the YAML layout of a model catalog.
type CatalogFile struct {
	Version     string               `yaml:"version"`
	LastUpdated string               `yaml:"last_updated"`
	Models      map[string]ModelInfo `yaml:"models"`
}

// ModelInfo describes what a model can be used for.
type ModelInfo struct {
	Endpoints       []Endpoint `yaml:"endpoints"`
	ContextWindow   int        `yaml:"context_window"`
	MaxOutputTokens int        `yaml:"max_output_tokens"`
	Deprecated      bool       `yaml:"deprecated"`
	Replacement     string     `yaml:"replacement"`
}

// Serves reports whether the model is listed for the endpoint.
func (m ModelInfo) Serves(endpoint Endpoint) bool {
	return slices.Contains(m.Endpoints, endpoint)
}

// ModelCatalog holds known models. It is safe for concurrent use.
type ModelCatalog struct {
	models map[string]ModelInfo
	mu     sync.RWMutex
}

var (
	globalCatalog     *ModelCatalog
	globalCatalogOnce sync.Once
)

// GetModelCatalog returns the global catalog (singleton), seeded from the embedded YAML.
func GetModelCatalog() *ModelCatalog {
	globalCatalogOnce.Do(func() {
		globalCatalog = NewModelCatalog()
		if err := globalCatalog.Load(embeddedModelsYAML); err != nil {
			slog.Warn("openai: failed to load embedded model catalog", "error", err)
		}
	})
	return globalCatalog
}

// NewModelCatalog returns an empty catalog.
func NewModelCatalog() *ModelCatalog {
	return &ModelCatalog{models: make(map[string]ModelInfo)}
}

// Load merges a YAML catalog into c. Entries for existing models are replaced.
func (c *ModelCatalog) Load(data []byte) error {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal model catalog: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.models, file.Models)
	return nil
}

// LoadFromFile merges a YAML catalog file into c.
func (c *ModelCatalog) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model catalog: %w", err)
	}
	return c.Load(data)
}

// Register adds or replaces a single model.
func (c *ModelCatalog) Register(name string, info ModelInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[name] = info
}

// Lookup returns the entry for model.
func (c *ModelCatalog) Lookup(model string) (ModelInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.models[model]
	return info, ok
}

// Models returns the sorted names of all known models serving endpoint.
// An empty endpoint returns every model.
func (c *ModelCatalog) Models(endpoint Endpoint) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var names []string
	for name, info := range c.models {
		if endpoint == "" || info.Serves(endpoint) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// LoadCatalogFromFile is a convenience function that calls the global catalog's LoadFromFile.
func LoadCatalogFromFile(path string) error {
	return GetModelCatalog().LoadFromFile(path)
}

// RegisterModel is a convenience function that calls the global catalog's Register.
func RegisterModel(name string, info ModelInfo) {
	GetModelCatalog().Register(name, info)
}
