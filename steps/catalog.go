// ABOUTME: Catalog of named step factories used to assemble and extend the pipeline.
// ABOUTME: DefaultCatalog registers the built-in enhancer, generator, validator, and inspector.
package steps

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/saicharanallam/sigmachain/llm"
	"github.com/saicharanallam/sigmachain/pipeline"
	"go.uber.org/zap"
)

// ErrUnknownStep is returned when building a name the catalog does not know.
var ErrUnknownStep = errors.New("unknown step")

// Factory builds a fresh step instance.
type Factory func() (pipeline.Step, error)

// CatalogEntry describes one buildable step.
type CatalogEntry struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	factory     Factory
}

// Catalog maps step names to factories.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]CatalogEntry
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]CatalogEntry)}
}

// Register adds a factory under name.
func (c *Catalog) Register(name, description string, factory Factory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("catalog entry needs a name and a factory")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[name]; exists {
		return fmt.Errorf("step %q is already in the catalog", name)
	}
	c.entries[name] = CatalogEntry{Name: name, Description: description, factory: factory}
	return nil
}

// Build constructs the named step.
func (c *Catalog) Build(name string) (pipeline.Step, error) {
	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, name)
	}
	step, err := entry.factory()
	if err != nil {
		return nil, fmt.Errorf("build step %q: %w", name, err)
	}
	return step, nil
}

// Entries lists the catalog sorted by name.
func (c *Catalog) Entries() []CatalogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]CatalogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names lists the catalog's step names, sorted.
func (c *Catalog) Names() []string {
	entries := c.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Dependencies are the shared collaborators of the built-in steps.
type Dependencies struct {
	Completer  llm.Completer // nil disables the enhancer and validator
	Backend    ImageBackend  // nil disables the generator
	Store      *ImageStore
	HTTPClient *http.Client
	Enhancer   EnhancerConfig
	Validator  ValidatorConfig
	Logger     *zap.Logger
}

// DefaultCatalog registers the built-in steps over deps. Factories whose
// dependencies are missing fail at build time, not registration.
func DefaultCatalog(deps Dependencies) *Catalog {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := NewCatalog()

	_ = c.Register(EnhancerName, "Enhances user prompts with technical details and best practices", func() (pipeline.Step, error) {
		if deps.Completer == nil {
			return nil, llm.ErrMissingAPIKey
		}
		return NewPromptEnhancer(deps.Completer, deps.Enhancer, logger.Named(EnhancerName)), nil
	})
	_ = c.Register(GeneratorName, "Generates images from enhanced prompts", func() (pipeline.Step, error) {
		if deps.Backend == nil {
			return nil, errors.New("no image backend configured")
		}
		if deps.Store == nil {
			return nil, errors.New("no image store configured")
		}
		return NewImageGenerator(deps.Backend, deps.Store, logger.Named(GeneratorName)), nil
	})
	_ = c.Register(ValidatorName, "Validates images for anatomical correctness and quality", func() (pipeline.Step, error) {
		if deps.Completer == nil {
			return nil, llm.ErrMissingAPIKey
		}
		return NewValidator(deps.Completer, deps.Store, deps.HTTPClient, deps.Validator, logger.Named(ValidatorName)), nil
	})
	_ = c.Register(InspectorName, "Inspects the generated image and records its dimensions and format", func() (pipeline.Step, error) {
		return NewImageInspector(deps.Store, logger.Named(InspectorName)), nil
	})
	return c
}
