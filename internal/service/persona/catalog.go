package persona

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/seu-repo/concierge/internal/domain"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Catalog is the process-wide, read-only registry of persona definitions.
// It is never mutated after construction, so concurrent reads need no locking.
type Catalog struct {
	personas map[domain.PersonaType]domain.PersonaDefinition
}

type catalogFile struct {
	Personas []domain.PersonaDefinition `yaml:"personas"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := LoadCatalog(bytes.NewReader(embeddedCatalog))
		if err != nil {
			panic(fmt.Sprintf("persona: invalid embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadCatalogFile reads a catalog override from disk
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open persona catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// LoadCatalog parses a YAML catalog. Every persona type must be defined exactly once.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode persona catalog: %w", err)
	}

	c := &Catalog{personas: make(map[domain.PersonaType]domain.PersonaDefinition, len(file.Personas))}
	for _, p := range file.Personas {
		if !p.Type.Valid() {
			return nil, fmt.Errorf("unknown persona type %q", p.Type)
		}
		if _, dup := c.personas[p.Type]; dup {
			return nil, fmt.Errorf("persona %q defined twice", p.Type)
		}
		for i, s := range p.Suggestions {
			if s.Label == "" {
				return nil, fmt.Errorf("persona %q: suggestion %d has no label", p.Type, i)
			}
			if s.IsSpecial && s.Action == "" {
				return nil, fmt.Errorf("persona %q: special suggestion %q has no action", p.Type, s.Label)
			}
		}
		c.personas[p.Type] = p.Clone()
	}

	for _, t := range []domain.PersonaType{
		domain.PersonaTravel, domain.PersonaSommelier, domain.PersonaChef, domain.PersonaAssistant,
	} {
		if _, ok := c.personas[t]; !ok {
			return nil, fmt.Errorf("persona %q missing from catalog", t)
		}
	}

	return c, nil
}

// Get returns a private copy of the persona definition.
func (c *Catalog) Get(t domain.PersonaType) (domain.PersonaDefinition, bool) {
	p, ok := c.personas[t]
	if !ok {
		return domain.PersonaDefinition{}, false
	}
	return p.Clone(), true
}

func (c *Catalog) mustGet(t domain.PersonaType) domain.PersonaDefinition {
	p, ok := c.Get(t)
	if !ok {
		// LoadCatalog guarantees the closed set is complete
		panic(fmt.Sprintf("persona %q missing", t))
	}
	return p
}
