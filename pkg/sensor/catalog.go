package sensor

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog holds sensor definitions by name. It is not safe for concurrent
// use; owners guard it.
type Catalog struct {
	defs map[string]Definition
}

// NewCatalog creates a catalog holding defs.
func NewCatalog(defs ...Definition) *Catalog {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		c.Put(d)
	}
	return c
}

// Put adds or replaces a definition.
func (c *Catalog) Put(def Definition) {
	c.defs[def.Name] = def
}

// Merge copies every definition of other into c.
func (c *Catalog) Merge(other *Catalog) {
	for _, d := range other.defs {
		c.Put(d)
	}
}

// Lookup returns the definition called name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// Names returns the definition names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByType returns the definitions of the given kind sorted by name.
func (c *Catalog) ByType(kind Kind) []Definition {
	var result []Definition
	for _, name := range c.Names() {
		if d := c.defs[name]; d.Kind() == kind {
			result = append(result, d)
		}
	}
	return result
}

// Decode parses a set of catalog records keyed by sensor name. A record
// without a name takes its key. Invalid records are logged and skipped; the
// second result counts them.
func Decode(records map[string]map[string]any) (*Catalog, int) {
	c := NewCatalog()
	skipped := 0

	for key, rec := range records {
		if rec == nil {
			rec = map[string]any{}
		}
		if _, ok := rec["name"]; !ok {
			rec["name"] = key
		}

		def, err := Parse(rec)
		if err != nil {
			log.Printf("Skipping sensor %q: %v", key, err)
			skipped++
			continue
		}
		c.Put(def)
	}

	return c, skipped
}

// LoadDir reads every *.yaml file in dir, in name order, as one sensor
// definition. Files that do not describe a valid sensor are logged and
// skipped. It fails with ErrNoSensors when nothing valid is found.
func LoadDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sensor directory: %w", err)
	}

	log.Printf("Reading sensor config from %s", dir)

	c := NewCatalog()
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		def, err := loadFile(path)
		if err != nil {
			log.Printf("Invalid sensor file %q: %v", entry.Name(), err)
			continue
		}

		c.Put(def)
		log.Printf("Added sensor %q of type %q to list", def.Name, def.Kind())
	}

	if c.Len() == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSensors, dir)
	}

	return c, nil
}

func loadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, err
	}

	var rec map[string]any
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Definition{}, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	if rec == nil {
		return Definition{}, fmt.Errorf("%w: empty file", ErrInvalidDefinition)
	}

	return Parse(rec)
}
