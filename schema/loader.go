package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/edicraft/edipipe/edierrors"
	"go.yaml.in/yaml/v4"
)

// Loader loads Schema definitions from a set of search paths, caching
// by "name:version" behind a mutex so concurrent callers share one
// parse per identity.
type Loader struct {
	searchPaths []string

	mu    sync.RWMutex
	cache map[string]*Schema
}

// NewLoader creates a Loader searching searchPaths in order.
func NewLoader(searchPaths ...string) *Loader {
	return &Loader{searchPaths: searchPaths, cache: make(map[string]*Schema)}
}

// Load resolves a single schema by name and version. A cache hit
// returns the cached Schema; a miss searches the configured paths for
// "{name}_{version}.{json,yaml,yml}" or "{name}.json" (both in the
// lowercased namespace), parses it, and inserts it into the cache.
func (l *Loader) Load(name, version string) (*Schema, error) {
	key := name + ":" + version

	l.mu.RLock()
	if s, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return s, nil
	}
	l.mu.RUnlock()

	s, err := l.findAndParse(name, version)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[key] = s
	l.mu.Unlock()

	return s, nil
}

func (l *Loader) findAndParse(name, version string) (*Schema, error) {
	lowerName := strings.ToLower(name)
	lowerVersion := strings.ToLower(version)

	candidates := []string{
		fmt.Sprintf("%s_%s.json", lowerName, lowerVersion),
		fmt.Sprintf("%s_%s.yaml", lowerName, lowerVersion),
		fmt.Sprintf("%s_%s.yml", lowerName, lowerVersion),
		fmt.Sprintf("%s.json", lowerName),
	}

	for _, dir := range l.searchPaths {
		for _, candidate := range candidates {
			path := filepath.Join(dir, candidate)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			return parseSchemaFile(path, data)
		}
	}

	return nil, &edierrors.SchemaError{Details: fmt.Sprintf("schema not found: %s:%s", name, version)}
}

func parseSchemaFile(path string, data []byte) (*Schema, error) {
	var s Schema
	var err error
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &s)
	} else {
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, &edierrors.SchemaError{Details: "failed to parse schema file " + path, Cause: err}
	}
	return &s, nil
}

// LoadWithInheritance resolves ref's full parent chain, detects
// cycles, and folds the chain base-first into one merged Schema.
func (l *Loader) LoadWithInheritance(ref SchemaRef) (*Schema, error) {
	var chain []*Schema
	visited := make(map[string]bool)

	cur := ref
	for {
		s, err := l.Load(cur.Name, cur.Version)
		if err != nil {
			if len(chain) > 0 {
				return nil, &edierrors.SchemaError{Details: "Parent schema not found"}
			}
			return nil, err
		}

		qn := s.QualifiedName()
		if visited[qn] {
			return nil, &edierrors.SchemaError{Details: "Circular dependency"}
		}
		visited[qn] = true
		chain = append(chain, s)

		if s.Inheritance.Parent == nil {
			break
		}
		cur = *s.Inheritance.Parent
	}

	// chain is leaf-first; reverse to base-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	merged := chain[0]
	refs := []SchemaRef{{Name: merged.Name, Version: merged.Version}}
	for _, s := range chain[1:] {
		merged = Merge(merged, s)
		refs = append(refs, SchemaRef{Name: s.Name, Version: s.Version})
	}

	merged.Inheritance = Inheritance{Chain: refs, IsMerged: len(chain) > 1}
	if len(chain) > 1 {
		merged.Inheritance.Parent = &refs[len(refs)-2]
	}

	return merged, nil
}
