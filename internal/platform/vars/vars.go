// Package vars is the key/value lookup for deployment variables: message
// assets, thresholds, channel numbers and language tags.
package vars

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrMissingConfig = errors.New("missing config variable")

type MissingConfigError struct {
	Name string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing config variable %q", e.Name)
}

func (e *MissingConfigError) Is(target error) bool { return target == ErrMissingConfig }

type Store interface {
	Get(name string) (string, error)
}

// Int reads name from s and parses it as a base-10 integer.
func Int(s Store, name string) (int, error) {
	raw, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("variable %q: %w", name, err)
	}
	return n, nil
}

// Map is an in-memory Store. Empty values count as missing.
type Map struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMap(values map[string]string) *Map {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &Map{values: cp}
}

func (m *Map) Get(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[name]
	if !ok || strings.TrimSpace(v) == "" {
		return "", &MissingConfigError{Name: name}
	}
	return v, nil
}

func (m *Map) Set(name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = value
}

func (m *Map) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.values))
	for k := range m.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadFile reads a flat YAML (or JSON) object of variables. Scalar values
// of any type are kept in their textual form.
func LoadFile(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vars file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse vars: %w", err)
	}
	values := map[string]string{}
	if len(doc.Content) == 0 {
		return NewMap(values), nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse vars: top level must be a mapping")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parse vars: %q must be a scalar", k.Value)
		}
		values[k.Value] = v.Value
	}
	return NewMap(values), nil
}

// RequireAll reports every name that s cannot resolve.
func RequireAll(s Store, names ...string) error {
	var missing []string
	for _, n := range names {
		if _, err := s.Get(n); err != nil {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}
