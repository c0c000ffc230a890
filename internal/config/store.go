package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no config file exists for a namespace.
var ErrNotFound = errors.New("config: not found")

// Store is a hierarchical configuration backed by a YAML node tree. Paths
// are slash-separated map keys; "@N" selects the N-th element of a list.
type Store struct {
	name string
	root *yaml.Node
}

// ParseStore parses a YAML document.
func ParseStore(name string, data []byte) (*Store, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		if doc.Content[0].Kind != yaml.MappingNode {
			return nil, fmt.Errorf("parse %s: top level must be a map", name)
		}
		root = doc.Content[0]
	}
	return &Store{name: name, root: root}, nil
}

// OpenStore loads <name>.yaml from the first directory that has it and
// applies <name>.custom.yaml from the same directory list.
func OpenStore(name string, dirs ...string) (*Store, error) {
	var s *Store
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, name+".yaml")
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if s, err = ParseStore(name, data); err != nil {
			return nil, err
		}
		break
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s.yaml", ErrNotFound, name)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, name+".custom.yaml")
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := s.ApplyPatch(data); err != nil {
			return nil, fmt.Errorf("patch %s: %w", path, err)
		}
		break
	}
	return s, nil
}

// Name returns the namespace the store was opened for.
func (s *Store) Name() string { return s.name }

func (s *Store) lookup(path string) *yaml.Node {
	node := s.root
	if path == "" {
		return node
	}
	for _, key := range strings.Split(path, "/") {
		node = child(node, key)
		if node == nil {
			return nil
		}
	}
	return node
}

func child(node *yaml.Node, key string) *yaml.Node {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				return node.Content[i+1]
			}
		}
	case yaml.SequenceNode:
		if !strings.HasPrefix(key, "@") {
			return nil
		}
		i, err := strconv.Atoi(key[1:])
		if err != nil || i < 0 || i >= len(node.Content) {
			return nil
		}
		return node.Content[i]
	}
	return nil
}

func scalar(node *yaml.Node) (*yaml.Node, bool) {
	if node == nil {
		return nil, false
	}
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.ScalarNode || node.ShortTag() == "!!null" {
		return nil, false
	}
	return node, true
}

// GetString returns the scalar at path as text.
func (s *Store) GetString(path string) (string, bool) {
	node, ok := scalar(s.lookup(path))
	if !ok {
		return "", false
	}
	return node.Value, true
}

// GetInt returns the integer at path. Hexadecimal values such as 0xBBGGRR
// are accepted, quoted or not.
func (s *Store) GetInt(path string) (int, bool) {
	node, ok := scalar(s.lookup(path))
	if !ok {
		return 0, false
	}
	switch node.ShortTag() {
	case "!!int", "!!str":
	default:
		return 0, false
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(node.Value, "_", ""), 0, 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// GetBool returns the boolean at path. Only YAML booleans qualify.
func (s *Store) GetBool(path string) (bool, bool) {
	node, ok := scalar(s.lookup(path))
	if !ok || node.ShortTag() != "!!bool" {
		return false, false
	}
	var v bool
	if err := node.Decode(&v); err != nil {
		return false, false
	}
	return v, true
}

// MapKeys lists the keys of the map at path in document order.
func (s *Store) MapKeys(path string) []string {
	node := s.lookup(path)
	if node == nil {
		return nil
	}
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys
}

// Close releases the store. It exists for the engine's config reader
// interface and never fails.
func (s *Store) Close() error { return nil }

// Set replaces the node at path, creating intermediate maps.
func (s *Store) Set(path string, value *yaml.Node) error {
	if path == "" {
		if value.Kind != yaml.MappingNode {
			return fmt.Errorf("set root: not a map")
		}
		s.root = value
		return nil
	}
	keys := strings.Split(path, "/")
	node := s.root
	for i, key := range keys {
		last := i == len(keys)-1
		if node.Kind == yaml.SequenceNode {
			next := child(node, key)
			if next == nil {
				return fmt.Errorf("set %s: no list element %s", path, key)
			}
			if last {
				*next = *value
				return nil
			}
			node = next
			continue
		}
		if node.Kind != yaml.MappingNode {
			return fmt.Errorf("set %s: %s is not a map", path, strings.Join(keys[:i], "/"))
		}
		next := child(node, key)
		if last {
			if next != nil {
				*next = *value
			} else {
				node.Content = append(node.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
			}
			return nil
		}
		if next == nil {
			next = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, next)
		}
		node = next
	}
	return nil
}

// Document decodes the whole tree into JSON-compatible values.
func (s *Store) Document() (any, error) {
	var doc map[string]any
	if err := s.root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.name, err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.name, err)
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.name, err)
	}
	return out, nil
}
