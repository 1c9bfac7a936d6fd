package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// durationKeys are rendered as Go duration strings instead of nanoseconds.
var durationKeys = []string{
	"sampler.backoff",
	"cpu.interval",
	"memory.interval",
	"temperature.interval",
	"battery.interval",
	"notify.timeout",
	"notify.expire",
	"dispatch.cooldown",
}

// Marshal renders cfg as YAML, writing durations as "30s" rather than
// nanosecond integers so the file round-trips through Load.
func Marshal(cfg *Config) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	for _, key := range durationKeys {
		node := findPath(&doc, key)
		if node == nil || node.Kind != yaml.ScalarNode {
			continue
		}
		n, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			continue
		}
		node.Value = time.Duration(n).String()
		node.Tag = "!!str"
		node.Style = 0
	}

	return encode(&doc)
}

// WriteFile writes cfg to path, creating parent directories. It refuses to
// overwrite an existing file unless force is set.
func WriteFile(path string, cfg *Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SetValue sets a dotted key (e.g. "cpu.threshold") in YAML config data.
// It preserves the existing YAML structure and comments. The value is parsed
// as YAML, so "85", "true", "10m" and "[cpu, k10temp]" all work.
func SetValue(data []byte, key, value string) ([]byte, error) {
	if !isKnownKey(key) {
		return nil, fmt.Errorf("unknown config key '%s'", key)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Empty file: start a fresh document
	if root.Kind == 0 {
		root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("invalid YAML document structure")
	}

	docNode := root.Content[0]
	if docNode.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected mapping at document root")
	}

	var parsed yaml.Node
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return nil, fmt.Errorf("invalid value '%s': %w", value, err)
	}
	var valueNode *yaml.Node
	if parsed.Kind == yaml.DocumentNode && len(parsed.Content) == 1 {
		valueNode = parsed.Content[0]
	} else {
		valueNode = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	}

	parts := strings.Split(key, ".")
	parent := docNode
	for _, section := range parts[:len(parts)-1] {
		next := findMapValue(parent, section)
		if next == nil {
			next = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			parent.Content = append(parent.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: section}, next)
		}
		if next.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("'%s' is not a section in the config file", section)
		}
		parent = next
	}

	leaf := parts[len(parts)-1]
	replaced := false
	for i := 0; i < len(parent.Content)-1; i += 2 {
		if parent.Content[i].Kind == yaml.ScalarNode && parent.Content[i].Value == leaf {
			// Keep any comment attached to the old value
			valueNode.LineComment = parent.Content[i+1].LineComment
			parent.Content[i+1] = valueNode
			replaced = true
			break
		}
	}
	if !replaced {
		parent.Content = append(parent.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: leaf}, valueNode)
	}

	return encode(&root)
}

// UpdateFile applies SetValue to the file at path. The result must still pass
// Validate, otherwise the file is left untouched.
func UpdateFile(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	out, err := SetValue(data, key, value)
	if err != nil {
		return err
	}

	cfg, err := Parse(out)
	if err != nil {
		return err
	}
	if err := Validate(cfg); err != nil {
		return err
	}

	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func isKnownKey(key string) bool {
	for _, k := range KnownKeys() {
		if k == key {
			return true
		}
	}
	return false
}

func encode(node *yaml.Node) ([]byte, error) {
	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(node); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()
	return []byte(buf.String()), nil
}

// findPath resolves a dotted key starting at a document or mapping node.
func findPath(node *yaml.Node, key string) *yaml.Node {
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	for _, part := range strings.Split(key, ".") {
		node = findMapValue(node, part)
		if node == nil {
			return nil
		}
	}
	return node
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return valueNode
		}
	}

	return nil
}
