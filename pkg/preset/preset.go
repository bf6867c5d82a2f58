// Package preset loads named expressions from YAML files and resolves the
// named frame resolutions used by the stream command.
//
// A preset file has a single "presets" list. Each entry has a name, an
// optional description and exactly one of:
//
//	expression:  "z^2 + sin(z)"
//	polynomial:  [c0, c1, c2, ...]            # c0 + c1*z + c2*z^2 + ...
//	rational:    {numerator: [...], denominator: [...]}
package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/store"
	"gopkg.in/yaml.v3"
)

// Kind says how a preset's expression was given.
type Kind string

const (
	KindExpression Kind = "expression"
	KindPolynomial Kind = "polynomial"
	KindRational   Kind = "rational"
)

// Preset is one parsed entry of a preset file.
type Preset struct {
	Name        string
	Description string
	Kind        Kind
	// Source is the expression text for KindExpression, otherwise the
	// canonical form of the built tree.
	Source string
	Tree   expr.Node
	// File and Line locate the entry for error messages and listings.
	File string
	Line int
}

// Load parses preset YAML. name is used in error messages only.
func Load(data []byte, name string) ([]*Preset, error) {
	var raw yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: invalid YAML: %w", name, err)
	}
	if raw.Kind == 0 {
		return nil, nil
	}
	if raw.Kind != yaml.DocumentNode || len(raw.Content) == 0 {
		return nil, fmt.Errorf("%s: expected a YAML document", name)
	}
	root := raw.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: top level must be a mapping with a 'presets' key", name)
	}

	var list *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if key != "presets" {
			return nil, fmt.Errorf("%s:%d: unknown top-level key '%s'", name, root.Content[i].Line, key)
		}
		list = root.Content[i+1]
	}
	if list == nil {
		return nil, fmt.Errorf("%s: missing 'presets' list", name)
	}
	if list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s:%d: 'presets' must be a list", name, list.Line)
	}

	seen := make(map[string]int)
	presets := make([]*Preset, 0, len(list.Content))
	for _, item := range list.Content {
		p, err := parsePreset(item, name)
		if err != nil {
			return nil, err
		}
		if line, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%s:%d: duplicate preset '%s' (first defined on line %d)", name, p.Line, p.Name, line)
		}
		seen[p.Name] = p.Line
		presets = append(presets, p)
	}
	return presets, nil
}

func parsePreset(node *yaml.Node, file string) (*Preset, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s:%d: preset must be a mapping", file, node.Line)
	}

	p := &Preset{File: file, Line: node.Line}
	var bodies []string
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		loc := fmt.Sprintf("%s:%d", file, val.Line)

		switch key {
		case "name":
			p.Name = val.Value
		case "description":
			p.Description = val.Value
		case "expression":
			tree, err := expr.Parse(val.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", loc, err)
			}
			p.Kind, p.Source, p.Tree = KindExpression, val.Value, tree
			bodies = append(bodies, key)
		case "polynomial":
			coeffs, err := decodeCoeffs(val, loc, key)
			if err != nil {
				return nil, err
			}
			p.Kind, p.Tree = KindPolynomial, expr.Polynomial(coeffs)
			bodies = append(bodies, key)
		case "rational":
			tree, err := parseRational(val, loc)
			if err != nil {
				return nil, err
			}
			p.Kind, p.Tree = KindRational, tree
			bodies = append(bodies, key)
		default:
			return nil, fmt.Errorf("%s:%d: unknown preset key '%s'", file, node.Content[i].Line, key)
		}
	}

	loc := fmt.Sprintf("%s:%d", file, node.Line)
	if err := store.ValidateName(p.Name); err != nil {
		return nil, fmt.Errorf("%s: %w", loc, err)
	}
	switch len(bodies) {
	case 0:
		return nil, fmt.Errorf("%s: preset '%s' needs one of expression, polynomial or rational", loc, p.Name)
	case 1:
	default:
		return nil, fmt.Errorf("%s: preset '%s' has %s; only one is allowed", loc, p.Name, strings.Join(bodies, " and "))
	}
	if p.Source == "" {
		p.Source = expr.Format(p.Tree)
	}
	return p, nil
}

func parseRational(node *yaml.Node, loc string) (expr.Node, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: rational must be a mapping with numerator and denominator", loc)
	}
	var num, den []float64
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		coeffs, err := decodeCoeffs(node.Content[i+1], loc, "rational."+key)
		if err != nil {
			return nil, err
		}
		switch key {
		case "numerator":
			num = coeffs
		case "denominator":
			den = coeffs
		default:
			return nil, fmt.Errorf("%s: unknown rational key '%s'", loc, key)
		}
	}
	if num == nil || den == nil {
		return nil, fmt.Errorf("%s: rational needs both numerator and denominator", loc)
	}
	return expr.Rational(num, den), nil
}

func decodeCoeffs(node *yaml.Node, loc, field string) ([]float64, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s: %s must be a list of numbers", loc, field)
	}
	coeffs := make([]float64, 0, len(node.Content))
	if err := node.Decode(&coeffs); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", loc, field, err)
	}
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("%s: %s must not be empty", loc, field)
	}
	return coeffs, nil
}

// LoadFile reads and parses one preset file.
func LoadFile(path string) ([]*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading presets: %w", err)
	}
	return Load(data, path)
}

// LoadDir loads every .yaml and .yml file in dir, in name order. A preset
// name defined in two files is an error.
func LoadDir(dir string) ([]*Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading presets directory: %w", err)
	}

	var all []*Preset
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		presets, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		for _, p := range presets {
			if prev, dup := seen[p.Name]; dup {
				return nil, fmt.Errorf("%s:%d: preset '%s' already defined in %s", p.File, p.Line, p.Name, prev)
			}
			seen[p.Name] = p.File
		}
		all = append(all, presets...)
	}
	return all, nil
}

// LoadPath loads a single file or, when path is a directory, every preset
// file in it.
func LoadPath(path string) ([]*Preset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading presets: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// Install stores every preset in s, replacing same-named expressions.
func Install(s *store.Store, presets []*Preset) error {
	for _, p := range presets {
		if p.Kind == KindExpression {
			if _, err := s.GetExpression(p.Name); err == nil {
				if _, err := s.UpdateExpression(p.Name, p.Source, p.Description); err != nil {
					return fmt.Errorf("preset '%s': %w", p.Name, err)
				}
				continue
			}
			if _, err := s.CreateExpression(p.Name, p.Source, p.Description); err != nil {
				return fmt.Errorf("preset '%s': %w", p.Name, err)
			}
			continue
		}
		if _, err := s.PutTree(p.Name, p.Tree, p.Description); err != nil {
			return fmt.Errorf("preset '%s': %w", p.Name, err)
		}
	}
	return nil
}
