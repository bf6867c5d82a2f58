// Package store provides in-memory storage for named expressions and the
// lookup tables built from them.
package store

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/remap"
)

var (
	// ErrNotFound is wrapped by lookups of unknown expressions.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is wrapped when creating a name that is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidName is wrapped when a name does not match NamePattern.
	ErrInvalidName = errors.New("invalid name")
)

// NamePattern is the syntax of expression names.
var NamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// ValidateName checks name against NamePattern.
func ValidateName(name string) error {
	if !NamePattern.MatchString(name) {
		return fmt.Errorf("%w '%s': must match %s", ErrInvalidName, name, NamePattern)
	}
	return nil
}

// Expression represents a stored, parsed expression.
type Expression struct {
	Name        string    `json:"name"`
	Source      string    `json:"source"`
	Canonical   string    `json:"canonical"`
	Description string    `json:"description,omitempty"`
	RevisionID  string    `json:"revisionId"`
	CreateTime  time.Time `json:"createTime"`
	UpdateTime  time.Time `json:"updateTime"`
	Tree        expr.Node `json:"-"`
}

// Stats describes the store and its table cache.
type Stats struct {
	Expressions   int    `json:"expressions"`
	Tables        int    `json:"tables"`
	TableCapacity int    `json:"tableCapacity"`
	TableBytes    int    `json:"tableBytes"`
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
}

// Store is a thread-safe in-memory storage for expressions. Stored
// expressions are replaced, never mutated, so returned values stay valid.
type Store struct {
	mu          sync.RWMutex
	expressions map[string]*Expression
	tables      *tableCache

	// Counter for generating revision IDs
	revCounter int64
}

// Option configures a Store.
type Option func(*Store)

// WithTableCapacity bounds the number of cached lookup tables.
func WithTableCapacity(n int) Option {
	return func(s *Store) {
		s.tables = newTableCache(n)
	}
}

// New creates a new empty store.
func New(opts ...Option) *Store {
	s := &Store{
		expressions: make(map[string]*Expression),
		tables:      newTableCache(DefaultTableCapacity),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateExpression parses source and stores it under name.
func (s *Store) CreateExpression(name, source, description string) (*Expression, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	tree, err := expr.Parse(source)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expressions[name]; exists {
		return nil, fmt.Errorf("expression '%s' %w", name, ErrAlreadyExists)
	}

	s.revCounter++
	now := time.Now()
	e := &Expression{
		Name:        name,
		Source:      source,
		Canonical:   expr.Format(tree),
		Description: description,
		RevisionID:  fmt.Sprintf("%06d-000", s.revCounter),
		CreateTime:  now,
		UpdateTime:  now,
		Tree:        tree,
	}
	s.expressions[name] = e
	return e, nil
}

// PutTree stores a prebuilt tree under name, replacing any existing entry.
// Presets built from coefficient lists use it.
func (s *Store) PutTree(name string, tree expr.Node, description string) (*Expression, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.revCounter++
	now := time.Now()
	e := &Expression{
		Name:        name,
		Source:      expr.Format(tree),
		Canonical:   expr.Format(tree),
		Description: description,
		RevisionID:  fmt.Sprintf("%06d-000", s.revCounter),
		CreateTime:  now,
		UpdateTime:  now,
		Tree:        tree,
	}
	if old, ok := s.expressions[name]; ok {
		e.CreateTime = old.CreateTime
		s.tables.invalidate(name)
	}
	s.expressions[name] = e
	return e, nil
}

// GetExpression retrieves an expression by name.
func (s *Store) GetExpression(name string) (*Expression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expressions[name]
	if !ok {
		return nil, fmt.Errorf("expression '%s' %w", name, ErrNotFound)
	}
	return e, nil
}

// ListExpressions returns all expressions sorted by name.
func (s *Store) ListExpressions() []*Expression {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Expression, 0, len(s.expressions))
	for _, e := range s.expressions {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// UpdateExpression replaces an expression's source. An empty source keeps
// the current one; an empty description keeps the current description.
func (s *Store) UpdateExpression(name, source, description string) (*Expression, error) {
	var tree expr.Node
	if source != "" {
		var err error
		if tree, err = expr.Parse(source); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.expressions[name]
	if !ok {
		return nil, fmt.Errorf("expression '%s' %w", name, ErrNotFound)
	}

	e := *old
	if tree != nil {
		e.Source = source
		e.Canonical = expr.Format(tree)
		e.Tree = tree
	}
	if description != "" {
		e.Description = description
	}
	s.revCounter++
	e.RevisionID = fmt.Sprintf("%06d-000", s.revCounter)
	e.UpdateTime = time.Now()

	s.expressions[name] = &e
	s.tables.invalidate(name)
	return &e, nil
}

// DeleteExpression removes an expression and its cached tables.
func (s *Store) DeleteExpression(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expressions[name]; !ok {
		return fmt.Errorf("expression '%s' %w", name, ErrNotFound)
	}
	delete(s.expressions, name)
	s.tables.invalidate(name)
	return nil
}

// Table returns the lookup table for the named expression at width×height,
// building and caching it on a miss.
func (s *Store) Table(name string, width, height int) (*remap.LookupTable, error) {
	e, err := s.GetExpression(name)
	if err != nil {
		return nil, err
	}

	key := tableKey{name: name, revision: e.RevisionID, width: width, height: height}
	if t, ok := s.tables.get(key); ok {
		return t, nil
	}

	t, err := remap.BuildLookup(e.Tree, width, height)
	if err != nil {
		return nil, fmt.Errorf("building table for '%s': %w", name, err)
	}

	// Drop the table if the expression changed while it was being built.
	s.mu.RLock()
	current, ok := s.expressions[name]
	s.mu.RUnlock()
	if ok && current.RevisionID == e.RevisionID {
		s.tables.set(key, t)
	}
	return t, nil
}

// Stats returns a snapshot of store and cache counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	n := len(s.expressions)
	s.mu.RUnlock()

	st := s.tables.stats()
	st.Expressions = n
	return st
}
