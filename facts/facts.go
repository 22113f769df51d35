// Package facts stores subject-predicate-object triples in a durable
// append-only YAML list and dual-writes each triple into the vector
// index's fact collection for semantic recall.
//
// Facts are never updated or deleted; duplicates and contradictions are
// kept as written. Like the conversation store, the YAML file assumes a
// single writer per file across processes.
package facts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/wallscreet/iso-agent/core"
	"github.com/wallscreet/iso-agent/memory"
)

// Collection is the vector index collection facts are indexed into.
const Collection = "facts"

// Store is an append-only fact store over one YAML file plus a vector
// index.
type Store struct {
	path  string
	index memory.Index
	mu    sync.Mutex
}

// factFile is the on-disk record shape: {facts: [...]}.
type factFile struct {
	Facts []core.Fact `yaml:"facts"`
}

// New creates a fact store over path, creating an empty fact file when
// none exists.
func New(path string, index memory.Index) (*Store, error) {
	if index == nil {
		return nil, fmt.Errorf("vector index is required")
	}
	s := &Store{path: path, index: index}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(factFile{Facts: []core.Fact{}}); err != nil {
			return nil, fmt.Errorf("initialize fact file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat fact file: %w", err)
	}

	return s, nil
}

// Append adds the fact to the durable list, then indexes its serialized
// form into the fact collection. The durable append happens first; an
// index failure is surfaced but the fact stays appended.
func (s *Store) Append(ctx context.Context, fact core.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read()
	if err != nil {
		return err
	}
	file.Facts = append(file.Facts, fact)
	if err := s.write(file); err != nil {
		return err
	}

	log.Printf("[FACTS] Appended fact: %s", fact.MemoryString())

	metadata := map[string]string{
		"subject":   fact.Subject,
		"predicate": fact.Predicate,
		"object":    fact.Object,
		"timestamp": time.Now().Format(time.RFC3339),
		"type":      "fact",
	}
	if err := s.index.Store(ctx, Collection, uuid.New().String(), fact.MemoryString(), metadata); err != nil {
		return fmt.Errorf("index fact: %w", err)
	}
	return nil
}

// Retrieve returns semantically relevant facts, reconstructed from index
// metadata only.
func (s *Store) Retrieve(ctx context.Context, query string, topK int) ([]core.Fact, error) {
	return s.index.RetrieveFacts(ctx, Collection, query, topK)
}

// All returns the durable fact list in append order.
func (s *Store) All(ctx context.Context) ([]core.Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.read()
	if err != nil {
		return nil, err
	}
	return file.Facts, nil
}

func (s *Store) read() (factFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return factFile{}, fmt.Errorf("read fact file: %w", err)
	}

	var file factFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return factFile{}, fmt.Errorf("parse fact file %s: %w", s.path, err)
	}
	return file, nil
}

func (s *Store) write(file factFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write fact file: %w", err)
	}
	return nil
}
