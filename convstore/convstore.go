// Package convstore persists conversations as a keyed list of YAML
// records. It is the authoritative owner of conversation state; caches
// and vector projections derive from it.
//
// Writes are read-modify-write over the whole file with no file locking:
// in-process writers are serialized by a mutex, but concurrent processes
// writing the same file are last-writer-wins. Callers must ensure a
// single writer per conversation file.
package convstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/wallscreet/iso-agent/core"
)

// ErrNotFound is returned when a conversation id is absent from the store.
var ErrNotFound = errors.New("conversation not found")

// Store is a YAML-backed conversation store over a single file.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a store over path, creating an empty record file when none
// exists.
func New(path string) (*Store, error) {
	s := &Store{path: path}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.writeAll(nil); err != nil {
			return nil, fmt.Errorf("initialize conversation file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat conversation file: %w", err)
	}

	return s, nil
}

// Load returns the conversation with the given id, or ErrNotFound.
// A malformed record file fails fast; there is no auto-repair.
func (s *Store) Load(ctx context.Context, id string) (core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(id)
}

// GetOrCreate loads the conversation by id, creating and persisting an
// empty one when absent. Repeated calls with the same id never create
// duplicate records.
func (s *Store) GetOrCreate(ctx context.Context, id string, host, guest core.Identity) (core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convo, err := s.loadLocked(id)
	if err == nil {
		return convo, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return core.Conversation{}, err
	}

	convo = core.NewConversation(id, host, guest)
	if err := s.saveLocked(convo); err != nil {
		return core.Conversation{}, err
	}

	log.Printf("[CONVSTORE] New conversation %s started", id)
	return convo, nil
}

// AppendTurn allocates the next turn number, appends the request/response
// pair, advances LastActive to the response timestamp, and persists the
// entire conversation record. The passed conversation is updated in place
// to match the stored state.
func (s *Store) AppendTurn(ctx context.Context, convo *core.Conversation, request, response core.Message) (core.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn := core.Turn{
		ID:             uuid.New().String(),
		ConversationID: convo.ID,
		TurnNumber:     convo.NextTurnNumber(),
		Request:        request,
		Response:       response,
	}

	prevLastActive := convo.LastActive
	convo.Turns = append(convo.Turns, turn)
	convo.LastActive = response.Timestamp

	if err := s.saveLocked(*convo); err != nil {
		// Roll back the in-memory append so the caller's copy stays
		// consistent with durable state.
		convo.Turns = convo.Turns[:len(convo.Turns)-1]
		convo.LastActive = prevLastActive
		return core.Turn{}, err
	}

	return turn, nil
}

// RecentTurns returns the last n turns of a conversation in original
// order, for rebuilding the short-term cache after a restart.
func (s *Store) RecentTurns(ctx context.Context, id string, n int) ([]core.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convo, err := s.loadLocked(id)
	if err != nil {
		return nil, err
	}
	return convo.RecentTurns(n), nil
}

func (s *Store) loadLocked(id string) (core.Conversation, error) {
	records, err := s.readAll()
	if err != nil {
		return core.Conversation{}, err
	}
	for _, convo := range records {
		if convo.ID == id {
			return convo, nil
		}
	}
	return core.Conversation{}, fmt.Errorf("conversation %q: %w", id, ErrNotFound)
}

// saveLocked upserts one conversation into the record list and rewrites
// the file.
func (s *Store) saveLocked(convo core.Conversation) error {
	records, err := s.readAll()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range records {
		if existing.ID == convo.ID {
			records[i] = convo
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, convo)
	}

	return s.writeAll(records)
}

func (s *Store) readAll() ([]core.Conversation, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read conversation file: %w", err)
	}

	var records []core.Conversation
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse conversation file %s: %w", s.path, err)
	}
	return records, nil
}

func (s *Store) writeAll(records []core.Conversation) error {
	if records == nil {
		records = []core.Conversation{}
	}
	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal conversation records: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write conversation file: %w", err)
	}
	return nil
}
