package statestore

import (
	"fmt"
	"sync"

	"github.com/surfdeck/surfdeck/errors"
)

// Sender writes one outbound protocol message. The client's connection
// manager implements it; tests substitute a recorder. Keeping the wire
// behind this interface makes the diff-suppression logic testable without
// sockets.
type Sender interface {
	Send(payload map[string]any) error
}

// Origin records how a state entered the store.
type Origin int

// State origins
const (
	// OriginStatic marks states declared in the plugin descriptor and
	// seeded into the store before connecting.
	OriginStatic Origin = iota
	// OriginRuntime marks states created dynamically with CreateOrUpdateState.
	OriginRuntime
)

// StateRecord is the store's view of one plugin state.
type StateRecord struct {
	ID          string
	Description string
	Value       string
	Origin      Origin
}

type heldKey struct {
	actionID   string
	instanceID string
}

// Store is the thread-safe registry of runtime states, settings, and
// held-action flags. All mutation paths are safe to call concurrently from
// dispatched handlers and the connection loop; a single store lock covers
// the check-then-send sequence so no two consecutive writes for the same key
// ever carry the same value.
type Store struct {
	mu             sync.Mutex
	sender         Sender
	states         map[string]*StateRecord
	settings       map[string]string
	held           map[heldKey]bool
	implicitCreate bool
	observer       Observer
}

// Observer receives store activity for instrumentation. metric.Metrics
// satisfies it.
type Observer interface {
	RecordStatesTracked(count int)
	RecordSuppressedUpdate()
}

// Option configures a Store.
type Option func(*Store)

// WithoutImplicitCreate makes UpdateState report a usage error for unknown
// ids instead of creating them on first write.
func WithoutImplicitCreate() Option {
	return func(s *Store) {
		s.implicitCreate = false
	}
}

// WithObserver attaches an instrumentation observer.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// New creates a state store that writes through sender.
func New(sender Sender, opts ...Option) *Store {
	s := &Store{
		sender:         sender,
		states:         make(map[string]*StateRecord),
		settings:       make(map[string]string),
		held:           make(map[heldKey]bool),
		implicitCreate: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterStatic seeds a descriptor-declared state without a wire write.
// Registering an id twice keeps the first record.
func (s *Store) RegisterStatic(id, description, value string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.states[id]; exists {
		return
	}
	s.states[id] = &StateRecord{ID: id, Description: description, Value: value, Origin: OriginStatic}
	s.trackStatesLocked()
}

func (s *Store) trackStatesLocked() {
	if s.observer != nil {
		s.observer.RecordStatesTracked(len(s.states))
	}
}

func (s *Store) suppressedLocked() {
	if s.observer != nil {
		s.observer.RecordSuppressedUpdate()
	}
}

// CreateOrUpdateState creates a new runtime state, or degrades to a value
// update when the id already exists. On update the original description is
// preserved. Create is therefore idempotent.
func (s *Store) CreateOrUpdateState(id, description, value string) error {
	if id == "" {
		return errors.WrapUsage(errors.ErrEmptyIdentifier, "Store", "CreateOrUpdateState", "id check")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if record, exists := s.states[id]; exists {
		return s.updateLocked(record, value)
	}

	if err := s.sender.Send(map[string]any{
		"type":         "createState",
		"id":           id,
		"desc":         description,
		"defaultValue": value,
	}); err != nil {
		return err
	}
	s.states[id] = &StateRecord{ID: id, Description: description, Value: value, Origin: OriginRuntime}
	s.trackStatesLocked()
	return nil
}

// RemoveState deletes a state. Removing an unknown id is a no-op, not an
// error.
func (s *Store) RemoveState(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.states[id]; !exists {
		return nil
	}
	if err := s.sender.Send(map[string]any{"type": "removeState", "id": id}); err != nil {
		return err
	}
	delete(s.states, id)
	s.trackStatesLocked()
	return nil
}

// UpdateState writes a new value for a state. The write reaches the wire
// only when the value differs from the last sent value for that id (string
// equality); repeated identical updates are suppressed.
func (s *Store) UpdateState(id, value string) error {
	if id == "" {
		return errors.WrapUsage(errors.ErrEmptyIdentifier, "Store", "UpdateState", "id check")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.states[id]
	if !exists {
		if !s.implicitCreate {
			return errors.WrapUsage(
				fmt.Errorf("%w: %q", errors.ErrUnknownState, id),
				"Store", "UpdateState", "implicit creation disabled")
		}
		if err := s.sendStateLocked(id, value); err != nil {
			return err
		}
		s.states[id] = &StateRecord{ID: id, Value: value, Origin: OriginRuntime}
		s.trackStatesLocked()
		return nil
	}
	return s.updateLocked(record, value)
}

func (s *Store) updateLocked(record *StateRecord, value string) error {
	if record.Value == value {
		s.suppressedLocked()
		return nil
	}
	if err := s.sendStateLocked(record.ID, value); err != nil {
		return err
	}
	record.Value = value
	return nil
}

func (s *Store) sendStateLocked(id, value string) error {
	return s.sender.Send(map[string]any{"type": "stateUpdate", "id": id, "value": value})
}

// ResendAll re-sends every known state value regardless of the suppression
// cache. Used for the bulk refresh after a controller page change.
func (s *Store) ResendAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, record := range s.states {
		if err := s.sendStateLocked(id, record.Value); err != nil {
			return err
		}
	}
	return nil
}

// UpdateSetting writes a new value for a plugin setting, with the same
// diff-suppression rule as states, keyed by setting name.
func (s *Store) UpdateSetting(name, value string) error {
	if name == "" {
		return errors.WrapUsage(errors.ErrEmptyIdentifier, "Store", "UpdateSetting", "name check")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, exists := s.settings[name]; exists && last == value {
		s.suppressedLocked()
		return nil
	}
	if err := s.sender.Send(map[string]any{"type": "settingUpdate", "name": name, "value": value}); err != nil {
		return err
	}
	s.settings[name] = value
	return nil
}

// SetHeld records or clears hold status for one (action, instance) pair.
func (s *Store) SetHeld(actionID, instanceID string, held bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := heldKey{actionID: actionID, instanceID: instanceID}
	if held {
		s.held[key] = true
		return
	}
	delete(s.held, key)
}

// IsHeld reports whether any instance of an action is currently held.
// Actions never tracked report not-held.
func (s *Store) IsHeld(actionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.held {
		if key.actionID == actionID {
			return true
		}
	}
	return false
}

// ClearHeld drops all hold tracking. Called on disconnect, since the
// controller cannot deliver the matching hold-end after the socket closes.
func (s *Store) ClearHeld() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = make(map[heldKey]bool)
}

// State returns a copy of the record for id.
func (s *Store) State(id string) (StateRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.states[id]
	if !ok {
		return StateRecord{}, false
	}
	return *record, true
}

// States returns a copy of all current state values keyed by id.
func (s *Store) States() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.states))
	for id, record := range s.states {
		out[id] = record.Value
	}
	return out
}

// Setting returns the last sent value for a setting name.
func (s *Store) Setting(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.settings[name]
	return value, ok
}
