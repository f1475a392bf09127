package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/peerline/internal/ports/secondary"
)

// Ensure mockEscalationRepository implements the interface
var _ secondary.EscalationRepository = (*mockEscalationRepository)(nil)

// mockEscalationRepository implements secondary.EscalationRepository for testing.
// Save honours the precondition and appends only new notes, so racing callers
// behave like a real store.
type mockEscalationRepository struct {
	mu          sync.Mutex
	escalations map[string]*secondary.EscalationRecord
	nextID      int

	// beforeSave runs inside Save before the precondition check, with the lock held.
	beforeSave func(m *mockEscalationRepository, id string)
	saveErr    error
	getErr     error
	saveCalls  int
}

func newMockEscalationRepository() *mockEscalationRepository {
	return &mockEscalationRepository{
		escalations: make(map[string]*secondary.EscalationRecord),
		nextID:      1,
	}
}

func copyRecord(r *secondary.EscalationRecord) *secondary.EscalationRecord {
	c := *r
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		c.ResolvedAt = &t
	}
	c.Notes = make([]*secondary.EscalationNoteRecord, len(r.Notes))
	for i, n := range r.Notes {
		nc := *n
		c.Notes[i] = &nc
	}
	return &c
}

func (m *mockEscalationRepository) Create(ctx context.Context, escalation *secondary.EscalationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.escalations[escalation.ID]; ok {
		return fmt.Errorf("escalation %s already exists", escalation.ID)
	}
	m.escalations[escalation.ID] = copyRecord(escalation)
	return nil
}

func (m *mockEscalationRepository) GetByID(ctx context.Context, id string) (*secondary.EscalationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	e, ok := m.escalations[id]
	if !ok {
		return nil, fmt.Errorf("escalation %s: %w", id, secondary.ErrNotFound)
	}
	return copyRecord(e), nil
}

func (m *mockEscalationRepository) Save(ctx context.Context, escalation *secondary.EscalationRecord, expected secondary.Precondition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.beforeSave != nil {
		hook := m.beforeSave
		m.beforeSave = nil
		hook(m, escalation.ID)
	}

	stored, ok := m.escalations[escalation.ID]
	if !ok {
		return fmt.Errorf("escalation %s: %w", escalation.ID, secondary.ErrNotFound)
	}
	if stored.Status != expected.Status || stored.AssignedTo != expected.AssignedTo {
		return secondary.ErrConditionFailed
	}
	if expected.NoteCount > len(escalation.Notes) {
		return fmt.Errorf("escalation %s: notes journal cannot shrink", escalation.ID)
	}
	next := copyRecord(escalation)
	next.Notes = append(stored.Notes, next.Notes[expected.NoteCount:]...)
	m.escalations[escalation.ID] = next
	return nil
}

func (m *mockEscalationRepository) List(ctx context.Context, filters secondary.EscalationFilters) ([]*secondary.EscalationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*secondary.EscalationRecord
	for _, e := range m.escalations {
		if filters.Status != "" && e.Status != filters.Status {
			continue
		}
		if filters.Level != "" && e.Level != filters.Level {
			continue
		}
		if filters.AssignedTo != "" && e.AssignedTo != filters.AssignedTo {
			continue
		}
		result = append(result, copyRecord(e))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DetectedAt.After(result[j].DetectedAt) })
	return result, nil
}

func (m *mockEscalationRepository) ListResolved(ctx context.Context, since time.Time) ([]*secondary.EscalationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*secondary.EscalationRecord
	for _, e := range m.escalations {
		if e.Status != "resolved" || e.ResolvedAt == nil || e.ResolvedAt.Before(since) {
			continue
		}
		c := copyRecord(e)
		c.Notes = nil
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ResolvedAt.Before(*result[j].ResolvedAt) })
	return result, nil
}

func (m *mockEscalationRepository) GetNextID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	return fmt.Sprintf("ESC-%03d", id), nil
}

// fakeClock is a settable clock for deterministic timestamps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
