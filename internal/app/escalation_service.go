package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	coreescalation "github.com/example/peerline/internal/core/escalation"
	"github.com/example/peerline/internal/ports/primary"
	"github.com/example/peerline/internal/ports/secondary"
)

// EscalationServiceImpl implements the EscalationService interface.
// Every mutating call is one load followed by one conditional save.
type EscalationServiceImpl struct {
	escalationRepo secondary.EscalationRepository
	logger         *slog.Logger
	metrics        *lifecycleMetrics
	clock          func() time.Time
	newNoteID      func() string
}

// NewEscalationService creates a new EscalationService with injected dependencies.
func NewEscalationService(escalationRepo secondary.EscalationRepository) *EscalationServiceImpl {
	s := &EscalationServiceImpl{
		escalationRepo: escalationRepo,
		logger:         slog.Default(),
		clock:          time.Now,
		newNoteID:      uuid.NewString,
	}
	s.metrics, _ = newLifecycleMetrics(defaultMeter())
	return s
}

// WithClock overrides the clock for deterministic testing.
func (s *EscalationServiceImpl) WithClock(clock func() time.Time) *EscalationServiceImpl {
	s.clock = clock
	return s
}

// WithLogger sets the structured logger.
func (s *EscalationServiceImpl) WithLogger(logger *slog.Logger) *EscalationServiceImpl {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithMeter records lifecycle metrics to meter instead of the global provider.
func (s *EscalationServiceImpl) WithMeter(meter metric.Meter) *EscalationServiceImpl {
	m, err := newLifecycleMetrics(meter)
	if err != nil {
		s.logger.Warn("escalation metrics disabled", "error", err)
		return s
	}
	s.metrics = m
	return s
}

// CreateEscalation records detector output as a new pending escalation.
func (s *EscalationServiceImpl) CreateEscalation(ctx context.Context, req primary.CreateEscalationRequest) (*primary.Escalation, error) {
	level, err := coreescalation.ParseLevel(req.Level)
	if err != nil {
		return nil, err
	}

	nextID, err := s.escalationRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate escalation ID: %w", err)
	}

	record, err := coreescalation.NewRecord(coreescalation.NewRecordParams{
		ID:         nextID,
		ContentRef: req.ContentRef,
		Level:      level,
		Reason:     req.Reason,
	}, s.clock().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.escalationRepo.Create(ctx, toStorage(record)); err != nil {
		return nil, fmt.Errorf("failed to create escalation: %w", err)
	}

	s.logger.Info("escalation created",
		"escalation_id", record.ID,
		"level", string(record.Level),
		"content_ref", record.ContentRef,
	)
	return toEscalation(record), nil
}

// GetEscalation retrieves an escalation by ID.
func (s *EscalationServiceImpl) GetEscalation(ctx context.Context, escalationID string) (*primary.Escalation, error) {
	record, err := s.load(ctx, escalationID)
	if err != nil {
		return nil, err
	}
	return toEscalation(record), nil
}

// ListEscalations lists escalations with optional filters.
func (s *EscalationServiceImpl) ListEscalations(ctx context.Context, filters primary.EscalationFilters) ([]*primary.Escalation, error) {
	records, err := s.escalationRepo.List(ctx, secondary.EscalationFilters{
		Status:     filters.Status,
		Level:      filters.Level,
		AssignedTo: filters.AssignedTo,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}

	escalations := make([]*primary.Escalation, 0, len(records))
	for _, r := range records {
		record, err := fromStorage(r)
		if err != nil {
			return nil, err
		}
		escalations = append(escalations, toEscalation(record))
	}
	return escalations, nil
}

// ListResolved lists escalations resolved at or after since with their response times.
func (s *EscalationServiceImpl) ListResolved(ctx context.Context, since time.Time) ([]*primary.ResolvedEscalation, error) {
	records, err := s.escalationRepo.ListResolved(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolved escalations: %w", err)
	}

	resolved := make([]*primary.ResolvedEscalation, 0, len(records))
	for _, r := range records {
		record, err := fromStorage(r)
		if err != nil {
			return nil, err
		}
		if record.ResolvedAt == nil {
			continue
		}
		resolved = append(resolved, &primary.ResolvedEscalation{
			ID:           record.ID,
			Level:        string(record.Level),
			AssignedTo:   record.AssignedTo,
			DetectedAt:   record.DetectedAt,
			ResolvedAt:   *record.ResolvedAt,
			ResponseTime: coreescalation.Elapsed(record, *record.ResolvedAt),
		})
	}
	return resolved, nil
}

// Assign claims a pending escalation for actor.
func (s *EscalationServiceImpl) Assign(ctx context.Context, escalationID, actor string) (*primary.Escalation, error) {
	return s.mutate(ctx, "assign", escalationID, actor,
		func(r *coreescalation.Record) (*coreescalation.Record, error) {
			return coreescalation.ApplyAssign(r, actor)
		},
		func(fresh *coreescalation.Record) error {
			if fresh.AssignedTo == "" {
				return fmt.Errorf("%w: escalation %s changed while claiming", coreescalation.ErrAlreadyAssigned, fresh.ID)
			}
			return fmt.Errorf("%w: escalation %s was claimed by %s", coreescalation.ErrAlreadyAssigned, fresh.ID, fresh.AssignedTo)
		},
	)
}

// Annotate appends a note to an unresolved escalation.
func (s *EscalationServiceImpl) Annotate(ctx context.Context, escalationID, actor, text string) (*primary.Escalation, error) {
	return s.mutate(ctx, "annotate", escalationID, actor,
		func(r *coreescalation.Record) (*coreescalation.Record, error) {
			return coreescalation.ApplyAnnotate(r, actor, text, s.newNoteID(), s.clock().UTC())
		},
		func(fresh *coreescalation.Record) error {
			if fresh.Status.IsTerminal() {
				return fmt.Errorf("%w: escalation %s was resolved", coreescalation.ErrRecordClosed, fresh.ID)
			}
			return fmt.Errorf("%w: escalation %s changed to %s; reload and retry", coreescalation.ErrInvalidTransition, fresh.ID, fresh.Status)
		},
	)
}

// Resolve closes an escalation owned by actor.
func (s *EscalationServiceImpl) Resolve(ctx context.Context, escalationID, actor, resolutionNote string) (*primary.Escalation, error) {
	resolved, err := s.mutate(ctx, "resolve", escalationID, actor,
		func(r *coreescalation.Record) (*coreescalation.Record, error) {
			return coreescalation.ApplyResolve(r, actor, resolutionNote, s.newNoteID(), s.clock().UTC())
		},
		func(fresh *coreescalation.Record) error {
			return fmt.Errorf("%w: escalation %s changed to %s; reload and retry", coreescalation.ErrInvalidTransition, fresh.ID, fresh.Status)
		},
	)
	if err != nil {
		return nil, err
	}

	s.metrics.recordResolution(ctx, resolved.Level, s.ElapsedTime(resolved))
	return resolved, nil
}

// ElapsedTime returns the response time of an escalation as of now.
func (s *EscalationServiceImpl) ElapsedTime(e *primary.Escalation) time.Duration {
	return coreescalation.Elapsed(&coreescalation.Record{
		DetectedAt: e.DetectedAt,
		ResolvedAt: e.ResolvedAt,
	}, s.clock())
}

// Helper methods

// mutate runs one read-modify-write cycle. onConflict translates a lost
// conditional write into the caller-facing error, given the freshly loaded record.
func (s *EscalationServiceImpl) mutate(
	ctx context.Context,
	operation, escalationID, actor string,
	apply func(*coreescalation.Record) (*coreescalation.Record, error),
	onConflict func(fresh *coreescalation.Record) error,
) (*primary.Escalation, error) {
	current, err := s.load(ctx, escalationID)
	if err != nil {
		s.metrics.recordTransition(ctx, operation, outcomeRejected)
		return nil, err
	}

	next, err := apply(current)
	if err != nil {
		s.metrics.recordTransition(ctx, operation, outcomeRejected)
		return nil, err
	}
	if err := coreescalation.CheckInvariants(next); err != nil {
		s.metrics.recordTransition(ctx, operation, outcomeError)
		return nil, fmt.Errorf("refusing to save escalation: %w", err)
	}

	err = s.escalationRepo.Save(ctx, toStorage(next), secondary.Precondition{
		Status:     string(current.Status),
		AssignedTo: current.AssignedTo,
		NoteCount:  len(current.Notes),
	})
	if errors.Is(err, secondary.ErrConditionFailed) {
		s.metrics.recordTransition(ctx, operation, outcomeConflict)
		s.logger.Warn("escalation changed concurrently",
			"operation", operation,
			"escalation_id", escalationID,
			"actor", actor,
		)
		fresh, lerr := s.load(ctx, escalationID)
		if lerr != nil {
			return nil, lerr
		}
		return nil, onConflict(fresh)
	}
	if err != nil {
		s.metrics.recordTransition(ctx, operation, outcomeError)
		return nil, fmt.Errorf("failed to save escalation: %w", err)
	}

	s.metrics.recordTransition(ctx, operation, outcomeOK)
	s.logger.Info("escalation "+operation,
		"escalation_id", next.ID,
		"actor", actor,
		"status", string(next.Status),
	)
	return toEscalation(next), nil
}

// load fetches the current stored record.
func (s *EscalationServiceImpl) load(ctx context.Context, escalationID string) (*coreescalation.Record, error) {
	r, err := s.escalationRepo.GetByID(ctx, escalationID)
	if errors.Is(err, secondary.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", coreescalation.ErrNotFound, escalationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load escalation: %w", err)
	}
	return fromStorage(r)
}

func fromStorage(r *secondary.EscalationRecord) (*coreescalation.Record, error) {
	level, err := coreescalation.ParseLevel(r.Level)
	if err != nil {
		return nil, fmt.Errorf("escalation %s: %w", r.ID, err)
	}
	status, err := coreescalation.ParseStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("escalation %s: %w", r.ID, err)
	}

	record := &coreescalation.Record{
		ID:         r.ID,
		ContentRef: r.ContentRef,
		Level:      level,
		Reason:     r.Reason,
		Status:     status,
		AssignedTo: r.AssignedTo,
		DetectedAt: r.DetectedAt,
	}
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		record.ResolvedAt = &t
	}
	for _, n := range r.Notes {
		record.Notes = append(record.Notes, coreescalation.Note{
			ID:        n.ID,
			Author:    n.Author,
			Text:      n.Text,
			Kind:      coreescalation.NoteKind(n.Kind),
			CreatedAt: n.CreatedAt,
		})
	}
	return record, nil
}

func toStorage(r *coreescalation.Record) *secondary.EscalationRecord {
	out := &secondary.EscalationRecord{
		ID:         r.ID,
		ContentRef: r.ContentRef,
		Level:      string(r.Level),
		Reason:     r.Reason,
		Status:     string(r.Status),
		AssignedTo: r.AssignedTo,
		DetectedAt: r.DetectedAt,
		ResolvedAt: r.ResolvedAt,
	}
	for _, n := range r.Notes {
		out.Notes = append(out.Notes, &secondary.EscalationNoteRecord{
			ID:        n.ID,
			Author:    n.Author,
			Text:      n.Text,
			Kind:      string(n.Kind),
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

func toEscalation(r *coreescalation.Record) *primary.Escalation {
	e := &primary.Escalation{
		ID:         r.ID,
		ContentRef: r.ContentRef,
		Level:      string(r.Level),
		Reason:     r.Reason,
		Status:     string(r.Status),
		AssignedTo: r.AssignedTo,
		DetectedAt: r.DetectedAt,
		ResolvedAt: r.ResolvedAt,
	}
	for _, n := range r.Notes {
		e.Notes = append(e.Notes, &primary.EscalationNote{
			ID:        n.ID,
			Author:    n.Author,
			Text:      n.Text,
			Kind:      string(n.Kind),
			CreatedAt: n.CreatedAt,
		})
	}
	return e
}

// Ensure EscalationServiceImpl implements the interface
var _ primary.EscalationService = (*EscalationServiceImpl)(nil)
