package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/peerline/internal/adapters/sqlite"
	"github.com/example/peerline/internal/app"
	coreescalation "github.com/example/peerline/internal/core/escalation"
	"github.com/example/peerline/internal/ports/primary"
	"github.com/example/peerline/internal/ports/secondary"
)

// interleavingRepository runs interleave once, right before the first Save
// reaches the store, so a rival writer commits between this writer's load and save.
type interleavingRepository struct {
	secondary.EscalationRepository
	once       sync.Once
	interleave func()
}

func (r *interleavingRepository) Save(ctx context.Context, e *secondary.EscalationRecord, expected secondary.Precondition) error {
	r.once.Do(r.interleave)
	return r.EscalationRepository.Save(ctx, e, expected)
}

func fixedClock() time.Time {
	return seedDetectedAt.Add(30 * time.Minute)
}

// newRacingServices returns a rival service on the store and a service whose
// first save is preceded by interleave(rival).
func newRacingServices(t *testing.T, interleave func(rival *app.EscalationServiceImpl)) (writer, rival *app.EscalationServiceImpl) {
	t.Helper()
	repo := sqlite.NewEscalationRepository(setupTestDB(t), nil)
	rival = app.NewEscalationService(repo).WithClock(fixedClock)
	wrapped := &interleavingRepository{EscalationRepository: repo}
	wrapped.interleave = func() { interleave(rival) }
	writer = app.NewEscalationService(wrapped).WithClock(fixedClock)
	return writer, rival
}

func createClaimed(t *testing.T, service primary.EscalationService, owner string) *primary.Escalation {
	t.Helper()
	ctx := context.Background()
	e, err := service.CreateEscalation(ctx, primary.CreateEscalationRequest{
		ContentRef: "post/7", Level: "critical", Reason: "threat of self-harm",
	})
	if err != nil {
		t.Fatalf("CreateEscalation failed: %v", err)
	}
	if owner == "" {
		return e
	}
	e, err = service.Assign(ctx, e.ID, owner)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	return e
}

func TestEscalationService_SQLite_InterleavedWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent annotations both survive", func(t *testing.T) {
		var id string
		writer, rival := newRacingServices(t, func(rival *app.EscalationServiceImpl) {
			if _, err := rival.Annotate(ctx, id, "carol", "carol note"); err != nil {
				t.Errorf("rival Annotate failed: %v", err)
			}
		})
		id = createClaimed(t, rival, "alice").ID

		if _, err := writer.Annotate(ctx, id, "alice", "alice note"); err != nil {
			t.Fatalf("Annotate failed: %v", err)
		}

		stored, err := rival.GetEscalation(ctx, id)
		if err != nil {
			t.Fatalf("GetEscalation failed: %v", err)
		}
		if len(stored.Notes) != 2 {
			t.Fatalf("len(Notes) = %d, want 2: %+v", len(stored.Notes), stored.Notes)
		}
		if stored.Notes[0].Text != "carol note" || stored.Notes[1].Text != "alice note" {
			t.Errorf("notes = %q, %q", stored.Notes[0].Text, stored.Notes[1].Text)
		}
	})

	t.Run("resolve racing an annotation keeps the resolution note", func(t *testing.T) {
		var id string
		writer, rival := newRacingServices(t, func(rival *app.EscalationServiceImpl) {
			if _, err := rival.Annotate(ctx, id, "carol", "carol note"); err != nil {
				t.Errorf("rival Annotate failed: %v", err)
			}
		})
		id = createClaimed(t, rival, "alice").ID

		if _, err := writer.Resolve(ctx, id, "alice", "referred to counselling"); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		stored, _ := rival.GetEscalation(ctx, id)
		if stored.Status != primary.EscalationStatusResolved {
			t.Errorf("Status = %q, want resolved", stored.Status)
		}
		if len(stored.Notes) != 2 {
			t.Fatalf("len(Notes) = %d, want 2: %+v", len(stored.Notes), stored.Notes)
		}
		last := stored.Notes[len(stored.Notes)-1]
		if last.Kind != "resolution" || last.Text != coreescalation.ResolutionPrefix+"referred to counselling" {
			t.Errorf("last note = %+v, want the resolution note", last)
		}
	})

	t.Run("annotation racing a resolve is refused", func(t *testing.T) {
		var id string
		writer, rival := newRacingServices(t, func(rival *app.EscalationServiceImpl) {
			if _, err := rival.Resolve(ctx, id, "alice", "referred"); err != nil {
				t.Errorf("rival Resolve failed: %v", err)
			}
		})
		id = createClaimed(t, rival, "alice").ID

		_, err := writer.Annotate(ctx, id, "alice", "late note")
		if !errors.Is(err, coreescalation.ErrRecordClosed) {
			t.Fatalf("error = %v, want ErrRecordClosed", err)
		}

		stored, _ := rival.GetEscalation(ctx, id)
		if len(stored.Notes) != 1 || stored.Notes[0].Kind != "resolution" {
			t.Errorf("notes = %+v, want only the resolution note", stored.Notes)
		}
	})

	t.Run("assign racing an assign has one winner", func(t *testing.T) {
		var id string
		writer, rival := newRacingServices(t, func(rival *app.EscalationServiceImpl) {
			if _, err := rival.Assign(ctx, id, "bob"); err != nil {
				t.Errorf("rival Assign failed: %v", err)
			}
		})
		id = createClaimed(t, rival, "").ID

		_, err := writer.Assign(ctx, id, "alice")
		if !errors.Is(err, coreescalation.ErrAlreadyAssigned) {
			t.Fatalf("error = %v, want ErrAlreadyAssigned", err)
		}

		stored, _ := rival.GetEscalation(ctx, id)
		if stored.AssignedTo != "bob" {
			t.Errorf("AssignedTo = %q, want bob", stored.AssignedTo)
		}
	})
}

func TestEscalationService_SQLite_ConcurrentAssign(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewEscalationRepository(setupTestDB(t), nil)
	e := createClaimed(t, app.NewEscalationService(repo), "")

	actors := []string{"alice", "bob", "carol", "dana", "erin"}
	errs := make([]error, len(actors))

	var start, done sync.WaitGroup
	start.Add(1)
	for i, actor := range actors {
		done.Add(1)
		go func(i int, actor string) {
			defer done.Done()
			service := app.NewEscalationService(repo)
			start.Wait()
			_, errs[i] = service.Assign(ctx, e.ID, actor)
		}(i, actor)
	}
	start.Done()
	done.Wait()

	winner := ""
	for i, err := range errs {
		switch {
		case err == nil:
			if winner != "" {
				t.Fatalf("both %s and %s won the claim", winner, actors[i])
			}
			winner = actors[i]
		case !errors.Is(err, coreescalation.ErrAlreadyAssigned):
			t.Errorf("%s error = %v, want ErrAlreadyAssigned", actors[i], err)
		}
	}
	if winner == "" {
		t.Fatal("no actor won the claim")
	}

	stored, err := repo.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != "in-progress" || stored.AssignedTo != winner {
		t.Errorf("stored = %s/%q, want in-progress/%q", stored.Status, stored.AssignedTo, winner)
	}
}
