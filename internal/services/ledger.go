package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/repos"
	"github.com/gracepointe/growthtrack-backend/internal/requestdata"
	"github.com/gracepointe/growthtrack-backend/internal/scope"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

type CompletionRate struct {
	Completed int64   `json:"completed"`
	Total     int64   `json:"total"`
	Rate      float64 `json:"rate"`
}

// LedgerService owns the per-person progress records and their invariants:
// one record per active stage per person, and the attendance-derived stage
// writable only through the attendance path. The unexported methods are the
// in-package seams used by the attendance counter and reconciliation jobs.
type LedgerService interface {
	Get(ctx context.Context, personID uuid.UUID) ([]*types.ProgressRecord, error)
	CompletionRate(ctx context.Context, personID uuid.UUID) (CompletionRate, error)
	Upsert(ctx context.Context, personID uuid.UUID, stage int, completed bool) (*types.ProgressRecord, error)
	EnsureComplete(ctx context.Context, personID uuid.UUID) (int64, error)

	ensureCompleteTx(ctx context.Context, tx *gorm.DB, personID uuid.UUID) (int64, error)
	applyDerived(ctx context.Context, tx *gorm.DB, personID uuid.UUID, stage int, completed bool, actorID *uuid.UUID) (*types.ProgressRecord, error)
}

type ledgerService struct {
	db            *gorm.DB
	log           *logger.Logger
	personRepo    repos.PersonRepo
	progressRepo  repos.ProgressRepo
	milestoneRepo repos.MilestoneRepo
	notifier      Notifier
}

func NewLedgerService(
	db *gorm.DB,
	log *logger.Logger,
	personRepo repos.PersonRepo,
	progressRepo repos.ProgressRepo,
	milestoneRepo repos.MilestoneRepo,
	notifier Notifier,
) LedgerService {
	serviceLog := log.With("service", "LedgerService")
	return &ledgerService{
		db:            db,
		log:           serviceLog,
		personRepo:    personRepo,
		progressRepo:  progressRepo,
		milestoneRepo: milestoneRepo,
		notifier:      notifier,
	}
}

func (s *ledgerService) Get(ctx context.Context, personID uuid.UUID) ([]*types.ProgressRecord, error) {
	person, err := s.visiblePerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	rows, err := s.progressRepo.ListByPersonID(ctx, nil, person.ID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return rows, nil
}

func (s *ledgerService) CompletionRate(ctx context.Context, personID uuid.UUID) (CompletionRate, error) {
	person, err := s.visiblePerson(ctx, personID)
	if err != nil {
		return CompletionRate{}, err
	}
	total, completed, err := s.progressRepo.CountByPerson(ctx, nil, person.ID)
	if err != nil {
		return CompletionRate{}, apierr.Internal(err)
	}
	rate := CompletionRate{Completed: completed, Total: total}
	if total > 0 {
		rate.Rate = float64(completed) / float64(total)
	}
	return rate, nil
}

// Upsert is the operator toggle for ordinary stages. The attendance-derived
// stage is rejected here; only the attendance counter sets it, through
// applyDerived.
func (s *ledgerService) Upsert(ctx context.Context, personID uuid.UUID, stage int, completed bool) (*types.ProgressRecord, error) {
	p := requestdata.GetPrincipal(ctx)
	person, err := s.writablePerson(ctx, p, personID)
	if err != nil {
		return nil, err
	}

	def, err := s.milestoneRepo.GetByStageNumber(ctx, nil, stage)
	if err != nil {
		return nil, apierr.FromStore(err, "stage %d", stage)
	}
	if !def.Active {
		return nil, apierr.Validation("stage %d is not active", stage)
	}
	if def.AutoDerived {
		return nil, apierr.Validation("this milestone is computed automatically from attendance")
	}

	var actorID *uuid.UUID
	if p != nil {
		actorID = &p.UserID
	}

	var row *types.ProgressRecord
	var becameComplete bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prev, err := s.progressRepo.GetByPersonStage(ctx, tx, person.ID, stage)
		wasCompleted := err == nil && prev.Completed
		row, err = s.setCompletion(ctx, tx, person.ID, stage, completed, actorID)
		if err != nil {
			return err
		}
		becameComplete = completed && !wasCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	if becameComplete && person.Phone != "" {
		s.notifier.Dispatch(ctx, []Notification{
			milestoneNotification(person.ID, person.Phone, person.FirstName, def.Name),
		})
	}
	return row, nil
}

func (s *ledgerService) EnsureComplete(ctx context.Context, personID uuid.UUID) (int64, error) {
	p := requestdata.GetPrincipal(ctx)
	person, err := s.writablePerson(ctx, p, personID)
	if err != nil {
		return 0, err
	}
	var inserted int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		inserted, txErr = s.ensureCompleteTx(ctx, tx, person.ID)
		return txErr
	})
	return inserted, err
}

// ensureCompleteTx diffs the active catalog against the person's records and
// inserts whatever is missing as incomplete. Insert-if-absent on the
// (person, stage) key keeps concurrent repairs of the same person safe.
func (s *ledgerService) ensureCompleteTx(ctx context.Context, tx *gorm.DB, personID uuid.UUID) (int64, error) {
	defs, err := s.milestoneRepo.ListActive(ctx, tx)
	if err != nil {
		return 0, apierr.Internal(err)
	}
	existing, err := s.progressRepo.ListByPersonID(ctx, tx, personID)
	if err != nil {
		return 0, apierr.Internal(err)
	}
	have := make(map[int]struct{}, len(existing))
	for _, row := range existing {
		have[row.StageNumber] = struct{}{}
	}

	var missing []*types.ProgressRecord
	for _, def := range defs {
		if _, ok := have[def.StageNumber]; ok {
			continue
		}
		missing = append(missing, &types.ProgressRecord{
			PersonID:    personID,
			StageNumber: def.StageNumber,
			Completed:   false,
		})
	}
	inserted, err := s.progressRepo.InsertMissing(ctx, tx, missing)
	if err != nil {
		return 0, apierr.Internal(err)
	}
	return inserted, nil
}

// applyDerived is the attendance counter's write path into the ledger. It
// bypasses the auto-derived guard and must run inside the same transaction as
// the attendance change it reflects.
func (s *ledgerService) applyDerived(ctx context.Context, tx *gorm.DB, personID uuid.UUID, stage int, completed bool, actorID *uuid.UUID) (*types.ProgressRecord, error) {
	return s.setCompletion(ctx, tx, personID, stage, completed, actorID)
}

// setCompletion writes the completion state as a total function of the
// boolean: true stamps today's date, false clears it, and re-setting the same
// value is a no-op that still bumps the updated timestamp.
func (s *ledgerService) setCompletion(ctx context.Context, tx *gorm.DB, personID uuid.UUID, stage int, completed bool, actorID *uuid.UUID) (*types.ProgressRecord, error) {
	row, err := s.progressRepo.GetByPersonStage(ctx, tx, personID, stage)
	if err != nil {
		row = &types.ProgressRecord{PersonID: personID, StageNumber: stage}
		if _, err := s.progressRepo.InsertMissing(ctx, tx, []*types.ProgressRecord{row}); err != nil {
			return nil, apierr.Internal(err)
		}
		row, err = s.progressRepo.GetByPersonStage(ctx, tx, personID, stage)
		if err != nil {
			return nil, apierr.Internal(err)
		}
	}

	row.Completed = completed
	if completed {
		now := time.Now().UTC()
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		row.CompletionDate = &day
	} else {
		row.CompletionDate = nil
	}
	row.UpdatedByID = actorID

	if err := s.progressRepo.Save(ctx, tx, row); err != nil {
		return nil, apierr.Internal(err)
	}
	return row, nil
}

func (s *ledgerService) visiblePerson(ctx context.Context, personID uuid.UUID) (*types.Person, error) {
	person, err := s.personRepo.GetByID(ctx, nil, personID)
	if err != nil {
		return nil, apierr.FromStore(err, "person %s", personID)
	}
	if err := scope.ResolveRecordRead(requestdata.GetPrincipal(ctx), person.GroupID); err != nil {
		return nil, err
	}
	return person, nil
}

func (s *ledgerService) writablePerson(ctx context.Context, p *requestdata.Principal, personID uuid.UUID) (*types.Person, error) {
	person, err := s.personRepo.GetByID(ctx, nil, personID)
	if err != nil {
		return nil, apierr.FromStore(err, "person %s", personID)
	}
	if err := scope.ResolveWrite(p, person.GroupID); err != nil {
		return nil, err
	}
	return person, nil
}
