package services

import (
	"context"
	"errors"
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

// defaultAttendanceGoal is the visit count that flips the derived milestone
// when ATTENDANCE_GOAL is unset.
const defaultAttendanceGoal = 20

// AttendanceService is the append-mostly event log per person, and the only
// writer of the attendance-derived milestone. Every committed attendance
// change leaves the derived stage consistent with the count; a concurrent
// reader never sees one without the other.
type AttendanceService interface {
	Record(ctx context.Context, personID uuid.UUID, date time.Time) (*types.AttendanceRecord, error)
	Count(ctx context.Context, personID uuid.UUID) (int64, error)
	List(ctx context.Context, personID uuid.UUID) ([]*types.AttendanceRecord, error)
	Recompute(ctx context.Context, personID uuid.UUID) (bool, error)
	Delete(ctx context.Context, recordID uuid.UUID) error

	recomputeTx(ctx context.Context, tx *gorm.DB, personID uuid.UUID, actorID *uuid.UUID) (derivedState, error)
}

// derivedState is what a recompute concluded inside its transaction.
type derivedState struct {
	hasAuto   bool
	stage     int
	count     int64
	completed bool
	changed   bool
	crossed   bool
}

type attendanceService struct {
	db             *gorm.DB
	log            *logger.Logger
	personRepo     repos.PersonRepo
	attendanceRepo repos.AttendanceRepo
	progressRepo   repos.ProgressRepo
	milestoneRepo  repos.MilestoneRepo
	ledger         LedgerService
	notifier       Notifier
	goal           int
}

func NewAttendanceService(
	db *gorm.DB,
	log *logger.Logger,
	personRepo repos.PersonRepo,
	attendanceRepo repos.AttendanceRepo,
	progressRepo repos.ProgressRepo,
	milestoneRepo repos.MilestoneRepo,
	ledger LedgerService,
	notifier Notifier,
	goal int,
) AttendanceService {
	serviceLog := log.With("service", "AttendanceService")
	if goal <= 0 {
		goal = defaultAttendanceGoal
	}
	return &attendanceService{
		db:             db,
		log:            serviceLog,
		personRepo:     personRepo,
		attendanceRepo: attendanceRepo,
		progressRepo:   progressRepo,
		milestoneRepo:  milestoneRepo,
		ledger:         ledger,
		notifier:       notifier,
		goal:           goal,
	}
}

// Record appends one attendance day and re-derives the auto milestone in the
// same transaction. Duplicate (person, day) attempts fail with Conflict and
// leave the count untouched.
func (s *attendanceService) Record(ctx context.Context, personID uuid.UUID, date time.Time) (*types.AttendanceRecord, error) {
	p := requestdata.GetPrincipal(ctx)
	person, err := s.personRepo.GetByID(ctx, nil, personID)
	if err != nil {
		return nil, apierr.FromStore(err, "person %s", personID)
	}
	if err := scope.ResolveWrite(p, person.GroupID); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, apierr.Validation("attendance date is required")
	}

	var actorID *uuid.UUID
	if p != nil {
		actorID = &p.UserID
	}

	row := &types.AttendanceRecord{
		PersonID:     person.ID,
		DateAttended: dateOnly(date),
		RecordedByID: actorID,
	}

	var state derivedState
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.attendanceRepo.Create(ctx, tx, row); err != nil {
			return apierr.FromStore(err, "attendance already recorded for this person on %s",
				row.DateAttended.Format("2006-01-02"))
		}
		var txErr error
		state, txErr = s.recomputeTx(ctx, tx, person.ID, actorID)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	if state.crossed && person.Phone != "" {
		s.notifier.Dispatch(ctx, []Notification{
			attendanceGoalNotification(person.ID, person.Phone, person.FirstName, s.goal),
		})
	}
	return row, nil
}

func (s *attendanceService) Count(ctx context.Context, personID uuid.UUID) (int64, error) {
	person, err := s.personRepo.GetByID(ctx, nil, personID)
	if err != nil {
		return 0, apierr.FromStore(err, "person %s", personID)
	}
	if err := scope.ResolveRecordRead(requestdata.GetPrincipal(ctx), person.GroupID); err != nil {
		return 0, err
	}
	n, err := s.attendanceRepo.CountByPersonID(ctx, nil, person.ID)
	if err != nil {
		return 0, apierr.Internal(err)
	}
	return n, nil
}

func (s *attendanceService) List(ctx context.Context, personID uuid.UUID) ([]*types.AttendanceRecord, error) {
	person, err := s.personRepo.GetByID(ctx, nil, personID)
	if err != nil {
		return nil, apierr.FromStore(err, "person %s", personID)
	}
	if err := scope.ResolveRecordRead(requestdata.GetPrincipal(ctx), person.GroupID); err != nil {
		return nil, err
	}
	rows, err := s.attendanceRepo.ListByPersonID(ctx, nil, person.ID)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return rows, nil
}

// Recompute re-derives the auto milestone from the current count. Reports the
// resulting completion state.
func (s *attendanceService) Recompute(ctx context.Context, personID uuid.UUID) (bool, error) {
	p := requestdata.GetPrincipal(ctx)
	person, err := s.personRepo.GetByID(ctx, nil, personID)
	if err != nil {
		return false, apierr.FromStore(err, "person %s", personID)
	}
	if err := scope.ResolveWrite(p, person.GroupID); err != nil {
		return false, err
	}
	var actorID *uuid.UUID
	if p != nil {
		actorID = &p.UserID
	}
	var state derivedState
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		state, txErr = s.recomputeTx(ctx, tx, person.ID, actorID)
		return txErr
	})
	if err != nil {
		return false, err
	}
	return state.completed, nil
}

// Delete removes one attendance day and re-derives in the same transaction.
func (s *attendanceService) Delete(ctx context.Context, recordID uuid.UUID) error {
	p := requestdata.GetPrincipal(ctx)
	if !scope.CanBulkDelete(p) {
		return apierr.Forbidden("attendance records may not be deleted by this role")
	}
	row, err := s.attendanceRepo.GetByID(ctx, nil, recordID)
	if err != nil {
		return apierr.FromStore(err, "attendance record %s", recordID)
	}
	person, err := s.personRepo.GetByID(ctx, nil, row.PersonID)
	if err != nil {
		return apierr.FromStore(err, "person %s", row.PersonID)
	}
	if err := scope.ResolveWrite(p, person.GroupID); err != nil {
		return err
	}
	var actorID *uuid.UUID
	if p != nil {
		actorID = &p.UserID
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.attendanceRepo.HardDelete(ctx, tx, row.ID); err != nil {
			return apierr.Internal(err)
		}
		_, txErr := s.recomputeTx(ctx, tx, person.ID, actorID)
		return txErr
	})
}

// recomputeTx compares the live count with the goal and writes the derived
// stage through the ledger's internal path. No auto-derived definition means
// there is nothing to derive; the attendance write itself still stands.
// The person row is locked first so two concurrent writers at the goal
// boundary cannot both count without seeing the other's insert.
func (s *attendanceService) recomputeTx(ctx context.Context, tx *gorm.DB, personID uuid.UUID, actorID *uuid.UUID) (derivedState, error) {
	var state derivedState

	if err := s.personRepo.Lock(ctx, tx, personID); err != nil {
		return state, apierr.Internal(err)
	}

	def, err := s.milestoneRepo.GetAutoDerived(ctx, tx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Debug("No attendance-derived milestone configured, skipping derivation", "person_id", personID)
			return state, nil
		}
		return state, apierr.Internal(err)
	}
	state.hasAuto = true
	state.stage = def.StageNumber

	count, err := s.attendanceRepo.CountByPersonID(ctx, tx, personID)
	if err != nil {
		return state, apierr.Internal(err)
	}
	state.count = count
	state.completed = count >= int64(s.goal)

	prev, err := s.progressRepo.GetByPersonStage(ctx, tx, personID, def.StageNumber)
	prevCompleted := err == nil && prev.Completed
	state.changed = err != nil || prevCompleted != state.completed
	state.crossed = state.completed && !prevCompleted

	if _, err := s.ledger.applyDerived(ctx, tx, personID, def.StageNumber, state.completed, actorID); err != nil {
		return state, err
	}
	return state, nil
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
