package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/repos"
	"github.com/gracepointe/growthtrack-backend/internal/requestdata"
	"github.com/gracepointe/growthtrack-backend/internal/scope"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

const (
	reconcilePageSize = 200
	reconcileWorkers  = 8
)

type BackfillReport struct {
	PeopleTotal     int64 `json:"people_total"`
	AlreadyComplete int64 `json:"already_complete"`
	Repaired        int64 `json:"repaired"`
	RecordsInserted int64 `json:"records_inserted"`
	Failed          int64 `json:"failed"`
}

type AttendanceSyncReport struct {
	PeopleTotal    int64 `json:"people_total"`
	AlreadyCorrect int64 `json:"already_correct"`
	Updated        int64 `json:"updated"`
	Skipped        int64 `json:"skipped"`
	Failed         int64 `json:"failed"`
}

type RolloverReport struct {
	SourceYear int   `json:"source_year"`
	TargetYear int   `json:"target_year"`
	Created    int64 `json:"created"`
	Skipped    int64 `json:"skipped"`
	Failed     int64 `json:"failed"`
}

type OrphanRepairReport struct {
	Repaired   int64 `json:"repaired"`
	Unresolved int64 `json:"unresolved"`
}

// ReconcileService hosts the idempotent maintenance jobs. Every job is safe
// to re-run: a second pass over an already-consistent dataset writes nothing.
type ReconcileService interface {
	Backfill(ctx context.Context) (*BackfillReport, error)
	AttendanceSync(ctx context.Context) (*AttendanceSyncReport, error)
	GroupRollover(ctx context.Context, sourceYear, targetYear int) (*RolloverReport, error)
	OrphanRepair(ctx context.Context) (*OrphanRepairReport, error)
}

type reconcileService struct {
	db             *gorm.DB
	log            *logger.Logger
	personRepo     repos.PersonRepo
	groupRepo      repos.GroupRepo
	milestoneRepo  repos.MilestoneRepo
	progressRepo   repos.ProgressRepo
	attendanceRepo repos.AttendanceRepo
	auditRepo      repos.AuditRepo
	ledger         LedgerService
	goal           int
}

func NewReconcileService(
	db *gorm.DB,
	log *logger.Logger,
	personRepo repos.PersonRepo,
	groupRepo repos.GroupRepo,
	milestoneRepo repos.MilestoneRepo,
	progressRepo repos.ProgressRepo,
	attendanceRepo repos.AttendanceRepo,
	auditRepo repos.AuditRepo,
	ledger LedgerService,
	attendanceGoal int,
) ReconcileService {
	serviceLog := log.With("service", "ReconcileService")
	if attendanceGoal <= 0 {
		attendanceGoal = defaultAttendanceGoal
	}
	return &reconcileService{
		db:             db,
		log:            serviceLog,
		personRepo:     personRepo,
		groupRepo:      groupRepo,
		milestoneRepo:  milestoneRepo,
		progressRepo:   progressRepo,
		attendanceRepo: attendanceRepo,
		auditRepo:      auditRepo,
		ledger:         ledger,
		goal:           attendanceGoal,
	}
}

func (s *reconcileService) requireJobRunner(ctx context.Context) (*requestdata.Principal, error) {
	principal := requestdata.GetPrincipal(ctx)
	if !scope.CanRunJobs(principal) {
		return nil, apierr.Forbidden("reconciliation jobs may only be run by a superadmin")
	}
	return principal, nil
}

// Backfill walks every person and inserts the progress rows missing against
// the active catalog. People already holding a full ledger are counted but
// untouched, which is what makes back-to-back runs report zero repairs.
func (s *reconcileService) Backfill(ctx context.Context) (*BackfillReport, error) {
	principal, err := s.requireJobRunner(ctx)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	var total, alreadyComplete, repaired, inserted, failed atomic.Int64

	if err := s.forEachPerson(ctx, func(ctx context.Context, personID uuid.UUID) {
		total.Add(1)
		var n int64
		txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var innerErr error
			n, innerErr = s.ledger.ensureCompleteTx(ctx, tx, personID)
			return innerErr
		})
		switch {
		case txErr != nil:
			failed.Add(1)
			s.log.Error("Backfill failed for person", "person_id", personID, "error", txErr)
		case n == 0:
			alreadyComplete.Add(1)
		default:
			repaired.Add(1)
			inserted.Add(n)
		}
	}); err != nil {
		return nil, err
	}

	report := &BackfillReport{
		PeopleTotal:     total.Load(),
		AlreadyComplete: alreadyComplete.Load(),
		Repaired:        repaired.Load(),
		RecordsInserted: inserted.Load(),
		Failed:          failed.Load(),
	}
	s.audit(ctx, principal, "backfill", report)
	s.log.Info("Backfill finished",
		"people", report.PeopleTotal,
		"repaired", report.Repaired,
		"inserted", report.RecordsInserted,
		"failed", report.Failed,
		"took", time.Since(started))
	return report, nil
}

// AttendanceSync recomputes the attendance-derived stage for every person
// from their actual attendance count. People whose ledger is missing the
// derived row are skipped rather than silently created; Backfill owns row
// creation.
func (s *reconcileService) AttendanceSync(ctx context.Context) (*AttendanceSyncReport, error) {
	principal, err := s.requireJobRunner(ctx)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	def, err := s.milestoneRepo.GetAutoDerived(ctx, nil)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.Validation("no attendance-derived milestone is configured")
		}
		return nil, apierr.Internal(err)
	}

	var total, correct, updated, skipped, failed atomic.Int64

	if err := s.forEachPerson(ctx, func(ctx context.Context, personID uuid.UUID) {
		total.Add(1)
		txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// serialize with live attendance writers for the same person
			if err := s.personRepo.Lock(ctx, tx, personID); err != nil {
				return err
			}
			prev, err := s.progressRepo.GetByPersonStage(ctx, tx, personID, def.StageNumber)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					skipped.Add(1)
					return nil
				}
				return err
			}
			count, err := s.attendanceRepo.CountByPersonID(ctx, tx, personID)
			if err != nil {
				return err
			}
			want := count >= int64(s.goal)
			dateConsistent := (want && prev.CompletionDate != nil) || (!want && prev.CompletionDate == nil)
			if prev.Completed == want && dateConsistent {
				correct.Add(1)
				return nil
			}
			if _, err := s.ledger.applyDerived(ctx, tx, personID, def.StageNumber, want, &principal.UserID); err != nil {
				return err
			}
			updated.Add(1)
			return nil
		})
		if txErr != nil {
			failed.Add(1)
			s.log.Error("AttendanceSync failed for person", "person_id", personID, "error", txErr)
		}
	}); err != nil {
		return nil, err
	}

	report := &AttendanceSyncReport{
		PeopleTotal:    total.Load(),
		AlreadyCorrect: correct.Load(),
		Updated:        updated.Load(),
		Skipped:        skipped.Load(),
		Failed:         failed.Load(),
	}
	s.audit(ctx, principal, "attendance_sync", report)
	s.log.Info("AttendanceSync finished",
		"people", report.PeopleTotal,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"took", time.Since(started))
	return report, nil
}

// GroupRollover clones every active source-year group into the target year.
// Clones carry the name, description and leader but never the members; a
// target group that already exists is left alone.
func (s *reconcileService) GroupRollover(ctx context.Context, sourceYear, targetYear int) (*RolloverReport, error) {
	principal, err := s.requireJobRunner(ctx)
	if err != nil {
		return nil, err
	}
	if sourceYear <= 0 || targetYear <= 0 {
		return nil, apierr.Validation("source and target years are required")
	}
	if sourceYear == targetYear {
		return nil, apierr.Validation("source and target years must differ")
	}

	sources, err := s.groupRepo.ListActiveByYear(ctx, nil, sourceYear)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	report := &RolloverReport{SourceYear: sourceYear, TargetYear: targetYear}
	for _, src := range sources {
		txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			_, err := s.groupRepo.GetByNameYear(ctx, tx, src.Name, targetYear)
			if err == nil {
				report.Skipped++
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			clone := &types.Group{
				Name:        src.Name,
				Year:        targetYear,
				Description: src.Description,
				LeaderID:    src.LeaderID,
			}
			if err := s.groupRepo.Create(ctx, tx, clone); err != nil {
				return err
			}
			detail, _ := json.Marshal(map[string]interface{}{
				"source_group_id": src.ID,
				"new_group_id":    clone.ID,
				"name":            clone.Name,
				"year":            targetYear,
			})
			if err := s.auditRepo.Create(ctx, tx, &types.AuditLog{
				Action:  types.AuditGroupRollover,
				ActorID: &principal.UserID,
				Detail:  detail,
			}); err != nil {
				return err
			}
			report.Created++
			return nil
		})
		if txErr != nil {
			report.Failed++
			s.log.Error("GroupRollover failed for group", "group_id", src.ID, "name", src.Name, "error", txErr)
		}
	}

	s.audit(ctx, principal, "group_rollover", report)
	s.log.Info("GroupRollover finished",
		"source_year", sourceYear,
		"target_year", targetYear,
		"created", report.Created,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}

// OrphanRepair relinks people whose group reference was lost but whose
// legacy group name still resolves. Names that match no group are reported,
// not guessed at.
func (s *reconcileService) OrphanRepair(ctx context.Context) (*OrphanRepairReport, error) {
	principal, err := s.requireJobRunner(ctx)
	if err != nil {
		return nil, err
	}

	orphans, err := s.personRepo.ListOrphaned(ctx, nil)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	report := &OrphanRepairReport{}
	for _, person := range orphans {
		group, err := s.groupRepo.GetByNameLoose(ctx, nil, person.GroupName)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				report.Unresolved++
				s.log.Warn("Orphan not resolved", "person_id", person.ID, "group_name", person.GroupName)
				continue
			}
			return nil, apierr.Internal(err)
		}
		person.GroupID = &group.ID
		person.GroupName = group.Name
		if err := s.personRepo.Update(ctx, nil, person); err != nil {
			return nil, apierr.Internal(err)
		}
		report.Repaired++
	}

	s.audit(ctx, principal, "orphan_repair", report)
	s.log.Info("OrphanRepair finished", "repaired", report.Repaired, "unresolved", report.Unresolved)
	return report, nil
}

// forEachPerson fans the callback out over every person id in fixed pages.
// Callbacks record their own failures; only infrastructure errors stop the
// walk.
func (s *reconcileService) forEachPerson(ctx context.Context, fn func(ctx context.Context, personID uuid.UUID)) error {
	for offset := 0; ; offset += reconcilePageSize {
		ids, err := s.personRepo.ListIDsPage(ctx, nil, offset, reconcilePageSize)
		if err != nil {
			return apierr.Internal(err)
		}
		if len(ids) == 0 {
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(reconcileWorkers)
		for _, id := range ids {
			personID := id
			g.Go(func() error {
				fn(gctx, personID)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return apierr.Internal(err)
		}
		if len(ids) < reconcilePageSize {
			return nil
		}
	}
}

func (s *reconcileService) audit(ctx context.Context, principal *requestdata.Principal, job string, report interface{}) {
	detail, err := json.Marshal(map[string]interface{}{
		"job":    job,
		"report": report,
	})
	if err != nil {
		return
	}
	var actorID *uuid.UUID
	if principal != nil {
		actorID = &principal.UserID
	}
	if err := s.auditRepo.Create(ctx, nil, &types.AuditLog{
		Action:  types.AuditReconcileRun,
		ActorID: actorID,
		Detail:  detail,
	}); err != nil {
		s.log.Error("Failed to write reconcile audit row", "job", job, "error", err)
	}
}
