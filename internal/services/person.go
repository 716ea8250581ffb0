package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/repos"
	"github.com/gracepointe/growthtrack-backend/internal/requestdata"
	"github.com/gracepointe/growthtrack-backend/internal/scope"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

type RegisterPersonInput struct {
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email"`
	Gender    string     `json:"gender"`
	BirthDate *time.Time `json:"birth_date"`
	Address   string     `json:"address"`
	GroupID   *uuid.UUID `json:"group_id"`
}

type PersonPatch struct {
	FirstName *string    `json:"first_name"`
	LastName  *string    `json:"last_name"`
	Phone     *string    `json:"phone"`
	Email     *string    `json:"email"`
	Gender    *string    `json:"gender"`
	BirthDate *time.Time `json:"birth_date"`
	Address   *string    `json:"address"`
	GroupID   *uuid.UUID `json:"group_id"`
}

type PersonService interface {
	Register(ctx context.Context, in RegisterPersonInput) (*types.Person, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Person, error)
	List(ctx context.Context, f scope.Filters) ([]*types.Person, error)
	Update(ctx context.Context, id uuid.UUID, patch PersonPatch) (*types.Person, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type personService struct {
	db         *gorm.DB
	log        *logger.Logger
	personRepo repos.PersonRepo
	groupRepo  repos.GroupRepo
	progress   repos.ProgressRepo
	attendance repos.AttendanceRepo
	auditRepo  repos.AuditRepo
	ledger     LedgerService
	notifier   Notifier
}

func NewPersonService(
	db *gorm.DB,
	log *logger.Logger,
	personRepo repos.PersonRepo,
	groupRepo repos.GroupRepo,
	progress repos.ProgressRepo,
	attendance repos.AttendanceRepo,
	auditRepo repos.AuditRepo,
	ledger LedgerService,
	notifier Notifier,
) PersonService {
	serviceLog := log.With("service", "PersonService")
	return &personService{
		db:         db,
		log:        serviceLog,
		personRepo: personRepo,
		groupRepo:  groupRepo,
		progress:   progress,
		attendance: attendance,
		auditRepo:  auditRepo,
		ledger:     ledger,
		notifier:   notifier,
	}
}

// Register creates the person and their full set of progress records in one
// transaction, so a freshly registered person already satisfies the
// one-record-per-stage invariant.
func (s *personService) Register(ctx context.Context, in RegisterPersonInput) (*types.Person, error) {
	p := requestdata.GetPrincipal(ctx)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return nil, apierr.Validation("first and last name are required")
	}

	var group *types.Group
	if in.GroupID != nil {
		var err error
		group, err = s.groupRepo.GetByID(ctx, nil, *in.GroupID)
		if err != nil {
			return nil, apierr.FromStore(err, "group %s", *in.GroupID)
		}
	}
	if err := scope.ResolveWrite(p, in.GroupID); err != nil {
		return nil, err
	}

	person := &types.Person{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     strings.TrimSpace(in.Phone),
		Email:     strings.TrimSpace(in.Email),
		Gender:    in.Gender,
		BirthDate: in.BirthDate,
		Address:   in.Address,
		GroupID:   in.GroupID,
	}
	if group != nil {
		person.GroupName = group.Name
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.personRepo.Create(ctx, tx, person); err != nil {
			return apierr.Internal(err)
		}
		_, txErr := s.ledger.ensureCompleteTx(ctx, tx, person.ID)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	if person.Phone != "" {
		s.notifier.Dispatch(ctx, []Notification{
			welcomeNotification(person.ID, person.Phone, person.FirstName),
		})
	}
	return person, nil
}

func (s *personService) Get(ctx context.Context, id uuid.UUID) (*types.Person, error) {
	person, err := s.personRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.FromStore(err, "person %s", id)
	}
	if err := scope.ResolveRecordRead(requestdata.GetPrincipal(ctx), person.GroupID); err != nil {
		return nil, err
	}
	return person, nil
}

func (s *personService) List(ctx context.Context, f scope.Filters) ([]*types.Person, error) {
	effective, err := scope.ResolveRead(requestdata.GetPrincipal(ctx), f)
	if err != nil {
		return nil, err
	}
	rows, err := s.personRepo.List(ctx, nil, effective)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return rows, nil
}

// Update applies an administrative edit. Moving a person between groups
// requires write scope over both sides, so a group-bound role can never move
// people in or out of foreign groups.
func (s *personService) Update(ctx context.Context, id uuid.UUID, patch PersonPatch) (*types.Person, error) {
	p := requestdata.GetPrincipal(ctx)
	person, err := s.personRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.FromStore(err, "person %s", id)
	}
	if err := scope.ResolveWrite(p, person.GroupID); err != nil {
		return nil, err
	}

	if patch.FirstName != nil {
		if strings.TrimSpace(*patch.FirstName) == "" {
			return nil, apierr.Validation("first name may not be empty")
		}
		person.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		if strings.TrimSpace(*patch.LastName) == "" {
			return nil, apierr.Validation("last name may not be empty")
		}
		person.LastName = strings.TrimSpace(*patch.LastName)
	}
	if patch.Phone != nil {
		person.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Email != nil {
		person.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Gender != nil {
		person.Gender = *patch.Gender
	}
	if patch.BirthDate != nil {
		person.BirthDate = patch.BirthDate
	}
	if patch.Address != nil {
		person.Address = *patch.Address
	}
	if patch.GroupID != nil && (person.GroupID == nil || *patch.GroupID != *person.GroupID) {
		group, err := s.groupRepo.GetByID(ctx, nil, *patch.GroupID)
		if err != nil {
			return nil, apierr.FromStore(err, "group %s", *patch.GroupID)
		}
		if err := scope.ResolveWrite(p, patch.GroupID); err != nil {
			return nil, err
		}
		person.GroupID = &group.ID
		person.GroupName = group.Name
	}

	if err := s.personRepo.Update(ctx, nil, person); err != nil {
		return nil, apierr.Internal(err)
	}
	return person, nil
}

// Delete removes the person and cascades their progress and attendance rows
// in one transaction, recording an audit entry.
func (s *personService) Delete(ctx context.Context, id uuid.UUID) error {
	p := requestdata.GetPrincipal(ctx)
	if !scope.CanBulkDelete(p) {
		return apierr.Forbidden("people may not be deleted by this role")
	}
	person, err := s.personRepo.GetByID(ctx, nil, id)
	if err != nil {
		return apierr.FromStore(err, "person %s", id)
	}
	if err := scope.ResolveWrite(p, person.GroupID); err != nil {
		return err
	}

	var actorID *uuid.UUID
	if p != nil {
		actorID = &p.UserID
	}
	detail, _ := json.Marshal(map[string]interface{}{
		"person_id":  person.ID,
		"first_name": person.FirstName,
		"last_name":  person.LastName,
	})

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.progress.HardDeleteByPersonID(ctx, tx, person.ID); err != nil {
			return apierr.Internal(err)
		}
		if err := s.attendance.HardDeleteByPersonID(ctx, tx, person.ID); err != nil {
			return apierr.Internal(err)
		}
		if err := s.personRepo.HardDelete(ctx, tx, person.ID); err != nil {
			return apierr.Internal(err)
		}
		audit := &types.AuditLog{
			Action:  types.AuditPersonDelete,
			ActorID: actorID,
			Detail:  datatypes.JSON(detail),
		}
		if err := s.auditRepo.Create(ctx, tx, audit); err != nil {
			return apierr.Internal(err)
		}
		return nil
	})
}
