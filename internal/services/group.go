package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/repos"
	"github.com/gracepointe/growthtrack-backend/internal/requestdata"
	"github.com/gracepointe/growthtrack-backend/internal/scope"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

type CreateGroupInput struct {
	Name        string     `json:"name"`
	Year        int        `json:"year"`
	Description string     `json:"description"`
	LeaderID    *uuid.UUID `json:"leader_id"`
}

type GroupPatch struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	LeaderID    *uuid.UUID `json:"leader_id"`
	Archived    *bool      `json:"archived"`
}

type GroupService interface {
	Create(ctx context.Context, in CreateGroupInput) (*types.Group, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Group, error)
	List(ctx context.Context, f scope.Filters) ([]*types.Group, error)
	Update(ctx context.Context, id uuid.UUID, patch GroupPatch) (*types.Group, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type groupService struct {
	db         *gorm.DB
	log        *logger.Logger
	groupRepo  repos.GroupRepo
	personRepo repos.PersonRepo
	userRepo   repos.UserRepo
}

func NewGroupService(
	db *gorm.DB,
	log *logger.Logger,
	groupRepo repos.GroupRepo,
	personRepo repos.PersonRepo,
	userRepo repos.UserRepo,
) GroupService {
	serviceLog := log.With("service", "GroupService")
	return &groupService{
		db:         db,
		log:        serviceLog,
		groupRepo:  groupRepo,
		personRepo: personRepo,
		userRepo:   userRepo,
	}
}

func (s *groupService) Create(ctx context.Context, in CreateGroupInput) (*types.Group, error) {
	if !scope.CanManageGroups(requestdata.GetPrincipal(ctx)) {
		return nil, apierr.Forbidden("groups may not be created by this role")
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apierr.Validation("group name is required")
	}
	if in.Year <= 0 {
		return nil, apierr.Validation("group year is required")
	}
	if in.LeaderID != nil {
		if _, err := s.userRepo.GetByID(ctx, nil, *in.LeaderID); err != nil {
			return nil, apierr.FromStore(err, "leader %s", *in.LeaderID)
		}
	}

	group := &types.Group{
		Name:        in.Name,
		Year:        in.Year,
		Description: in.Description,
		LeaderID:    in.LeaderID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.groupRepo.GetByNameYear(ctx, tx, group.Name, group.Year)
		if err == nil {
			return apierr.Conflict("group %q already exists for %d", group.Name, group.Year)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.Internal(err)
		}
		if err := s.groupRepo.Create(ctx, tx, group); err != nil {
			return apierr.FromStore(err, "group %q already exists for %d", group.Name, group.Year)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (s *groupService) Get(ctx context.Context, id uuid.UUID) (*types.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.FromStore(err, "group %s", id)
	}
	if err := scope.ResolveRecordRead(requestdata.GetPrincipal(ctx), &group.ID); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *groupService) List(ctx context.Context, f scope.Filters) ([]*types.Group, error) {
	effective, err := scope.ResolveRead(requestdata.GetPrincipal(ctx), f)
	if err != nil {
		return nil, err
	}
	rows, err := s.groupRepo.List(ctx, nil, effective)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	return rows, nil
}

func (s *groupService) Update(ctx context.Context, id uuid.UUID, patch GroupPatch) (*types.Group, error) {
	if !scope.CanManageGroups(requestdata.GetPrincipal(ctx)) {
		return nil, apierr.Forbidden("groups may not be edited by this role")
	}
	var updated *types.Group
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := s.groupRepo.GetByID(ctx, tx, id)
		if err != nil {
			return apierr.FromStore(err, "group %s", id)
		}
		if patch.Name != nil && strings.TrimSpace(*patch.Name) != group.Name {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return apierr.Validation("group name may not be empty")
			}
			if _, err := s.groupRepo.GetByNameYear(ctx, tx, name, group.Year); err == nil {
				return apierr.Conflict("group %q already exists for %d", name, group.Year)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.Internal(err)
			}
			group.Name = name
		}
		if patch.Description != nil {
			group.Description = *patch.Description
		}
		if patch.LeaderID != nil {
			if _, err := s.userRepo.GetByID(ctx, tx, *patch.LeaderID); err != nil {
				return apierr.FromStore(err, "leader %s", *patch.LeaderID)
			}
			group.LeaderID = patch.LeaderID
		}
		if patch.Archived != nil {
			group.Archived = *patch.Archived
		}
		if err := s.groupRepo.Update(ctx, tx, group); err != nil {
			return apierr.FromStore(err, "group %q already exists for %d", group.Name, group.Year)
		}
		updated = group
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete hard-removes a group only when no member references it; groups with
// members are archived instead.
func (s *groupService) Delete(ctx context.Context, id uuid.UUID) error {
	if !scope.CanManageGroups(requestdata.GetPrincipal(ctx)) {
		return apierr.Forbidden("groups may not be deleted by this role")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := s.groupRepo.GetByID(ctx, tx, id)
		if err != nil {
			return apierr.FromStore(err, "group %s", id)
		}
		n, err := s.personRepo.CountByGroupID(ctx, tx, group.ID)
		if err != nil {
			return apierr.Internal(err)
		}
		if n > 0 {
			return apierr.InUse("group %q has %d members; archive it instead", group.Name, n)
		}
		return s.groupRepo.HardDelete(ctx, tx, group.ID)
	})
}
