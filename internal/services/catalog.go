package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/clients/redis"
	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/repos"
	"github.com/gracepointe/growthtrack-backend/internal/requestdata"
	"github.com/gracepointe/growthtrack-backend/internal/scope"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

// CatalogPatch carries partial updates; nil fields are left untouched.
type CatalogPatch struct {
	StageNumber *int
	Name        *string
	ShortName   *string
	AutoDerived *bool
	Active      *bool
}

type CatalogService interface {
	ListActive(ctx context.Context) ([]*types.MilestoneDefinition, error)
	GetByStageNumber(ctx context.Context, stage int) (*types.MilestoneDefinition, error)
	Create(ctx context.Context, def *types.MilestoneDefinition) error
	Update(ctx context.Context, id uuid.UUID, patch CatalogPatch) (*types.MilestoneDefinition, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	db            *gorm.DB
	log           *logger.Logger
	milestoneRepo repos.MilestoneRepo
	progressRepo  repos.ProgressRepo
	cache         redis.CatalogCache
}

func NewCatalogService(
	db *gorm.DB,
	log *logger.Logger,
	milestoneRepo repos.MilestoneRepo,
	progressRepo repos.ProgressRepo,
	cache redis.CatalogCache,
) CatalogService {
	serviceLog := log.With("service", "CatalogService")
	return &catalogService{
		db:            db,
		log:           serviceLog,
		milestoneRepo: milestoneRepo,
		progressRepo:  progressRepo,
		cache:         cache,
	}
}

// ListActive serves the read-mostly catalog through the TTL cache. Cache
// trouble degrades to a store read, never to an error.
func (s *catalogService) ListActive(ctx context.Context) ([]*types.MilestoneDefinition, error) {
	if s.cache != nil {
		if defs, ok := s.cache.GetActive(ctx); ok {
			return defs, nil
		}
	}
	defs, err := s.milestoneRepo.ListActive(ctx, nil)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	if s.cache != nil {
		s.cache.SetActive(ctx, defs)
	}
	return defs, nil
}

func (s *catalogService) GetByStageNumber(ctx context.Context, stage int) (*types.MilestoneDefinition, error) {
	def, err := s.milestoneRepo.GetByStageNumber(ctx, nil, stage)
	if err != nil {
		return nil, apierr.FromStore(err, "stage %d", stage)
	}
	return def, nil
}

func (s *catalogService) Create(ctx context.Context, def *types.MilestoneDefinition) error {
	if err := s.requireCatalogEditor(ctx); err != nil {
		return err
	}
	if def == nil || def.StageNumber <= 0 {
		return apierr.Validation("stage number must be a positive integer")
	}
	if def.Name == "" {
		return apierr.Validation("milestone name is required")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.milestoneRepo.StageNumberTaken(ctx, tx, def.StageNumber, uuid.Nil)
		if err != nil {
			return apierr.Internal(err)
		}
		if taken {
			return apierr.Conflict("stage number %d already exists", def.StageNumber)
		}
		if def.AutoDerived {
			autoTaken, err := s.milestoneRepo.AutoDerivedTaken(ctx, tx, uuid.Nil)
			if err != nil {
				return apierr.Internal(err)
			}
			if autoTaken {
				return apierr.Conflict("another milestone is already attendance-derived")
			}
		}
		if err := s.milestoneRepo.Create(ctx, tx, def); err != nil {
			return apierr.FromStore(err, "stage number %d already exists", def.StageNumber)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *catalogService) Update(ctx context.Context, id uuid.UUID, patch CatalogPatch) (*types.MilestoneDefinition, error) {
	if err := s.requireCatalogEditor(ctx); err != nil {
		return nil, err
	}
	var updated *types.MilestoneDefinition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		def, err := s.milestoneRepo.GetByID(ctx, tx, id)
		if err != nil {
			return apierr.FromStore(err, "milestone %s", id)
		}

		if patch.StageNumber != nil && *patch.StageNumber != def.StageNumber {
			if *patch.StageNumber <= 0 {
				return apierr.Validation("stage number must be a positive integer")
			}
			taken, err := s.milestoneRepo.StageNumberTaken(ctx, tx, *patch.StageNumber, def.ID)
			if err != nil {
				return apierr.Internal(err)
			}
			if taken {
				return apierr.Conflict("stage number %d already exists", *patch.StageNumber)
			}
			def.StageNumber = *patch.StageNumber
		}
		if patch.Name != nil {
			if *patch.Name == "" {
				return apierr.Validation("milestone name is required")
			}
			def.Name = *patch.Name
		}
		if patch.ShortName != nil {
			def.ShortName = *patch.ShortName
		}
		if patch.AutoDerived != nil && *patch.AutoDerived != def.AutoDerived {
			if *patch.AutoDerived {
				autoTaken, err := s.milestoneRepo.AutoDerivedTaken(ctx, tx, def.ID)
				if err != nil {
					return apierr.Internal(err)
				}
				if autoTaken {
					return apierr.Conflict("another milestone is already attendance-derived")
				}
			}
			def.AutoDerived = *patch.AutoDerived
		}
		if patch.Active != nil && !*patch.Active && def.Active {
			if err := s.requireNotInUse(ctx, tx, def); err != nil {
				return err
			}
			def.Active = false
		} else if patch.Active != nil {
			def.Active = *patch.Active
		}

		if err := s.milestoneRepo.Update(ctx, tx, def); err != nil {
			return apierr.FromStore(err, "stage number %d already exists", def.StageNumber)
		}
		updated = def
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *catalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.requireCatalogEditor(ctx); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		def, err := s.milestoneRepo.GetByID(ctx, tx, id)
		if err != nil {
			return apierr.FromStore(err, "milestone %s", id)
		}
		if err := s.requireNotInUse(ctx, tx, def); err != nil {
			return err
		}
		return s.milestoneRepo.HardDelete(ctx, tx, def.ID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// requireNotInUse blocks removal of a stage that completed history still
// references, naming the count so the operator knows what is in the way.
func (s *catalogService) requireNotInUse(ctx context.Context, tx *gorm.DB, def *types.MilestoneDefinition) error {
	n, err := s.progressRepo.CountCompletedByStage(ctx, tx, def.StageNumber)
	if err != nil {
		return apierr.Internal(err)
	}
	if n > 0 {
		return apierr.InUse("stage %d has %d completed progress records", def.StageNumber, n)
	}
	return nil
}

func (s *catalogService) requireCatalogEditor(ctx context.Context) error {
	p := requestdata.GetPrincipal(ctx)
	if !scope.CanEditCatalog(p) {
		return apierr.Forbidden("milestone definitions may not be edited by this role")
	}
	return nil
}

func (s *catalogService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
