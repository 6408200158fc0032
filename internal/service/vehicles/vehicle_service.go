package vehicles

import (
	"context"

	"github.com/dkoryagin/vehiclehold/internal/domain"
	"github.com/dkoryagin/vehiclehold/internal/repository"
)

type VehicleUseCase interface {
	List(ctx context.Context) ([]domain.Vehicle, error)
	GetByID(ctx context.Context, id int64) (*domain.Vehicle, error)
}

type Cache interface {
	GetVehicles(ctx context.Context) ([]domain.Vehicle, error)
	SetVehicles(ctx context.Context, vehicles []domain.Vehicle) error
	InvalidateVehicles(ctx context.Context) error
}

type VehicleService struct {
	repo  repository.VehicleRepository
	cache Cache
}

func NewVehicleService(repo repository.VehicleRepository, cache Cache) *VehicleService {
	return &VehicleService{repo: repo, cache: cache}
}

func (s *VehicleService) List(ctx context.Context) ([]domain.Vehicle, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetVehicles(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	vehicles, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetVehicles(ctx, vehicles)
	}
	return vehicles, nil
}

func (s *VehicleService) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	return s.repo.GetByID(ctx, id)
}

var _ VehicleUseCase = (*VehicleService)(nil)
