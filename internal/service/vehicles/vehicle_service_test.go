package vehicles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkoryagin/vehiclehold/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockVehicleRepository struct {
	mock.Mock
}

func (m *MockVehicleRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

func (m *MockVehicleRepository) List(ctx context.Context) ([]domain.Vehicle, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) ListByStatus(ctx context.Context, status domain.VehicleStatus) ([]domain.Vehicle, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]domain.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}

func (m *MockVehicleRepository) SetStatus(ctx context.Context, id int64, status domain.VehicleStatus, holdExpiry *time.Time) error {
	args := m.Called(ctx, id, status, holdExpiry)
	return args.Error(0)
}

func (m *MockVehicleRepository) ReleaseExpiredBefore(ctx context.Context, deadline time.Time) ([]domain.Vehicle, error) {
	args := m.Called(ctx, deadline)
	return args.Get(0).([]domain.Vehicle), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Vehicle), args.Error(1)
}

func (m *MockCache) SetVehicles(ctx context.Context, vehicles []domain.Vehicle) error {
	args := m.Called(ctx, vehicles)
	return args.Error(0)
}

func (m *MockCache) InvalidateVehicles(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestVehicleService_List_CacheMiss(t *testing.T) {
	mockRepo := &MockVehicleRepository{}
	mockCache := &MockCache{}
	service := NewVehicleService(mockRepo, mockCache)

	vehicles := []domain.Vehicle{
		{ID: 1, Make: "Toyota", Model: "Corolla", Year: 2021, Status: domain.VehicleStatusAvailable},
	}

	mockCache.On("GetVehicles", mock.Anything).Return([]domain.Vehicle(nil), nil)
	mockRepo.On("List", mock.Anything).Return(vehicles, nil)
	mockCache.On("SetVehicles", mock.Anything, vehicles).Return(nil)

	result, err := service.List(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, vehicles, result)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestVehicleService_List_CacheHit(t *testing.T) {
	mockRepo := &MockVehicleRepository{}
	mockCache := &MockCache{}
	service := NewVehicleService(mockRepo, mockCache)

	cached := []domain.Vehicle{
		{ID: 2, Make: "Honda", Model: "Civic", Year: 2022, Status: domain.VehicleStatusReserved},
	}
	mockCache.On("GetVehicles", mock.Anything).Return(cached, nil)

	result, err := service.List(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, cached, result)
	mockRepo.AssertNotCalled(t, "List", mock.Anything)
}

func TestVehicleService_List_RepoError(t *testing.T) {
	mockRepo := &MockVehicleRepository{}
	service := NewVehicleService(mockRepo, nil)

	mockRepo.On("List", mock.Anything).Return([]domain.Vehicle(nil), errors.New("db down"))

	_, err := service.List(context.Background())

	assert.Error(t, err)
}

func TestVehicleService_GetByID(t *testing.T) {
	mockRepo := &MockVehicleRepository{}
	service := NewVehicleService(mockRepo, nil)

	vehicle := &domain.Vehicle{ID: 3, Make: "Toyota", Model: "RAV4", Status: domain.VehicleStatusAvailable}
	mockRepo.On("GetByID", mock.Anything, int64(3)).Return(vehicle, nil)

	result, err := service.GetByID(context.Background(), 3)

	assert.NoError(t, err)
	assert.Equal(t, vehicle, result)
}
