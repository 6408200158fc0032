package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dkoryagin/vehiclehold/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockVehicleUseCase struct {
	mock.Mock
}

func (m *MockVehicleUseCase) List(ctx context.Context) ([]domain.Vehicle, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Vehicle), args.Error(1)
}

func (m *MockVehicleUseCase) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) SweepExpired(ctx context.Context) ([]domain.Vehicle, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Vehicle), args.Error(1)
}

func newVehicleRouter(service *MockVehicleUseCase, sweeper *MockSweeper) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewVehicleHandler(service, sweeper).Register(router.Group("/vehicles"))
	return router
}

func TestVehicleHandler_List(t *testing.T) {
	mockService := &MockVehicleUseCase{}
	router := newVehicleRouter(mockService, &MockSweeper{})

	mockService.On("List", mock.Anything).Return([]domain.Vehicle{
		{ID: 1, Make: "Toyota", Model: "Corolla", Year: 2021, Status: domain.VehicleStatusAvailable},
		{ID: 2, Make: "Honda", Model: "Civic", Year: 2022, Status: domain.VehicleStatusReserved},
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/vehicles", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []vehicleResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
	assert.Equal(t, "Corolla", resp[0].Model)
}

func TestVehicleHandler_Get_NotFound(t *testing.T) {
	mockService := &MockVehicleUseCase{}
	router := newVehicleRouter(mockService, &MockSweeper{})

	mockService.On("GetByID", mock.Anything, int64(9)).Return(nil, domain.ErrVehicleNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/vehicles/9", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVehicleHandler_Sweep(t *testing.T) {
	mockService := &MockVehicleUseCase{}
	sweeper := &MockSweeper{}
	router := newVehicleRouter(mockService, sweeper)

	sweeper.On("SweepExpired", mock.Anything).Return([]domain.Vehicle{
		{ID: 3, Make: "Toyota", Model: "RAV4", Status: domain.VehicleStatusAvailable},
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/vehicles/sweep-expired", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count    int               `json:"count"`
		Released []vehicleResponse `json:"released"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Len(t, resp.Released, 1)
	assert.Equal(t, string(domain.VehicleStatusAvailable), resp.Released[0].Status)
}
