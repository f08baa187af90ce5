package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/schoolhub/circulation/internal/models"
)

// MockCatalogQueries is a mock implementation of CatalogQuerier
type MockCatalogQueries struct {
	mock.Mock
}

func (m *MockCatalogQueries) GetBook(ctx context.Context, id int32) (models.Book, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Book), args.Error(1)
}

func (m *MockCatalogQueries) DecrementAvailableCopies(ctx context.Context, bookID int32) (int64, error) {
	args := m.Called(ctx, bookID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalogQueries) IncrementAvailableCopies(ctx context.Context, bookID int32) (int64, error) {
	args := m.Called(ctx, bookID)
	return args.Get(0).(int64), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCatalogService_ReserveCopy_Success(t *testing.T) {
	mockQueries := new(MockCatalogQueries)
	service := NewCatalogService(mockQueries, testLogger())

	mockQueries.On("DecrementAvailableCopies", mock.Anything, int32(1)).Return(int64(1), nil)

	err := service.ReserveCopy(context.Background(), 1)

	assert.NoError(t, err)
	mockQueries.AssertExpectations(t)
}

func TestCatalogService_ReserveCopy_NoCopiesLeft(t *testing.T) {
	mockQueries := new(MockCatalogQueries)
	service := NewCatalogService(mockQueries, testLogger())

	mockQueries.On("DecrementAvailableCopies", mock.Anything, int32(1)).Return(int64(0), nil)
	mockQueries.On("GetBook", mock.Anything, int32(1)).Return(models.Book{ID: 1, AvailableCopies: 0}, nil)

	err := service.ReserveCopy(context.Background(), 1)

	assert.ErrorIs(t, err, models.ErrBookNotAvailable)
	mockQueries.AssertExpectations(t)
}

func TestCatalogService_ReserveCopy_BookNotFound(t *testing.T) {
	mockQueries := new(MockCatalogQueries)
	service := NewCatalogService(mockQueries, testLogger())

	mockQueries.On("DecrementAvailableCopies", mock.Anything, int32(99)).Return(int64(0), nil)
	mockQueries.On("GetBook", mock.Anything, int32(99)).Return(models.Book{}, models.ErrNotFound)

	err := service.ReserveCopy(context.Background(), 99)

	assert.ErrorIs(t, err, models.ErrNotFound)
	mockQueries.AssertExpectations(t)
}

func TestCatalogService_ReleaseCopy_Success(t *testing.T) {
	mockQueries := new(MockCatalogQueries)
	service := NewCatalogService(mockQueries, testLogger())

	mockQueries.On("IncrementAvailableCopies", mock.Anything, int32(1)).Return(int64(1), nil)

	err := service.ReleaseCopy(context.Background(), 1)

	assert.NoError(t, err)
	mockQueries.AssertExpectations(t)
}

func TestCatalogService_ReleaseCopy_ExceedsTotal(t *testing.T) {
	mockQueries := new(MockCatalogQueries)
	service := NewCatalogService(mockQueries, testLogger())

	mockQueries.On("IncrementAvailableCopies", mock.Anything, int32(1)).Return(int64(0), nil)
	mockQueries.On("GetBook", mock.Anything, int32(1)).Return(models.Book{ID: 1, TotalCopies: 2, AvailableCopies: 2}, nil)

	err := service.ReleaseCopy(context.Background(), 1)

	assert.ErrorIs(t, err, models.ErrConsistencyViolation)
	mockQueries.AssertExpectations(t)
}

func TestCatalogService_ReleaseCopy_BookNotFound(t *testing.T) {
	mockQueries := new(MockCatalogQueries)
	service := NewCatalogService(mockQueries, testLogger())

	mockQueries.On("IncrementAvailableCopies", mock.Anything, int32(404)).Return(int64(0), nil)
	mockQueries.On("GetBook", mock.Anything, int32(404)).Return(models.Book{}, models.ErrNotFound)

	err := service.ReleaseCopy(context.Background(), 404)

	assert.ErrorIs(t, err, models.ErrNotFound)
	mockQueries.AssertExpectations(t)
}
