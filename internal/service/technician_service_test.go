package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/technician-availability-api/internal/models"
	"github.com/noah-isme/technician-availability-api/internal/repository"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
)

type mockTechnicianRepo struct {
	items       map[string]*models.Technician
	emailIndex  map[string]string
	listResult  []models.Technician
	listTotal   int
	listErr     error
	findErr     error
	deactivated []string
}

func (m *mockTechnicianRepo) List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listResult, m.listTotal, nil
}

func (m *mockTechnicianRepo) FindByID(ctx context.Context, id string) (*models.Technician, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if technician, ok := m.items[id]; ok {
		cp := *technician
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTechnicianRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	if owner, ok := m.emailIndex[email]; ok {
		if excludeID == "" || owner != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTechnicianRepo) Create(ctx context.Context, technician *models.Technician) error {
	if m.items == nil {
		m.items = make(map[string]*models.Technician)
	}
	if technician.ID == "" {
		technician.ID = "generated"
	}
	now := time.Now()
	technician.CreatedAt = now
	technician.UpdatedAt = now
	cp := *technician
	m.items[technician.ID] = &cp
	return nil
}

func (m *mockTechnicianRepo) Update(ctx context.Context, technician *models.Technician) error {
	if m.items == nil {
		m.items = make(map[string]*models.Technician)
	}
	cp := *technician
	m.items[technician.ID] = &cp
	return nil
}

func (m *mockTechnicianRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	if t, ok := m.items[id]; ok {
		t.Active = false
	}
	return nil
}

type mockTechnicianAccounts struct {
	created     []models.User
	deactivated []string
	createErr   error
}

func (m *mockTechnicianAccounts) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "user-1"
	m.created = append(m.created, *user)
	return nil
}

func (m *mockTechnicianAccounts) DeactivateByTechnician(ctx context.Context, technicianID string) error {
	m.deactivated = append(m.deactivated, technicianID)
	return nil
}

func TestTechnicianServiceCreate(t *testing.T) {
	repo := &mockTechnicianRepo{}
	service := NewTechnicianService(repo, nil, validator.New(), zap.NewNop())

	technician, err := service.Create(context.Background(), CreateTechnicianRequest{
		Email:    " Tech@Example.com ",
		FullName: "Tech One",
	})
	require.NoError(t, err)
	assert.Equal(t, "tech@example.com", technician.Email)
	assert.Equal(t, "UTC", technician.Timezone)
	assert.True(t, technician.Active)
	assert.Len(t, repo.items, 1)
}

func TestTechnicianServiceCreateProvisionsLogin(t *testing.T) {
	repo := &mockTechnicianRepo{}
	accounts := &mockTechnicianAccounts{}
	service := NewTechnicianService(repo, accounts, validator.New(), zap.NewNop())

	technician, err := service.Create(context.Background(), CreateTechnicianRequest{
		Email:    "tech@example.com",
		FullName: "Tech One",
		Timezone: "Europe/Berlin",
		Password: "supersecret",
	})
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", technician.Timezone)

	require.Len(t, accounts.created, 1)
	user := accounts.created[0]
	assert.Equal(t, models.RoleTechnician, user.Role)
	require.NotNil(t, user.TechnicianID)
	assert.Equal(t, technician.ID, *user.TechnicianID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("supersecret")))
}

func TestTechnicianServiceCreateRejectsBadTimezone(t *testing.T) {
	service := NewTechnicianService(&mockTechnicianRepo{}, nil, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), CreateTechnicianRequest{
		Email:    "tech@example.com",
		FullName: "Tech One",
		Timezone: "Mars/Olympus",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestTechnicianServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockTechnicianRepo{emailIndex: map[string]string{"tech@example.com": "another"}}
	service := NewTechnicianService(repo, nil, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), CreateTechnicianRequest{
		Email:    "tech@example.com",
		FullName: "Tech One",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestTechnicianServiceUpdate(t *testing.T) {
	repo := &mockTechnicianRepo{
		items: map[string]*models.Technician{
			"t1": {ID: "t1", Email: "tech@example.com", FullName: "Tech One", Timezone: "UTC", Active: true},
		},
		emailIndex: map[string]string{"tech@example.com": "t1"},
	}
	service := NewTechnicianService(repo, nil, validator.New(), zap.NewNop())

	inactive := false
	specialty := "  HVAC  "
	updated, err := service.Update(context.Background(), "t1", UpdateTechnicianRequest{
		Email:     "tech@example.com",
		FullName:  "Tech Renamed",
		Specialty: &specialty,
		Active:    &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tech Renamed", updated.FullName)
	require.NotNil(t, updated.Specialty)
	assert.Equal(t, "HVAC", *updated.Specialty)
	assert.Equal(t, "UTC", updated.Timezone)
	assert.False(t, updated.Active)
}

func TestTechnicianServiceUpdateNormalizesBeforeValidating(t *testing.T) {
	repo := &mockTechnicianRepo{
		items: map[string]*models.Technician{
			"t1": {ID: "t1", Email: "tech@example.com", FullName: "Tech One", Timezone: "UTC", Active: true},
		},
		emailIndex: map[string]string{"tech@example.com": "t1"},
	}
	service := NewTechnicianService(repo, nil, validator.New(), zap.NewNop())

	updated, err := service.Update(context.Background(), "t1", UpdateTechnicianRequest{
		Email:    "  TECH@example.com\t",
		FullName: "  Tech One  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "tech@example.com", updated.Email)
	assert.Equal(t, "Tech One", updated.FullName)
}

func TestTechnicianServiceCreateRejectsBlankName(t *testing.T) {
	service := NewTechnicianService(&mockTechnicianRepo{}, nil, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), CreateTechnicianRequest{
		Email:    "tech@example.com",
		FullName: "   ",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestTechnicianServiceGetNotFound(t *testing.T) {
	service := NewTechnicianService(&mockTechnicianRepo{}, nil, validator.New(), zap.NewNop())

	_, err := service.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestTechnicianServiceGetStoreFailure(t *testing.T) {
	service := NewTechnicianService(&mockTechnicianRepo{findErr: errors.New("boom")}, nil, validator.New(), zap.NewNop())

	_, err := service.Get(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestTechnicianServiceDeactivate(t *testing.T) {
	repo := &mockTechnicianRepo{items: map[string]*models.Technician{"t1": {ID: "t1", Active: true}}}
	accounts := &mockTechnicianAccounts{}
	service := NewTechnicianService(repo, accounts, validator.New(), zap.NewNop())

	require.NoError(t, service.Deactivate(context.Background(), "t1"))
	assert.Equal(t, []string{"t1"}, repo.deactivated)
	assert.Equal(t, []string{"t1"}, accounts.deactivated)
}

func TestTechnicianServiceListDefaultsPagination(t *testing.T) {
	repo := &mockTechnicianRepo{listResult: []models.Technician{{ID: "t1"}}, listTotal: 1}
	service := NewTechnicianService(repo, nil, validator.New(), zap.NewNop())

	items, pagination, err := service.List(context.Background(), models.TechnicianFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestTechnicianServiceCreateLoginEmailTaken(t *testing.T) {
	accounts := &mockTechnicianAccounts{createErr: repository.ErrEmailTaken}
	service := NewTechnicianService(&mockTechnicianRepo{}, accounts, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), CreateTechnicianRequest{
		Email:    "admin@example.com",
		FullName: "Tech Two",
		Password: "supersecret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
