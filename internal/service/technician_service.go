package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/technician-availability-api/internal/models"
	"github.com/noah-isme/technician-availability-api/internal/repository"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
	"github.com/noah-isme/technician-availability-api/pkg/validation"
)

type technicianRepository interface {
	List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, int, error)
	FindByID(ctx context.Context, id string) (*models.Technician, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, technician *models.Technician) error
	Update(ctx context.Context, technician *models.Technician) error
	Deactivate(ctx context.Context, id string) error
}

// technicianAccounts provisions the login linked to a technician.
type technicianAccounts interface {
	Create(ctx context.Context, user *models.User) error
	DeactivateByTechnician(ctx context.Context, technicianID string) error
}

// CreateTechnicianRequest represents payload for creating technicians.
// When Password is set a TECHNICIAN login is provisioned with the same email.
type CreateTechnicianRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	FullName  string  `json:"full_name" validate:"required,max=255"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
	Specialty *string `json:"specialty" validate:"omitempty,max=255"`
	Timezone  string  `json:"timezone" validate:"omitempty,timezone"`
	Password  string  `json:"password" validate:"omitempty,min=8"`
}

// UpdateTechnicianRequest represents payload for updating technicians.
type UpdateTechnicianRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	FullName  string  `json:"full_name" validate:"required,max=255"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
	Specialty *string `json:"specialty" validate:"omitempty,max=255"`
	Timezone  string  `json:"timezone" validate:"omitempty,timezone"`
	Active    *bool   `json:"active"`
}

// TechnicianService orchestrates technician operations.
type TechnicianService struct {
	repo      technicianRepository
	accounts  technicianAccounts
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTechnicianService constructs a TechnicianService. accounts may be nil.
func NewTechnicianService(repo technicianRepository, accounts technicianAccounts, validate *validator.Validate, logger *zap.Logger) *TechnicianService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TechnicianService{repo: repo, accounts: accounts, validator: validate, logger: logger}
}

// List returns technicians plus pagination data.
func (s *TechnicianService) List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, *models.Pagination, error) {
	technicians, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list technicians")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return technicians, pagination, nil
}

// Get returns a technician by id.
func (s *TechnicianService) Get(ctx context.Context, id string) (*models.Technician, error) {
	return requireTechnician(ctx, s.repo, id)
}

// Create registers a new technician record.
func (s *TechnicianService) Create(ctx context.Context, req CreateTechnicianRequest) (*models.Technician, error) {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid technician payload")
	}
	email := req.Email
	if err := s.ensureUniqueEmail(ctx, email, ""); err != nil {
		return nil, err
	}

	var passwordHash string
	if req.Password != "" {
		if s.accounts == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "technician logins are not enabled")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		passwordHash = string(hash)
	}

	technician := &models.Technician{
		Email:     email,
		FullName:  req.FullName,
		Phone:     normalizeOptional(req.Phone),
		Specialty: normalizeOptional(req.Specialty),
		Timezone:  defaultTimezone(req.Timezone),
		Active:    true,
	}

	if err := s.repo.Create(ctx, technician); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create technician")
	}

	if passwordHash != "" {
		technicianID := technician.ID
		user := &models.User{
			Email:        technician.Email,
			PasswordHash: passwordHash,
			FullName:     technician.FullName,
			Role:         models.RoleTechnician,
			TechnicianID: &technicianID,
			Active:       true,
		}
		if err := s.accounts.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrEmailTaken) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "a login with this email already exists")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create technician login")
		}
	}

	s.logger.Info("technician created", zap.String("technician_id", technician.ID))
	return technician, nil
}

// Update modifies an existing technician.
func (s *TechnicianService) Update(ctx context.Context, id string, req UpdateTechnicianRequest) (*models.Technician, error) {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid technician payload")
	}

	technician, err := requireTechnician(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	if err := s.ensureUniqueEmail(ctx, req.Email, id); err != nil {
		return nil, err
	}

	technician.Email = req.Email
	technician.FullName = req.FullName
	technician.Phone = normalizeOptional(req.Phone)
	technician.Specialty = normalizeOptional(req.Specialty)
	if req.Timezone != "" {
		technician.Timezone = req.Timezone
	}
	if req.Active != nil {
		technician.Active = *req.Active
	}

	if err := s.repo.Update(ctx, technician); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update technician")
	}
	return technician, nil
}

// Deactivate marks a technician inactive and disables the linked login.
func (s *TechnicianService) Deactivate(ctx context.Context, id string) error {
	if _, err := requireTechnician(ctx, s.repo, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate technician")
	}
	if s.accounts != nil {
		if err := s.accounts.DeactivateByTechnician(ctx, id); err != nil {
			s.logger.Warn("failed to deactivate technician login", zap.String("technician_id", id), zap.Error(err))
		}
	}
	return nil
}

func (s *TechnicianService) ensureUniqueEmail(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	return nil
}

func defaultTimezone(tz string) string {
	if strings.TrimSpace(tz) == "" {
		return "UTC"
	}
	return tz
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

type technicianLookup interface {
	FindByID(ctx context.Context, id string) (*models.Technician, error)
}

func requireTechnician(ctx context.Context, repo technicianLookup, id string) (*models.Technician, error) {
	technician, err := repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "technician not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load technician")
	}
	return technician, nil
}
