package service

import (
	"context"
	"errors"

	"delive/storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

type UserPatch struct {
	Email *string      `json:"email,omitempty" validate:"omitnil,email,max=100"`
	Role  *domain.Role `json:"role,omitempty" validate:"omitnil,oneof=admin buyer"`
}

// AdminService backs the /sadmin/ surface with explicit per-entity
// operations. Order editing lives in OrderService.
type AdminService struct {
	users   UserRepository
	catalog CatalogRepository
	seeder  *Seeder
	dataDir string
	logger  logrus.FieldLogger
}

func NewAdminService(users UserRepository, catalog CatalogRepository, seeder *Seeder, dataDir string, logger logrus.FieldLogger) *AdminService {
	return &AdminService{
		users:   users,
		catalog: catalog,
		seeder:  seeder,
		dataDir: dataDir,
		logger:  logger.WithField("component", "admin_service"),
	}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.ListUsers(ctx)
}

func (s *AdminService) UpdateUser(ctx context.Context, id int, patch UserPatch) (*domain.User, error) {
	if err := validateStruct(patch, userPatchMessages); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, id int) error {
	return affected(s.users.DeleteUser(ctx, id))
}

func (s *AdminService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.catalog.ListCategories(ctx)
}

func (s *AdminService) CreateCategory(ctx context.Context, cat *domain.Category) error {
	if err := validateCategory(cat); err != nil {
		return err
	}
	return s.catalog.CreateCategory(ctx, cat)
}

func (s *AdminService) UpdateCategory(ctx context.Context, cat *domain.Category) error {
	if err := validateCategory(cat); err != nil {
		return err
	}
	return s.catalog.UpdateCategory(ctx, cat)
}

func (s *AdminService) DeleteCategory(ctx context.Context, id int) error {
	return affected(s.catalog.DeleteCategory(ctx, id))
}

func (s *AdminService) ListDishes(ctx context.Context, filter domain.DishFilter) ([]domain.Dish, error) {
	return s.catalog.ListDishes(ctx, filter)
}

func (s *AdminService) CreateDish(ctx context.Context, dish *domain.Dish) error {
	if err := s.validateDish(ctx, dish); err != nil {
		return err
	}
	return s.catalog.CreateDish(ctx, dish)
}

func (s *AdminService) UpdateDish(ctx context.Context, dish *domain.Dish) error {
	if err := s.validateDish(ctx, dish); err != nil {
		return err
	}
	return s.catalog.UpdateDish(ctx, dish)
}

func (s *AdminService) DeleteDish(ctx context.Context, id int) error {
	return affected(s.catalog.DeleteDish(ctx, id))
}

// LoadData seeds the catalog from the configured data directory.
func (s *AdminService) LoadData(ctx context.Context) (*SeedResult, error) {
	s.logger.WithField("dir", s.dataDir).Info("loading catalog data")
	return s.seeder.LoadDir(ctx, s.dataDir)
}

func validateCategory(cat *domain.Category) error {
	return validateStruct(cat, categoryMessages)
}

func (s *AdminService) validateDish(ctx context.Context, dish *domain.Dish) error {
	if err := validateStruct(dish, dishMessages); err != nil {
		return err
	}

	_, err := s.catalog.GetCategory(ctx, dish.CategoryID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrCategoryNotFound
	}
	return err
}

func affected(rows int64, err error) error {
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ AdminServiceInterface = (*AdminService)(nil)
