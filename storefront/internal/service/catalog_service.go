package service

import (
	"context"
	"math/rand"
	"time"

	"delive/storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

const popularLimit = 5

type HomePage struct {
	Categories []domain.Category `json:"categories"`
	Popular    []domain.Dish     `json:"popular"`
}

type CatalogService struct {
	repo       CatalogRepository
	popularity PopularityCounter
	logger     logrus.FieldLogger
	rnd        *rand.Rand
}

func NewCatalogService(repo CatalogRepository, popularity PopularityCounter, logger logrus.FieldLogger) *CatalogService {
	return &CatalogService{
		repo:       repo,
		popularity: popularity,
		logger:     logger.WithField("component", "catalog_service"),
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Home groups every dish under its category. With sample > 0 each category
// keeps at most sample dishes chosen at random.
func (s *CatalogService) Home(ctx context.Context, sample int) (*HomePage, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	dishes, err := s.repo.ListDishes(ctx, domain.DishFilter{})
	if err != nil {
		return nil, err
	}

	byCategory := make(map[int][]domain.Dish, len(categories))
	byID := make(map[int]domain.Dish, len(dishes))
	for _, d := range dishes {
		byCategory[d.CategoryID] = append(byCategory[d.CategoryID], d)
		byID[d.ID] = d
	}
	for i := range categories {
		categories[i].Dishes = s.sample(byCategory[categories[i].ID], sample)
	}

	page := &HomePage{Categories: categories, Popular: []domain.Dish{}}
	if s.popularity == nil {
		return page, nil
	}
	ids, err := s.popularity.TopDishes(ctx, popularLimit)
	if err != nil {
		s.logger.WithError(err).Warn("failed to read popular dishes")
		return page, nil
	}
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			page.Popular = append(page.Popular, d)
		}
	}
	return page, nil
}

func (s *CatalogService) sample(dishes []domain.Dish, n int) []domain.Dish {
	if n <= 0 || len(dishes) <= n {
		return dishes
	}
	picked := make([]domain.Dish, 0, n)
	for _, i := range s.rnd.Perm(len(dishes))[:n] {
		picked = append(picked, dishes[i])
	}
	return picked
}

func (s *CatalogService) GetDish(ctx context.Context, id int) (*domain.Dish, error) {
	return s.repo.GetDish(ctx, id)
}

var _ CatalogServiceInterface = (*CatalogService)(nil)
