package service

import (
	"context"
	"errors"

	"delive/storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

type CartService struct {
	catalog CatalogRepository
	logger  logrus.FieldLogger
}

func NewCartService(catalog CatalogRepository, logger logrus.FieldLogger) *CartService {
	return &CartService{
		catalog: catalog,
		logger:  logger.WithField("component", "cart_service"),
	}
}

// Add looks the dish up and appends it to the cart. A missing dish returns
// domain.ErrNotFound and a repeated dish domain.ErrAlreadyInCart; in both
// cases the cart is left as it was.
func (s *CartService) Add(ctx context.Context, cart *domain.Cart, dishID int) (*domain.Dish, error) {
	dish, err := s.catalog.GetDish(ctx, dishID)
	if err != nil {
		return nil, err
	}
	if err := cart.Add(*dish); err != nil {
		return dish, err
	}
	s.logger.WithFields(logrus.Fields{"dish_id": dishID, "count": cart.Count}).Debug("dish added to cart")
	return dish, nil
}

// Remove reports whether the id was in the cart. The returned dish is nil
// when it has since been deleted from the catalog.
func (s *CartService) Remove(ctx context.Context, cart *domain.Cart, dishID int) (*domain.Dish, bool, error) {
	if !cart.Contains(dishID) {
		return nil, false, nil
	}
	dish, err := s.catalog.GetDish(ctx, dishID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, true, s.dropMissing(ctx, cart, dishID)
	}
	if err != nil {
		return nil, false, err
	}
	return dish, cart.Remove(*dish), nil
}

// dropMissing removes an id whose dish was deleted and recomputes the total
// from the dishes left. The cart is only touched once they resolve.
func (s *CartService) dropMissing(ctx context.Context, cart *domain.Cart, dishID int) error {
	remaining := make([]int, 0, len(cart.DishIDs))
	for _, id := range cart.DishIDs {
		if id != dishID {
			remaining = append(remaining, id)
		}
	}
	dishes, err := resolveDishes(ctx, s.catalog, remaining)
	if err != nil {
		return err
	}
	cart.Drop(dishID)
	cart.Recount(dishes)
	s.logger.WithField("dish_id", dishID).Debug("dropped deleted dish from cart")
	return nil
}

// View resolves the cart ids in order, skipping ids that no longer exist.
func (s *CartService) View(ctx context.Context, cart domain.Cart) ([]domain.Dish, error) {
	return resolveDishes(ctx, s.catalog, cart.DishIDs)
}

func resolveDishes(ctx context.Context, catalog CatalogRepository, ids []int) ([]domain.Dish, error) {
	dishes := make([]domain.Dish, 0, len(ids))
	for _, id := range ids {
		dish, err := catalog.GetDish(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		dishes = append(dishes, *dish)
	}
	return dishes, nil
}

var _ CartServiceInterface = (*CartService)(nil)
