package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"delive/storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

// OrderPatch holds the admin-editable order fields; nil means unchanged.
type OrderPatch struct {
	Status *domain.OrderStatus `json:"status,omitempty" validate:"omitnil,order_status"`
	Phone  *string             `json:"phone,omitempty" validate:"omitnil,nonblank,max=20,phone"`
}

type OrderService struct {
	orders     OrderRepository
	catalog    CatalogRepository
	publisher  OrderPublisher
	popularity PopularityCounter
	qrEncoder  QRGenerator
	logger     logrus.FieldLogger
	now        func() time.Time
}

func NewOrderService(orders OrderRepository, catalog CatalogRepository, publisher OrderPublisher,
	popularity PopularityCounter, qr QRGenerator, logger logrus.FieldLogger) *OrderService {
	return &OrderService{
		orders:     orders,
		catalog:    catalog,
		publisher:  publisher,
		popularity: popularity,
		qrEncoder:  qr,
		logger:     logger.WithField("component", "order_service"),
		now:        time.Now,
	}
}

// WithClock replaces the time source used for the order date.
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

// Checkout turns the session cart into an order. Details are validated
// first, then the session must be authenticated. Cart ids that no longer
// resolve are skipped. The cart is only reset once the order is committed.
func (s *OrderService) Checkout(ctx context.Context, sess *domain.Session, details domain.CustomerDetails) (*domain.Order, error) {
	if err := ValidateCustomerDetails(details); err != nil {
		return nil, err
	}
	if !sess.Authenticated() {
		return nil, domain.ErrLoginRequired
	}

	dishes, err := resolveDishes(ctx, s.catalog, sess.Cart.DishIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve cart dishes: %w", err)
	}

	order := &domain.Order{
		Created:         domain.FormatCreated(s.now()),
		Name:            details.Name,
		Total:           sess.Cart.Total,
		Status:          domain.StatusAccepted,
		Phone:           details.Phone,
		Email:           details.Email,
		DeliveryAddress: details.Address,
		UserID:          sess.User.ID,
		Dishes:          dishes,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	order.StatusLabel = order.Status.Label()
	sess.Cart.Reset()

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"dishes":   len(order.Dishes),
		"total":    order.Total,
	}).Info("order created")

	s.publish(ctx, domain.EventOrderCreated, order)
	if s.popularity != nil && len(order.Dishes) > 0 {
		if err := s.popularity.RecordOrder(ctx, order.DishIDs()); err != nil {
			s.logger.WithError(err).Warn("failed to record dish popularity")
		}
	}
	return order, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID int) ([]domain.Order, error) {
	orders, err := s.orders.ListUserOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	return withLabels(orders), nil
}

func (s *OrderService) Get(ctx context.Context, id int) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	order.StatusLabel = order.Status.Label()
	return order, nil
}

func (s *OrderService) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	orders, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	return withLabels(orders), nil
}

// Update applies an admin edit. Any valid status may be set, including
// moving backwards.
func (s *OrderService) Update(ctx context.Context, id int, patch OrderPatch) (*domain.Order, error) {
	if err := validateStruct(patch, orderPatchMessages); err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := order.Status
	if patch.Status != nil {
		order.Status = *patch.Status
	}
	if patch.Phone != nil {
		order.Phone = *patch.Phone
	}
	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}
	order.StatusLabel = order.Status.Label()

	if order.Status != previous {
		s.logger.WithFields(logrus.Fields{
			"order_id": order.ID,
			"from":     previous.String(),
			"to":       order.Status.String(),
		}).Info("order status changed")
		s.publish(ctx, domain.EventOrderStatusChanged, order)
	}
	return order, nil
}

func (s *OrderService) Delete(ctx context.Context, id int) error {
	rows, err := s.orders.DeleteOrder(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReceiptQR returns the PNG receipt code; only the owner or an admin may
// see it.
func (s *OrderService) ReceiptQR(ctx context.Context, orderID int, viewer *domain.SessionUser) ([]byte, error) {
	if viewer == nil {
		return nil, domain.ErrLoginRequired
	}
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != viewer.ID && viewer.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	if s.qrEncoder == nil {
		return nil, errors.New("qr encoder is not configured")
	}
	return s.qrEncoder.Generate(order.ID)
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	event := domain.OrderEvent{
		Type:      eventType,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    order.Status.String(),
		Total:     order.Total,
		DishIDs:   order.DishIDs(),
		Timestamp: s.now(),
	}
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to publish order event")
	}
}

func withLabels(orders []domain.Order) []domain.Order {
	for i := range orders {
		orders[i].StatusLabel = orders[i].Status.Label()
	}
	return orders
}

var _ OrderServiceInterface = (*OrderService)(nil)
