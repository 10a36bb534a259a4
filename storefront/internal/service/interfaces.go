package service

import (
	"context"

	"delive/storefront/internal/domain"
)

type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id int) (*domain.Category, error)
	CreateCategory(ctx context.Context, cat *domain.Category) error
	UpdateCategory(ctx context.Context, cat *domain.Category) error
	DeleteCategory(ctx context.Context, id int) (int64, error)

	ListDishes(ctx context.Context, filter domain.DishFilter) ([]domain.Dish, error)
	GetDish(ctx context.Context, id int) (*domain.Dish, error)
	CreateDish(ctx context.Context, dish *domain.Dish) error
	UpdateDish(ctx context.Context, dish *domain.Dish) error
	DeleteDish(ctx context.Context, id int) (int64, error)

	BulkLoad(ctx context.Context, categories []domain.Category, dishes []domain.Dish) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id int) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	UpdatePasswordHash(ctx context.Context, id int, hash string) error
	DeleteUser(ctx context.Context, id int) (int64, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id int) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	ListUserOrders(ctx context.Context, userID int) ([]domain.Order, error)
	UpdateOrder(ctx context.Context, order *domain.Order) error
	DeleteOrder(ctx context.Context, id int) (int64, error)
}

// SessionStore persists sessions by id. Loading an unknown id yields a fresh
// empty session, not an error.
type SessionStore interface {
	Load(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, id string, sess *domain.Session) error
	Delete(ctx context.Context, id string) error
}

type OrderPublisher interface {
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error
}

type PopularityCounter interface {
	RecordOrder(ctx context.Context, dishIDs []int) error
	TopDishes(ctx context.Context, limit int) ([]int, error)
}

type CatalogServiceInterface interface {
	Home(ctx context.Context, sample int) (*HomePage, error)
	GetDish(ctx context.Context, id int) (*domain.Dish, error)
}

type CartServiceInterface interface {
	Add(ctx context.Context, cart *domain.Cart, dishID int) (*domain.Dish, error)
	Remove(ctx context.Context, cart *domain.Cart, dishID int) (*domain.Dish, bool, error)
	View(ctx context.Context, cart domain.Cart) ([]domain.Dish, error)
}

type OrderServiceInterface interface {
	Checkout(ctx context.Context, sess *domain.Session, details domain.CustomerDetails) (*domain.Order, error)
	ListForUser(ctx context.Context, userID int) ([]domain.Order, error)
	Get(ctx context.Context, id int) (*domain.Order, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	Update(ctx context.Context, id int, patch OrderPatch) (*domain.Order, error)
	Delete(ctx context.Context, id int) error
	ReceiptQR(ctx context.Context, orderID int, viewer *domain.SessionUser) ([]byte, error)
}

type AuthServiceInterface interface {
	Register(ctx context.Context, form RegistrationForm) (*domain.User, error)
	Login(ctx context.Context, form LoginForm) (*domain.User, error)
	ChangePassword(ctx context.Context, userID int, form PasswordForm) error
	Account(ctx context.Context, userID int) (*domain.User, error)
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

type AdminServiceInterface interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, id int, patch UserPatch) (*domain.User, error)
	DeleteUser(ctx context.Context, id int) error

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, cat *domain.Category) error
	UpdateCategory(ctx context.Context, cat *domain.Category) error
	DeleteCategory(ctx context.Context, id int) error

	ListDishes(ctx context.Context, filter domain.DishFilter) ([]domain.Dish, error)
	CreateDish(ctx context.Context, dish *domain.Dish) error
	UpdateDish(ctx context.Context, dish *domain.Dish) error
	DeleteDish(ctx context.Context, id int) error

	LoadData(ctx context.Context) (*SeedResult, error)
}
