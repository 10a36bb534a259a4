package domain

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyInCart      = errors.New("dish is already in the cart")
	ErrDuplicateUser      = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrCategoryNotFound   = errors.New("category does not exist")
	ErrReferenced         = errors.New("record is still referenced by other records")
	ErrForbidden          = errors.New("access denied")
	ErrLoginRequired      = errors.New("login required")
	ErrPasswordUnreadable = errors.New("password is write-only")
)

// PasswordCost is the bcrypt cost used for stored hashes.
var PasswordCost = bcrypt.DefaultCost

type Role string

const (
	RoleAdmin Role = "admin"
	RoleBuyer Role = "buyer"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleBuyer
}

func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

type User struct {
	ID           int    `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// Password always fails: the plaintext is never kept.
func (u *User) Password() (string, error) {
	return "", ErrPasswordUnreadable
}

func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) PasswordValid(plain string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Category struct {
	ID     int    `json:"id"`
	Title  string `json:"title" validate:"nonblank,max=30"`
	Dishes []Dish `json:"dishes,omitempty"`
}

type Dish struct {
	ID          int    `json:"id"`
	Title       string `json:"title" validate:"nonblank,max=130"`
	Price       int    `json:"price" validate:"gte=0"`
	Description string `json:"description"`
	Picture     string `json:"picture" validate:"nonblank,max=50"`
	CategoryID  int    `json:"category_id" validate:"gt=0"`
}

type Order struct {
	ID              int         `json:"id"`
	Created         string      `json:"created"`
	Name            string      `json:"name"`
	Total           int         `json:"total"`
	Status          OrderStatus `json:"status"`
	StatusLabel     string      `json:"status_label"`
	Phone           string      `json:"phone"`
	Email           string      `json:"email"`
	DeliveryAddress string      `json:"delivery_address"`
	UserID          int         `json:"user_id"`
	Dishes          []Dish      `json:"dishes"`
}

func (o *Order) DishIDs() []int {
	ids := make([]int, 0, len(o.Dishes))
	for _, d := range o.Dishes {
		ids = append(ids, d.ID)
	}
	return ids
}

// CustomerDetails is the delivery information submitted at checkout.
type CustomerDetails struct {
	Name    string `json:"name" validate:"nonblank,min=4,max=32"`
	Address string `json:"address" validate:"nonblank,min=10,max=100"`
	Email   string `json:"email" validate:"required,email,max=100"`
	Phone   string `json:"phone" validate:"required,max=20,phone"`
}

type OrderEvent struct {
	Type      string    `json:"type"`
	OrderID   int       `json:"order_id"`
	UserID    int       `json:"user_id"`
	Status    string    `json:"status"`
	Total     int       `json:"total"`
	DishIDs   []int     `json:"dish_ids"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)

var genitiveMonths = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatCreated renders the order date the way it is shown to customers,
// e.g. "19 октября 2026 г.".
func FormatCreated(t time.Time) string {
	return fmt.Sprintf("%d %s %d г.", t.Day(), genitiveMonths[t.Month()-1], t.Year())
}
