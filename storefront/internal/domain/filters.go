package domain

// DishFilter narrows admin dish listings. Zero values mean "any".
type DishFilter struct {
	CategoryID int
	Query      string
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status *OrderStatus
	Name   string
}
