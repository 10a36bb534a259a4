package domain

// Cart is the per-session shopping cart. DishIDs keeps insertion order and
// never holds the same id twice; Total and Count are derived from it.
type Cart struct {
	DishIDs []int `json:"dish_ids"`
	Total   int   `json:"total"`
	Count   int   `json:"count"`
}

func (c *Cart) Contains(dishID int) bool {
	for _, id := range c.DishIDs {
		if id == dishID {
			return true
		}
	}
	return false
}

func (c *Cart) IsEmpty() bool {
	return len(c.DishIDs) == 0
}

// Add appends the dish. A dish already in the cart leaves the cart unchanged
// and returns ErrAlreadyInCart.
func (c *Cart) Add(dish Dish) error {
	if c.Contains(dish.ID) {
		return ErrAlreadyInCart
	}
	c.DishIDs = append(c.DishIDs, dish.ID)
	c.Total += dish.Price
	c.Count = len(c.DishIDs)
	return nil
}

// Remove drops the dish and reports whether it was present. When the totals
// go negative (prices changed mid-session) or the cart empties, the cart is
// reset to the zero state.
func (c *Cart) Remove(dish Dish) bool {
	return c.removeID(dish.ID, dish.Price)
}

// Drop removes an id whose dish no longer exists in the catalog. Its price
// is unknown, so callers follow up with Recount.
func (c *Cart) Drop(dishID int) bool {
	return c.removeID(dishID, 0)
}

// Recount derives Total from the dishes that still resolve and Count from
// the ids held.
func (c *Cart) Recount(resolved []Dish) {
	if len(c.DishIDs) == 0 {
		c.Reset()
		return
	}
	total := 0
	for _, d := range resolved {
		total += d.Price
	}
	c.Total = total
	c.Count = len(c.DishIDs)
}

func (c *Cart) removeID(dishID, price int) bool {
	idx := -1
	for i, id := range c.DishIDs {
		if id == dishID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	c.DishIDs = append(c.DishIDs[:idx], c.DishIDs[idx+1:]...)
	total := c.Total - price
	count := c.Count - 1
	if total < 0 || count < 0 || len(c.DishIDs) == 0 {
		c.Reset()
		return true
	}
	c.Total = total
	c.Count = count
	return true
}

func (c *Cart) Reset() {
	c.DishIDs = []int{}
	c.Total = 0
	c.Count = 0
}

// SessionUser is the authenticated-user marker kept in the session.
type SessionUser struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func NewSessionUser(u *User) *SessionUser {
	return &SessionUser{ID: u.ID, Email: u.Email, Role: u.Role}
}

type Session struct {
	User    *SessionUser `json:"user,omitempty"`
	Cart    Cart         `json:"cart"`
	Flashes []string     `json:"flashes,omitempty"`
}

func NewSession() *Session {
	return &Session{Cart: Cart{DishIDs: []int{}}}
}

func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil
}

func (s *Session) Flash(msg string) {
	s.Flashes = append(s.Flashes, msg)
}

// PopFlashes returns the queued messages and clears them.
func (s *Session) PopFlashes() []string {
	flashes := s.Flashes
	s.Flashes = nil
	return flashes
}
