package domain

import (
	"fmt"
	"strconv"
)

// OrderStatus is the fulfilment stage of an order. Values are stored as
// integers 0..3 and only the admin surface changes them; nothing forces the
// status to move forward.
type OrderStatus int

const (
	StatusAccepted OrderStatus = iota
	StatusPreparing
	StatusShipped
	StatusDelivered
)

var statusNames = [...]string{"accepted", "preparing", "shipped", "delivered"}

var statusLabels = [...]string{
	"order accepted",
	"order is being prepared",
	"order is on its way",
	"order delivered",
}

func (s OrderStatus) Valid() bool {
	return s >= StatusAccepted && s <= StatusDelivered
}

func (s OrderStatus) String() string {
	if !s.Valid() {
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
	return statusNames[s]
}

func (s OrderStatus) Label() string {
	if !s.Valid() {
		return ""
	}
	return statusLabels[s]
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid order status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText accepts the status name or its numeric value.
func (s *OrderStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseOrderStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseOrderStatus(v string) (OrderStatus, error) {
	for i, name := range statusNames {
		if v == name {
			return OrderStatus(i), nil
		}
	}
	if n, err := strconv.Atoi(v); err == nil && OrderStatus(n).Valid() {
		return OrderStatus(n), nil
	}
	return 0, fmt.Errorf("unknown order status %q", v)
}
