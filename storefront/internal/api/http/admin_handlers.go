package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"delive/storefront/internal/access"
	"delive/storefront/internal/domain"
	"delive/storefront/internal/service"

	"github.com/gorilla/mux"
)

func (h *Handler) registerAdminRoutes(r *mux.Router) {
	r.Use(guard(access.RequiresAdmin))

	r.HandleFunc("/", h.adminIndex).Methods("GET")

	r.HandleFunc("/users/", h.adminListUsers).Methods("GET")
	r.HandleFunc("/users/{id}/", h.adminUpdateUser).Methods("PUT")
	r.HandleFunc("/users/{id}/", h.adminDeleteUser).Methods("DELETE")

	r.HandleFunc("/categories/", h.adminListCategories).Methods("GET")
	r.HandleFunc("/categories/", h.adminCreateCategory).Methods("POST")
	r.HandleFunc("/categories/{id}/", h.adminUpdateCategory).Methods("PUT")
	r.HandleFunc("/categories/{id}/", h.adminDeleteCategory).Methods("DELETE")

	r.HandleFunc("/dishes/", h.adminListDishes).Methods("GET")
	r.HandleFunc("/dishes/", h.adminCreateDish).Methods("POST")
	r.HandleFunc("/dishes/{id}/", h.adminUpdateDish).Methods("PUT")
	r.HandleFunc("/dishes/{id}/", h.adminDeleteDish).Methods("DELETE")

	r.HandleFunc("/orders/", h.adminListOrders).Methods("GET")
	r.HandleFunc("/orders/{id}/", h.adminGetOrder).Methods("GET")
	r.HandleFunc("/orders/{id}/", h.adminUpdateOrder).Methods("PUT")
	r.HandleFunc("/orders/{id}/", h.adminDeleteOrder).Methods("DELETE")

	r.HandleFunc("/loaddb/", h.adminLoadData).Methods("POST")
}

func (h *Handler) adminIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"entities": {"users", "categories", "dishes", "orders"},
	})
}

func (h *Handler) adminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Admin.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) adminUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	var patch service.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.Admin.UpdateUser(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	h.adminDelete(w, r, h.Admin.DeleteUser)
}

func (h *Handler) adminListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Admin.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) adminCreateCategory(w http.ResponseWriter, r *http.Request) {
	var cat domain.Category
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Admin.CreateCategory(r.Context(), &cat); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (h *Handler) adminUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	var cat domain.Category
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cat.ID = id
	if err := h.Admin.UpdateCategory(r.Context(), &cat); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (h *Handler) adminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	h.adminDelete(w, r, h.Admin.DeleteCategory)
}

func (h *Handler) adminListDishes(w http.ResponseWriter, r *http.Request) {
	filter := domain.DishFilter{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	if v := r.URL.Query().Get("category_id"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
				Errors: map[string]string{"category_id": "Category id must be an integer"},
			})
			return
		}
		filter.CategoryID = n
	}
	dishes, err := h.Admin.ListDishes(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dishes)
}

func (h *Handler) adminCreateDish(w http.ResponseWriter, r *http.Request) {
	var dish domain.Dish
	if err := json.NewDecoder(r.Body).Decode(&dish); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Admin.CreateDish(r.Context(), &dish); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dish)
}

func (h *Handler) adminUpdateDish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	var dish domain.Dish
	if err := json.NewDecoder(r.Body).Decode(&dish); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dish.ID = id
	if err := h.Admin.UpdateDish(r.Context(), &dish); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dish)
}

func (h *Handler) adminDeleteDish(w http.ResponseWriter, r *http.Request) {
	h.adminDelete(w, r, h.Admin.DeleteDish)
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	filter := domain.OrderFilter{Name: strings.TrimSpace(r.URL.Query().Get("name"))}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := domain.ParseOrderStatus(v)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
				Errors: map[string]string{"status": "Unknown order status"},
			})
			return
		}
		filter.Status = &status
	}
	orders, err := h.Orders.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) adminGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	order, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// orderPatchBody accepts the status either as its name or as the stored
// integer.
type orderPatchBody struct {
	Status json.RawMessage `json:"status"`
	Phone  *string         `json:"phone"`
}

func (h *Handler) adminUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	var body orderPatchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	patch := service.OrderPatch{Phone: body.Phone}
	if raw := strings.TrimSpace(string(body.Status)); raw != "" && raw != "null" {
		status, err := domain.ParseOrderStatus(strings.Trim(raw, `"`))
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
				Errors: map[string]string{"status": "Unknown order status"},
			})
			return
		}
		patch.Status = &status
	}

	order, err := h.Orders.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) adminDeleteOrder(w http.ResponseWriter, r *http.Request) {
	h.adminDelete(w, r, h.Orders.Delete)
}

func (h *Handler) adminLoadData(w http.ResponseWriter, r *http.Request) {
	result, err := h.Admin.LoadData(r.Context())
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) adminDelete(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id int) error) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err := del(r.Context(), id); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
