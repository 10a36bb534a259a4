package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"delive/storefront/internal/domain"
	"delive/storefront/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	Catalog  service.CatalogServiceInterface
	Cart     service.CartServiceInterface
	Orders   service.OrderServiceInterface
	Auth     service.AuthServiceInterface
	Admin    service.AdminServiceInterface
	Sessions *SessionManager
	Logger   logrus.FieldLogger
}

func NewHandler(catalogSvc service.CatalogServiceInterface, cartSvc service.CartServiceInterface,
	orderSvc service.OrderServiceInterface, authSvc service.AuthServiceInterface,
	adminSvc service.AdminServiceInterface, sessions *SessionManager, logger logrus.FieldLogger) *Handler {
	return &Handler{
		Catalog:  catalogSvc,
		Cart:     cartSvc,
		Orders:   orderSvc,
		Auth:     authSvc,
		Admin:    adminSvc,
		Sessions: sessions,
		Logger:   logger.WithField("component", "http"),
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.healthCheck).Methods("GET")

	site := r.NewRoute().Subrouter()
	if h.Sessions != nil {
		site.Use(h.Sessions.Middleware)
	}

	site.HandleFunc("/", h.home).Methods("GET")
	site.HandleFunc("/cart/", h.viewCart).Methods("GET")
	site.HandleFunc("/cart/", h.checkout).Methods("POST")
	site.HandleFunc("/addtocart/{dish_id}/", h.addToCart).Methods("GET")
	site.HandleFunc("/delete_dish/{dish_id}/", h.removeFromCart).Methods("GET")

	site.Handle("/account/", requireSession(h.account)).Methods("GET")
	site.Handle("/account/orders/{id}/qrcode", requireSession(h.orderQRCode)).Methods("GET")
	site.Handle("/logout/", requireSession(h.logout)).Methods("GET")
	site.Handle("/change-password/", requireSession(h.changePasswordForm)).Methods("GET")
	site.Handle("/change-password/", requireSession(h.changePassword)).Methods("POST")

	site.HandleFunc("/login/", h.loginForm).Methods("GET")
	site.HandleFunc("/login/", h.login).Methods("POST")
	site.HandleFunc("/registration/", h.registrationForm).Methods("GET")
	site.HandleFunc("/registration/", h.register).Methods("POST")

	site.Handle("/admin/", requireAdmin(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/sadmin/", http.StatusFound)
	})).Methods("GET")
	h.registerAdminRoutes(site.PathPrefix("/sadmin").Subrouter())
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "storefront",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

type cartSummary struct {
	Total int `json:"total"`
	Count int `json:"count"`
}

type homeResponse struct {
	Categories []domain.Category   `json:"categories"`
	Popular    []domain.Dish       `json:"popular"`
	Cart       cartSummary         `json:"cart"`
	User       *domain.SessionUser `json:"user,omitempty"`
	Flashes    []string            `json:"flashes,omitempty"`
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	sample := 0
	if v := r.URL.Query().Get("sample"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
				Errors: map[string]string{"sample": "Sample must be a non-negative integer"},
			})
			return
		}
		sample = n
	}

	page, err := h.Catalog.Home(r.Context(), sample)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	sess := currentSession(r)
	writeJSON(w, http.StatusOK, homeResponse{
		Categories: page.Categories,
		Popular:    page.Popular,
		Cart:       cartSummary{Total: sess.Cart.Total, Count: sess.Cart.Count},
		User:       sess.User,
		Flashes:    sess.PopFlashes(),
	})
}

type cartResponse struct {
	Dishes  []domain.Dish `json:"dishes"`
	Total   int           `json:"total"`
	Count   int           `json:"count"`
	Email   string        `json:"email"`
	Flashes []string      `json:"flashes,omitempty"`
}

func (h *Handler) viewCart(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	dishes, err := h.Cart.View(r.Context(), sess.Cart)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	resp := cartResponse{
		Dishes:  dishes,
		Total:   sess.Cart.Total,
		Count:   sess.Cart.Count,
		Flashes: sess.PopFlashes(),
	}
	if sess.User != nil {
		resp.Email = sess.User.Email
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	details := domain.CustomerDetails{
		Name:    values["name"],
		Address: values["address"],
		Email:   values["email"],
		Phone:   values["phone"],
	}

	order, err := h.Orders.Checkout(r.Context(), currentSession(r), details)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "dish_id")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	sess := currentSession(r)
	dish, err := h.Cart.Add(r.Context(), &sess.Cart, id)
	switch {
	case errors.Is(err, domain.ErrAlreadyInCart):
		sess.Flash(fmt.Sprintf("Dish %s is already in the cart", dish.Title))
		http.Redirect(w, r, "/", http.StatusFound)
	case err != nil:
		writeServiceError(w, r, h.Logger, err)
	default:
		http.Redirect(w, r, "/cart/", http.StatusFound)
	}
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "dish_id")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	sess := currentSession(r)
	dish, removed, err := h.Cart.Remove(r.Context(), &sess.Cart, id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	if removed {
		if dish != nil {
			sess.Flash(fmt.Sprintf("Dish %s removed from cart", dish.Title))
		} else {
			sess.Flash("Dish removed from cart")
		}
	}
	http.Redirect(w, r, "/cart/", http.StatusFound)
}

type accountResponse struct {
	User    *domain.User   `json:"user"`
	Orders  []domain.Order `json:"orders"`
	Flashes []string       `json:"flashes,omitempty"`
}

func (h *Handler) account(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	user, err := h.Auth.Account(r.Context(), sess.User.ID)
	if errors.Is(err, domain.ErrNotFound) {
		h.userGone(w, r, sess)
		return
	}
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	orders, err := h.Orders.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{User: user, Orders: orders, Flashes: sess.PopFlashes()})
}

func (h *Handler) orderQRCode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	png, err := h.Orders.ReceiptQR(r.Context(), id, currentSession(r).User)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

type formResponse struct {
	Form    string   `json:"form"`
	Fields  []string `json:"fields"`
	Flashes []string `json:"flashes,omitempty"`
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess.Authenticated() {
		http.Redirect(w, r, "/account/", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, formResponse{
		Form:    "login",
		Fields:  []string{"email", "password"},
		Flashes: sess.PopFlashes(),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if currentSession(r).Authenticated() {
		http.Redirect(w, r, "/account/", http.StatusFound)
		return
	}
	values, err := formValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	user, err := h.Auth.Login(r.Context(), service.LoginForm{
		Email:    values["email"],
		Password: values["password"],
	})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	h.signIn(w, r, user)
}

func (h *Handler) registrationForm(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess.Authenticated() {
		http.Redirect(w, r, "/account/", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, formResponse{
		Form:    "registration",
		Fields:  []string{"email", "password", "confirm_password"},
		Flashes: sess.PopFlashes(),
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if currentSession(r).Authenticated() {
		http.Redirect(w, r, "/account/", http.StatusFound)
		return
	}
	values, err := formValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	user, err := h.Auth.Register(r.Context(), service.RegistrationForm{
		Email:           values["email"],
		Password:        values["password"],
		ConfirmPassword: values["confirm_password"],
	})
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}
	h.signIn(w, r, user)
}

// signIn sets the session marker on a fresh session id and sends the user
// home. The cart carries over.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, user *domain.User) {
	if h.Sessions != nil {
		if err := h.Sessions.Rotate(w, r); err != nil {
			writeServiceError(w, r, h.Logger, err)
			return
		}
	}
	currentSession(r).User = domain.NewSessionUser(user)
	h.Logger.WithField("user_id", user.ID).Info("user signed in")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if h.Sessions != nil {
		if err := h.Sessions.Rotate(w, r); err != nil {
			writeServiceError(w, r, h.Logger, err)
			return
		}
	}
	sess.User = nil
	http.Redirect(w, r, "/login/", http.StatusFound)
}

func (h *Handler) changePasswordForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, formResponse{
		Form:    "change_password",
		Fields:  []string{"password", "confirm_password"},
		Flashes: currentSession(r).PopFlashes(),
	})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	values, err := formValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	sess := currentSession(r)
	err = h.Auth.ChangePassword(r.Context(), sess.User.ID, service.PasswordForm{
		Password:        values["password"],
		ConfirmPassword: values["confirm_password"],
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.userGone(w, r, sess)
	case err != nil:
		writeServiceError(w, r, h.Logger, err)
	default:
		sess.Flash("Your password has been changed")
		http.Redirect(w, r, "/account/", http.StatusFound)
	}
}

// userGone handles a session marker whose user was deleted meanwhile.
func (h *Handler) userGone(w http.ResponseWriter, r *http.Request, sess *domain.Session) {
	h.Logger.WithField("user_id", sess.User.ID).Warn("session user no longer exists")
	sess.User = nil
	sess.Flash("User not found")
	http.Redirect(w, r, "/", http.StatusFound)
}
