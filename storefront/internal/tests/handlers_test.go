package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	httpapi "delive/storefront/internal/api/http"
	"delive/storefront/internal/domain"
	"delive/storefront/internal/mocks"
	"delive/storefront/internal/service"
	"delive/storefront/internal/storage"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type storefrontEnv struct {
	router  *mux.Router
	catalog *mocks.CatalogRepository
	users   *mocks.UserRepository
	orders  *mocks.OrderRepository
	store   *storage.RedisSessionStore
}

func newStorefrontEnv(t *testing.T) *storefrontEnv {
	t.Helper()
	_, client := setupRedis(t)
	store := storage.NewRedisSessionStore(client, time.Hour)
	env := newStorefrontEnvWithStore(t, store)
	env.store = store
	return env
}

func newStorefrontEnvWithStore(t *testing.T, sessionStore service.SessionStore) *storefrontEnv {
	t.Helper()
	logger, _ := logtest.NewNullLogger()

	env := &storefrontEnv{
		catalog: mocks.NewCatalogRepository(t),
		users:   mocks.NewUserRepository(t),
		orders:  mocks.NewOrderRepository(t),
	}
	orderSvc := service.NewOrderService(env.orders, env.catalog, nil, nil,
		service.DefaultQRGenerator{BaseURL: "http://localhost"}, logger)
	handler := httpapi.NewHandler(
		service.NewCatalogService(env.catalog, nil, logger),
		service.NewCartService(env.catalog, logger),
		orderSvc,
		service.NewAuthService(env.users, logger),
		service.NewAdminService(env.users, env.catalog, service.NewSeeder(env.catalog, logger), t.TempDir(), logger),
		httpapi.NewSessionManager(sessionStore, testSecret, time.Hour, false, logger),
		logger,
	)
	env.router = mux.NewRouter()
	handler.RegisterRoutes(env.router)
	return env
}

func signSession(t *testing.T, id string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Id:        id,
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// withSession stores sess under a new id and returns the matching cookie.
func (e *storefrontEnv) withSession(t *testing.T, sess *domain.Session) *http.Cookie {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, e.store.Save(context.Background(), id, sess))
	return &http.Cookie{Name: httpapi.SessionCookie, Value: signSession(t, id)}
}

func (e *storefrontEnv) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// savedSession reads back the session the response cookie points at.
func (e *storefrontEnv) savedSession(t *testing.T, w *httptest.ResponseRecorder) (string, *domain.Session) {
	t.Helper()
	var token string
	for _, c := range w.Result().Cookies() {
		if c.Name == httpapi.SessionCookie {
			token = c.Value
		}
	}
	require.NotEmpty(t, token, "response sets no session cookie")

	claims := &jwt.StandardClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)

	sess, err := e.store.Load(context.Background(), claims.Id)
	require.NoError(t, err)
	return claims.Id, sess
}

func buyer() *domain.Session {
	sess := domain.NewSession()
	sess.User = &domain.SessionUser{ID: 5, Email: "ivan@example.com", Role: domain.RoleBuyer}
	return sess
}

func admin() *domain.Session {
	sess := domain.NewSession()
	sess.User = &domain.SessionUser{ID: 1, Email: "admin@example.com", Role: domain.RoleAdmin}
	return sess
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHealthHandler(t *testing.T) {
	env := newStorefrontEnv(t)
	w := env.do(httptest.NewRequest("GET", "/health", nil), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "storefront", body["service"])
}

func TestAddToCartHandler(t *testing.T) {
	soup := &domain.Dish{ID: 1, Title: "Soup", Price: 100}

	tests := []struct {
		name         string
		path         string
		session      func() *domain.Session
		setupMock    func(*mocks.CatalogRepository)
		wantCode     int
		wantLocation string
		wantCart     []int
		wantFlash    bool
	}{
		{
			name:    "adds_new_dish",
			path:    "/addtocart/1/",
			session: domain.NewSession,
			setupMock: func(m *mocks.CatalogRepository) {
				m.On("GetDish", mock.Anything, 1).Return(soup, nil).Once()
			},
			wantCode:     http.StatusFound,
			wantLocation: "/cart/",
			wantCart:     []int{1},
		},
		{
			name: "duplicate_warns_and_goes_home",
			path: "/addtocart/1/",
			session: func() *domain.Session {
				sess := domain.NewSession()
				_ = sess.Cart.Add(*soup)
				return sess
			},
			setupMock: func(m *mocks.CatalogRepository) {
				m.On("GetDish", mock.Anything, 1).Return(soup, nil).Once()
			},
			wantCode:     http.StatusFound,
			wantLocation: "/",
			wantCart:     []int{1},
			wantFlash:    true,
		},
		{
			name:    "missing_dish",
			path:    "/addtocart/42/",
			session: domain.NewSession,
			setupMock: func(m *mocks.CatalogRepository) {
				m.On("GetDish", mock.Anything, 42).Return(nil, domain.ErrNotFound).Once()
			},
			wantCode: http.StatusNotFound,
			wantCart: []int{},
		},
		{
			name:      "non_numeric_id",
			path:      "/addtocart/abc/",
			session:   domain.NewSession,
			setupMock: func(*mocks.CatalogRepository) {},
			wantCode:  http.StatusNotFound,
			wantCart:  []int{},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			env := newStorefrontEnv(t)
			testCase.setupMock(env.catalog)

			w := env.do(httptest.NewRequest("GET", testCase.path, nil), env.withSession(t, testCase.session()))

			assert.Equal(t, testCase.wantCode, w.Code)
			if testCase.wantLocation != "" {
				assert.Equal(t, testCase.wantLocation, w.Header().Get("Location"))
			}
			_, sess := env.savedSession(t, w)
			assert.Equal(t, testCase.wantCart, sess.Cart.DishIDs)
			assert.Equal(t, testCase.wantFlash, len(sess.Flashes) > 0)
		})
	}
}

func TestRemoveFromCartHandler(t *testing.T) {
	env := newStorefrontEnv(t)
	soup := &domain.Dish{ID: 1, Title: "Soup", Price: 100}
	steak := &domain.Dish{ID: 2, Title: "Steak", Price: 250}
	env.catalog.On("GetDish", mock.Anything, 1).Return(soup, nil).Once()

	sess := domain.NewSession()
	require.NoError(t, sess.Cart.Add(*soup))
	require.NoError(t, sess.Cart.Add(*steak))

	w := env.do(httptest.NewRequest("GET", "/delete_dish/1/", nil), env.withSession(t, sess))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/cart/", w.Header().Get("Location"))
	_, saved := env.savedSession(t, w)
	assert.Equal(t, domain.Cart{DishIDs: []int{2}, Total: 250, Count: 1}, saved.Cart)
	assert.Equal(t, []string{"Dish Soup removed from cart"}, saved.Flashes)
}

func TestViewCartHandler(t *testing.T) {
	env := newStorefrontEnv(t)
	soup := &domain.Dish{ID: 1, Title: "Soup", Price: 100}
	env.catalog.On("GetDish", mock.Anything, 1).Return(soup, nil).Once()

	sess := buyer()
	require.NoError(t, sess.Cart.Add(*soup))
	sess.Flash("welcome")

	w := env.do(httptest.NewRequest("GET", "/cart/", nil), env.withSession(t, sess))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Dishes  []domain.Dish `json:"dishes"`
		Total   int           `json:"total"`
		Count   int           `json:"count"`
		Email   string        `json:"email"`
		Flashes []string      `json:"flashes"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Len(t, body.Dishes, 1)
	assert.Equal(t, 100, body.Total)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "ivan@example.com", body.Email)
	assert.Equal(t, []string{"welcome"}, body.Flashes)

	_, saved := env.savedSession(t, w)
	assert.Empty(t, saved.Flashes)
}

func TestCheckoutHandler(t *testing.T) {
	soup := &domain.Dish{ID: 1, Title: "Soup", Price: 100}
	valid := url.Values{
		"name":    {"Ivan Petrov"},
		"address": {"Lenina street 1, flat 2"},
		"email":   {"ivan@example.com"},
		"phone":   {"89991234567"},
	}

	tests := []struct {
		name         string
		session      func() *domain.Session
		values       url.Values
		setupMock    func(env *storefrontEnv)
		wantCode     int
		wantLocation string
		wantCartSize int
	}{
		{
			name: "creates_order",
			session: func() *domain.Session {
				sess := buyer()
				_ = sess.Cart.Add(*soup)
				return sess
			},
			values: valid,
			setupMock: func(env *storefrontEnv) {
				env.catalog.On("GetDish", mock.Anything, 1).Return(soup, nil).Once()
				env.orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
					return o.Total == 100 && o.UserID == 5 && o.Name == "Ivan Petrov"
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Order).ID = 77
				}).Return(nil).Once()
			},
			wantCode:     http.StatusCreated,
			wantCartSize: 0,
		},
		{
			name: "anonymous_redirects_to_login",
			session: func() *domain.Session {
				sess := domain.NewSession()
				_ = sess.Cart.Add(*soup)
				return sess
			},
			values:       valid,
			setupMock:    func(*storefrontEnv) {},
			wantCode:     http.StatusFound,
			wantLocation: "/login/",
			wantCartSize: 1,
		},
		{
			name: "invalid_fields",
			session: func() *domain.Session {
				sess := buyer()
				_ = sess.Cart.Add(*soup)
				return sess
			},
			values:       url.Values{"name": {"Al"}, "address": {"x"}, "email": {"nope"}, "phone": {"?"}},
			setupMock:    func(*storefrontEnv) {},
			wantCode:     http.StatusUnprocessableEntity,
			wantCartSize: 1,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			env := newStorefrontEnv(t)
			testCase.setupMock(env)

			w := env.do(formRequest("POST", "/cart/", testCase.values), env.withSession(t, testCase.session()))

			assert.Equal(t, testCase.wantCode, w.Code)
			if testCase.wantLocation != "" {
				assert.Equal(t, testCase.wantLocation, w.Header().Get("Location"))
			}
			if testCase.wantCode == http.StatusCreated {
				var order domain.Order
				require.NoError(t, json.NewDecoder(w.Body).Decode(&order))
				assert.Equal(t, 77, order.ID)
				assert.Equal(t, domain.StatusAccepted, order.Status)
			}
			if testCase.wantCode == http.StatusUnprocessableEntity {
				var body map[string]map[string]string
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Len(t, body["errors"], 4)
			}
			_, sess := env.savedSession(t, w)
			assert.Len(t, sess.Cart.DishIDs, testCase.wantCartSize)
		})
	}
}

func TestAccessGuardsHandler(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		path         string
		session      func() *domain.Session
		wantCode     int
		wantLocation string
	}{
		{name: "account_anonymous", method: "GET", path: "/account/", session: domain.NewSession, wantCode: http.StatusFound, wantLocation: "/login/"},
		{name: "logout_anonymous", method: "GET", path: "/logout/", session: domain.NewSession, wantCode: http.StatusFound, wantLocation: "/login/"},
		{name: "admin_anonymous", method: "GET", path: "/admin/", session: domain.NewSession, wantCode: http.StatusForbidden},
		{name: "admin_buyer", method: "GET", path: "/admin/", session: buyer, wantCode: http.StatusForbidden},
		{name: "admin_admin", method: "GET", path: "/admin/", session: admin, wantCode: http.StatusFound, wantLocation: "/sadmin/"},
		{name: "sadmin_buyer", method: "GET", path: "/sadmin/", session: buyer, wantCode: http.StatusForbidden},
		{name: "sadmin_admin", method: "GET", path: "/sadmin/", session: admin, wantCode: http.StatusOK},
		{name: "login_authenticated", method: "GET", path: "/login/", session: buyer, wantCode: http.StatusFound, wantLocation: "/account/"},
		{name: "registration_authenticated", method: "GET", path: "/registration/", session: buyer, wantCode: http.StatusFound, wantLocation: "/account/"},
		{name: "login_anonymous", method: "GET", path: "/login/", session: domain.NewSession, wantCode: http.StatusOK},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			env := newStorefrontEnv(t)
			w := env.do(httptest.NewRequest(testCase.method, testCase.path, nil), env.withSession(t, testCase.session()))

			assert.Equal(t, testCase.wantCode, w.Code)
			if testCase.wantLocation != "" {
				assert.Equal(t, testCase.wantLocation, w.Header().Get("Location"))
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	domain.PasswordCost = 4
	known := &domain.User{ID: 5, Email: "ivan@example.com", Role: domain.RoleBuyer}
	require.NoError(t, known.SetPassword("Abcdef12"))

	t.Run("unknown_and_wrong_password_look_the_same", func(t *testing.T) {
		env := newStorefrontEnv(t)
		env.users.On("GetUserByEmail", mock.Anything, "nobody@example.com").Return(nil, domain.ErrNotFound).Once()
		env.users.On("GetUserByEmail", mock.Anything, "ivan@example.com").Return(known, nil).Once()

		unknown := env.do(formRequest("POST", "/login/", url.Values{"email": {"nobody@example.com"}, "password": {"Abcdef12"}}), nil)
		wrong := env.do(formRequest("POST", "/login/", url.Values{"email": {"ivan@example.com"}, "password": {"Nope1234"}}), nil)

		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, unknown.Body.String(), wrong.Body.String())
		assert.Contains(t, unknown.Body.String(), "Incorrect email or password")
	})

	t.Run("success_rotates_session_and_keeps_cart", func(t *testing.T) {
		env := newStorefrontEnv(t)
		env.users.On("GetUserByEmail", mock.Anything, "ivan@example.com").Return(known, nil).Once()

		sess := domain.NewSession()
		require.NoError(t, sess.Cart.Add(domain.Dish{ID: 3, Price: 70}))
		cookie := env.withSession(t, sess)

		body, _ := json.Marshal(map[string]string{"email": "ivan@example.com", "password": "Abcdef12"})
		req := httptest.NewRequest("POST", "/login/", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := env.do(req, cookie)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		_, saved := env.savedSession(t, w)
		require.NotNil(t, saved.User)
		assert.Equal(t, 5, saved.User.ID)
		assert.Equal(t, []int{3}, saved.Cart.DishIDs)
		assert.NotEqual(t, cookie.Value, w.Result().Cookies()[0].Value)
	})
}

func TestRegistrationHandler(t *testing.T) {
	domain.PasswordCost = 4
	env := newStorefrontEnv(t)
	env.users.On("GetUserByEmail", mock.Anything, "test@example.com").Return(nil, domain.ErrNotFound).Once()
	env.users.On("CreateUser", mock.Anything, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.User).ID = 9
	}).Return(nil).Once()
	env.users.On("GetUserByEmail", mock.Anything, "test@example.com").Return(&domain.User{ID: 9, Email: "test@example.com"}, nil).Once()

	form := url.Values{"email": {"test@example.com"}, "password": {"Abcdef12"}, "confirm_password": {"Abcdef12"}}

	first := env.do(formRequest("POST", "/registration/", form), nil)
	assert.Equal(t, http.StatusFound, first.Code)
	_, sess := env.savedSession(t, first)
	require.NotNil(t, sess.User)
	assert.Equal(t, domain.RoleBuyer, sess.User.Role)

	second := env.do(formRequest("POST", "/registration/", form), nil)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestLogoutKeepsCart(t *testing.T) {
	env := newStorefrontEnv(t)
	sess := buyer()
	require.NoError(t, sess.Cart.Add(domain.Dish{ID: 4, Price: 10}))

	w := env.do(httptest.NewRequest("GET", "/logout/", nil), env.withSession(t, sess))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login/", w.Header().Get("Location"))
	_, saved := env.savedSession(t, w)
	assert.Nil(t, saved.User)
	assert.Equal(t, []int{4}, saved.Cart.DishIDs)
}

func TestTamperedCookieStartsFreshSession(t *testing.T) {
	env := newStorefrontEnv(t)
	sess := buyer()
	cookie := env.withSession(t, sess)
	cookie.Value = cookie.Value[:len(cookie.Value)-2] + "xx"

	w := env.do(httptest.NewRequest("GET", "/account/", nil), cookie)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login/", w.Header().Get("Location"))
}

func TestAccountHandler(t *testing.T) {
	env := newStorefrontEnv(t)
	env.users.On("GetUser", mock.Anything, 5).Return(&domain.User{ID: 5, Email: "ivan@example.com", PasswordHash: "secret-hash", Role: domain.RoleBuyer}, nil).Once()
	env.orders.On("ListUserOrders", mock.Anything, 5).Return([]domain.Order{{ID: 3, Status: domain.StatusShipped, Dishes: []domain.Dish{}}}, nil).Once()

	w := env.do(httptest.NewRequest("GET", "/account/", nil), env.withSession(t, buyer()))

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-hash")
	assert.Contains(t, w.Body.String(), `"status_label":"order is on its way"`)
}

func TestDeletedUserSession(t *testing.T) {
	domain.PasswordCost = 4

	tests := []struct {
		name    string
		request func() *http.Request
		setup   func(env *storefrontEnv)
	}{
		{
			name:    "account",
			request: func() *http.Request { return httptest.NewRequest("GET", "/account/", nil) },
			setup: func(env *storefrontEnv) {
				env.users.On("GetUser", mock.Anything, 5).Return(nil, domain.ErrNotFound).Once()
			},
		},
		{
			name: "change_password",
			request: func() *http.Request {
				return formRequest("POST", "/change-password/", url.Values{
					"password": {"NewPass99"}, "confirm_password": {"NewPass99"},
				})
			},
			setup: func(env *storefrontEnv) {
				env.users.On("GetUser", mock.Anything, 5).Return(nil, domain.ErrNotFound).Once()
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			env := newStorefrontEnv(t)
			testCase.setup(env)

			w := env.do(testCase.request(), env.withSession(t, buyer()))

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/", w.Header().Get("Location"))
			_, sess := env.savedSession(t, w)
			assert.Nil(t, sess.User)
			assert.Equal(t, []string{"User not found"}, sess.Flashes)
		})
	}
}

func TestOrderQRCodeHandler(t *testing.T) {
	env := newStorefrontEnv(t)
	env.orders.On("GetOrder", mock.Anything, 10).Return(&domain.Order{ID: 10, UserID: 5}, nil).Twice()

	owner := env.do(httptest.NewRequest("GET", "/account/orders/10/qrcode", nil), env.withSession(t, buyer()))
	assert.Equal(t, http.StatusOK, owner.Code)
	assert.Equal(t, "image/png", owner.Header().Get("Content-Type"))

	other := buyer()
	other.User.ID = 6
	stranger := env.do(httptest.NewRequest("GET", "/account/orders/10/qrcode", nil), env.withSession(t, other))
	assert.Equal(t, http.StatusForbidden, stranger.Code)
}

func TestChangePasswordHandler(t *testing.T) {
	domain.PasswordCost = 4
	env := newStorefrontEnv(t)
	env.users.On("GetUser", mock.Anything, 5).Return(&domain.User{ID: 5, Email: "ivan@example.com"}, nil).Once()
	env.users.On("UpdatePasswordHash", mock.Anything, 5, mock.AnythingOfType("string")).Return(nil).Once()

	w := env.do(formRequest("POST", "/change-password/", url.Values{
		"password": {"NewPass99"}, "confirm_password": {"NewPass99"},
	}), env.withSession(t, buyer()))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/account/", w.Header().Get("Location"))
	_, sess := env.savedSession(t, w)
	assert.Equal(t, []string{"Your password has been changed"}, sess.Flashes)
}

func TestAdminOrderUpdateHandler(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		setupMock func(*mocks.OrderRepository)
		wantCode  int
	}{
		{
			name: "status_by_name",
			body: `{"status":"shipped"}`,
			setupMock: func(m *mocks.OrderRepository) {
				m.On("GetOrder", mock.Anything, 3).Return(&domain.Order{ID: 3, Status: domain.StatusAccepted}, nil).Once()
				m.On("UpdateOrder", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool { return o.Status == domain.StatusShipped })).Return(nil).Once()
			},
			wantCode: http.StatusOK,
		},
		{
			name: "status_by_number",
			body: `{"status":3}`,
			setupMock: func(m *mocks.OrderRepository) {
				m.On("GetOrder", mock.Anything, 3).Return(&domain.Order{ID: 3, Status: domain.StatusShipped}, nil).Once()
				m.On("UpdateOrder", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool { return o.Status == domain.StatusDelivered })).Return(nil).Once()
			},
			wantCode: http.StatusOK,
		},
		{
			name:      "status_out_of_range",
			body:      `{"status":7}`,
			setupMock: func(*mocks.OrderRepository) {},
			wantCode:  http.StatusUnprocessableEntity,
		},
		{
			name:      "malformed_json",
			body:      `{status`,
			setupMock: func(*mocks.OrderRepository) {},
			wantCode:  http.StatusBadRequest,
		},
		{
			name: "missing_order",
			body: `{"status":"preparing"}`,
			setupMock: func(m *mocks.OrderRepository) {
				m.On("GetOrder", mock.Anything, 3).Return(nil, domain.ErrNotFound).Once()
			},
			wantCode: http.StatusNotFound,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			env := newStorefrontEnv(t)
			testCase.setupMock(env.orders)

			req := httptest.NewRequest("PUT", "/sadmin/orders/3/", bytes.NewBufferString(testCase.body))
			req.Header.Set("Content-Type", "application/json")
			w := env.do(req, env.withSession(t, admin()))

			assert.Equal(t, testCase.wantCode, w.Code)
		})
	}
}

func TestAdminCatalogHandlers(t *testing.T) {
	env := newStorefrontEnv(t)
	cookie := env.withSession(t, admin())

	env.catalog.On("CreateCategory", mock.Anything, mock.AnythingOfType("*domain.Category")).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Category).ID = 4
	}).Return(nil).Once()
	w := env.do(httptest.NewRequest("POST", "/sadmin/categories/", bytes.NewBufferString(`{"title":"Salads"}`)), cookie)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":4`)

	env.catalog.On("GetCategory", mock.Anything, 9).Return(nil, domain.ErrNotFound).Once()
	w = env.do(httptest.NewRequest("POST", "/sadmin/dishes/",
		bytes.NewBufferString(`{"title":"Caesar","price":300,"picture":"c.jpg","category_id":9}`)), cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	env.catalog.On("ListDishes", mock.Anything, domain.DishFilter{CategoryID: 2, Query: "bor"}).Return([]domain.Dish{}, nil).Once()
	w = env.do(httptest.NewRequest("GET", "/sadmin/dishes/?category_id=2&q=bor", nil), cookie)
	assert.Equal(t, http.StatusOK, w.Code)

	env.catalog.On("DeleteDish", mock.Anything, 5).Return(int64(0), nil).Once()
	w = env.do(httptest.NewRequest("DELETE", "/sadmin/dishes/5/", nil), cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.catalog.On("DeleteCategory", mock.Anything, 2).Return(int64(0), domain.ErrReferenced).Once()
	w = env.do(httptest.NewRequest("DELETE", "/sadmin/categories/2/", nil), cookie)
	assert.Equal(t, http.StatusConflict, w.Code)

	env.users.On("ListUsers", mock.Anything).Return([]domain.User{{ID: 1, Email: "admin@example.com", PasswordHash: "h4sh", Role: domain.RoleAdmin}}, nil).Once()
	w = env.do(httptest.NewRequest("GET", "/sadmin/users/", nil), cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "h4sh")
}

func TestHomeHandler(t *testing.T) {
	env := newStorefrontEnv(t)
	env.catalog.On("ListCategories", mock.Anything).Return([]domain.Category{{ID: 1, Title: "Soups"}}, nil).Once()
	env.catalog.On("ListDishes", mock.Anything, domain.DishFilter{}).Return([]domain.Dish{
		{ID: 1, CategoryID: 1}, {ID: 2, CategoryID: 1}, {ID: 3, CategoryID: 1},
	}, nil).Once()

	w := env.do(httptest.NewRequest("GET", "/?sample=2", nil), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Categories []domain.Category `json:"categories"`
		Cart       struct {
			Total int `json:"total"`
			Count int `json:"count"`
		} `json:"cart"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Categories, 1)
	assert.Len(t, body.Categories[0].Dishes, 2)
	assert.Equal(t, 0, body.Cart.Count)

	bad := env.do(httptest.NewRequest("GET", "/?sample=-1", nil), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, bad.Code)
}

func TestRequestLogger(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	handler := httpapi.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/anything", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, http.StatusTeapot, hook.LastEntry().Data["status"])
	assert.Equal(t, "req-1", hook.LastEntry().Data["request_id"])
}

func TestSessionSaveFailure(t *testing.T) {
	soup := &domain.Dish{ID: 1, Title: "Soup", Price: 100}
	known := &domain.User{ID: 5, Email: "ivan@example.com", Role: domain.RoleBuyer}
	domain.PasswordCost = 4
	require.NoError(t, known.SetPassword("Abcdef12"))

	tests := []struct {
		name      string
		session   func() *domain.Session
		request   func() *http.Request
		setupMock func(env *storefrontEnv)
		savedWith func(sess *domain.Session) bool
	}{
		{
			name:    "add_to_cart",
			session: domain.NewSession,
			request: func() *http.Request { return httptest.NewRequest("GET", "/addtocart/1/", nil) },
			setupMock: func(env *storefrontEnv) {
				env.catalog.On("GetDish", mock.Anything, 1).Return(soup, nil).Once()
			},
			savedWith: func(sess *domain.Session) bool { return sess.Cart.Contains(1) },
		},
		{
			name: "checkout",
			session: func() *domain.Session {
				sess := buyer()
				_ = sess.Cart.Add(*soup)
				return sess
			},
			request: func() *http.Request {
				return formRequest("POST", "/cart/", url.Values{
					"name":    {"Ivan Petrov"},
					"address": {"Lenina street 1, flat 2"},
					"email":   {"ivan@example.com"},
					"phone":   {"89991234567"},
				})
			},
			setupMock: func(env *storefrontEnv) {
				env.catalog.On("GetDish", mock.Anything, 1).Return(soup, nil).Once()
				env.orders.On("CreateOrder", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Once()
			},
			savedWith: func(sess *domain.Session) bool { return sess.Cart.IsEmpty() },
		},
		{
			name:    "login_keeps_previous_record",
			session: domain.NewSession,
			request: func() *http.Request {
				return formRequest("POST", "/login/", url.Values{"email": {"ivan@example.com"}, "password": {"Abcdef12"}})
			},
			setupMock: func(env *storefrontEnv) {
				env.users.On("GetUserByEmail", mock.Anything, "ivan@example.com").Return(known, nil).Once()
			},
			savedWith: func(sess *domain.Session) bool { return sess.Authenticated() },
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			store := mocks.NewSessionStore(t)
			env := newStorefrontEnvWithStore(t, store)
			testCase.setupMock(env)

			id := uuid.NewString()
			store.On("Load", mock.Anything, id).Return(testCase.session(), nil).Once()
			// Delete is never expected: a failed save must not drop the stored record.
			store.On("Save", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(testCase.savedWith)).
				Return(errors.New("redis: connection refused")).Once()

			w := env.do(testCase.request(), &http.Cookie{Name: httpapi.SessionCookie, Value: signSession(t, id)})

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Empty(t, w.Header().Get("Location"))
			assert.Empty(t, w.Result().Cookies())
			assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
		})
	}
}

func TestLoginRetiresPreviousSession(t *testing.T) {
	domain.PasswordCost = 4
	known := &domain.User{ID: 5, Email: "ivan@example.com", Role: domain.RoleBuyer}
	require.NoError(t, known.SetPassword("Abcdef12"))

	store := mocks.NewSessionStore(t)
	env := newStorefrontEnvWithStore(t, store)
	env.users.On("GetUserByEmail", mock.Anything, "ivan@example.com").Return(known, nil).Once()

	id := uuid.NewString()
	store.On("Load", mock.Anything, id).Return(domain.NewSession(), nil).Once()
	save := store.On("Save", mock.Anything, mock.MatchedBy(func(newID string) bool { return newID != id }), mock.Anything).Return(nil).Once()
	store.On("Delete", mock.Anything, id).Return(nil).Once().NotBefore(save)

	w := env.do(formRequest("POST", "/login/", url.Values{"email": {"ivan@example.com"}, "password": {"Abcdef12"}}),
		&http.Cookie{Name: httpapi.SessionCookie, Value: signSession(t, id)})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}
