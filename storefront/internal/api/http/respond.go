package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"delive/storefront/internal/domain"
	"delive/storefront/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	msgInternal           = "Internal server error"
	msgInvalidCredentials = "Incorrect email or password"
)

type errorResponse struct {
	Error string `json:"error"`
}

type validationResponse struct {
	Errors map[string]string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service and domain errors onto responses. Unknown
// errors are logged and answered with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: verr.Fields})
	case errors.Is(err, domain.ErrCategoryNotFound):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
			Errors: map[string]string{"category_id": "Category does not exist"},
		})
	case errors.Is(err, domain.ErrLoginRequired):
		http.Redirect(w, r, "/login/", http.StatusFound)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, domain.ErrDuplicateUser):
		writeError(w, http.StatusConflict, "A user with this email already exists")
	case errors.Is(err, domain.ErrAlreadyInCart):
		writeError(w, http.StatusConflict, "Dish is already in the cart")
	case errors.Is(err, domain.ErrReferenced):
		writeError(w, http.StatusConflict, "Record is still referenced by other records")
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// formValues reads a flat string form from either a JSON object or an
// urlencoded body.
func formValues(r *http.Request) (map[string]string, error) {
	values := map[string]string{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			return nil, err
		}
		return values, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	for key := range r.PostForm {
		values[key] = r.PostForm.Get(key)
	}
	return values, nil
}
