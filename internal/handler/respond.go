package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablewise/restaurant-api/internal/middleware"
	"github.com/tablewise/restaurant-api/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeInternal(w http.ResponseWriter, op string, err error) {
	log.Printf("ERROR: %s: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// writeServiceError maps service error kinds to HTTP statuses. Anything that
// is not a service.Error is logged and answered with 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	msg, ok := service.Message(err)
	if !ok {
		writeInternal(w, op, err)
		return
	}
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, msg)
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, msg)
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, msg)
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, msg)
	default:
		writeError(w, http.StatusBadRequest, msg)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// urlID parses the {name} URL param as a UUID, answering 400 on failure.
func urlID(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom builds the service actor from the request claims. Handlers behind
// RequireAuth always have claims; anonymous requests get the zero Actor.
func actorFrom(r *http.Request) service.Actor {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return service.Actor{}
	}
	return service.Actor{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}
}

func stamp(r *http.Request) pgtype.Text {
	return optionalText(actorFrom(r).Username)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// optionalText trims s and maps blank to NULL.
func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

// parseMoney parses a non-negative decimal with at most two fraction digits.
func parseMoney(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return pgtype.Numeric{}, errors.New("invalid amount")
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errors.New("amount must not be negative")
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return pgtype.Numeric{}, errors.New("amount must have at most 2 decimal places")
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, errors.New("invalid amount")
	}
	return n, nil
}

func lineSubtotal(price pgtype.Numeric, qty int32) string {
	return numericToDecimal(price).Mul(decimal.NewFromInt32(qty)).StringFixed(2)
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	d, err := decimal.NewFromString(numericToString(n))
	if err != nil {
		return decimal.Zero
	}
	return d
}
