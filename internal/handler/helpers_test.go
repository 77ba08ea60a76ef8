package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablewise/restaurant-api/internal/auth"
	"github.com/tablewise/restaurant-api/internal/enum"
)

const testJWTSecret = "test-secret-for-handlers"

var errDuplicate = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

func testClaims(role string) *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), Username: "tester-" + role, Role: role}
}

func adminClaims() *auth.Claims  { return testClaims(enum.RoleAdmin) }
func waiterClaims() *auth.Claims { return testClaims(enum.RoleWaiter) }
func userClaims() *auth.Claims   { return testClaims(enum.RoleUser) }

func newRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, newRequest(t, method, path, body))
	return rr
}

// doAuthRequest signs a real token for claims so requests pass through the
// authentication middleware.
func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, 0, claims.UserID, claims.Username, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := newRequest(t, method, path, body)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// decodePage returns the data rows and the full envelope of a paged response.
func decodePage(t *testing.T, rr *httptest.ResponseRecorder) ([]interface{}, map[string]interface{}) {
	t.Helper()
	resp := decodeMap(t, rr)
	data, ok := resp["data"].([]interface{})
	if !ok {
		t.Fatalf("response has no data array: %v", resp)
	}
	return data, resp
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	resp := decodeMap(t, rr)
	if resp["error"] != want {
		t.Errorf("error: got %v, want %q", resp["error"], want)
	}
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

func money(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("scan numeric %q: %v", s, err)
	}
	return n
}
