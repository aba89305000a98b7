package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromContext(r.Context())
	w.Header().Set("X-User", strconv.FormatUint(uint64(uid), 10))
	w.WriteHeader(http.StatusOK)
}

func TestSessionRoundTrip(t *testing.T) {
	w := httptest.NewRecorder()
	CreateSession(w, 42)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	uid, ok := ParseSession(req)
	if !ok || uid != 42 {
		t.Fatalf("expected uid 42 got %d ok=%v", uid, ok)
	}
}

func TestSessionTampered(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "1.forged"})
	if _, ok := ParseSession(req); ok {
		t.Fatalf("expected tampered cookie to be rejected")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	// Tokens issued on a fixed clock must validate on that clock, not on
	// wall time.
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tok, err := IssueToken(7, now, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	uid, err := ParseToken(tok, now.Add(30*time.Minute))
	if err != nil || uid != 7 {
		t.Fatalf("expected uid 7 got %d err=%v", uid, err)
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tok, err := IssueToken(7, now, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseToken(tok, now.Add(2*time.Hour)); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestMiddlewareBearer(t *testing.T) {
	clk := testclock.NewClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	tok, _ := IssueToken(9, clk.Now(), time.Hour)
	h := Middleware(clk)(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("X-User"); got != "9" {
		t.Fatalf("expected user 9 got %q", got)
	}

	clk.Advance(2 * time.Hour)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("X-User"); got != "0" {
		t.Fatalf("expected expired token to be ignored, got user %q", got)
	}
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(http.HandlerFunc(echoUser))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req.WithContext(WithUserID(req.Context(), 1)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}
