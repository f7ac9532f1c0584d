package biotime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/source"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server, maxRetries int) *Client {
	return NewClient(Options{
		BaseURL:    srv.URL,
		Username:   "admin",
		Password:   "secret",
		PageSize:   2,
		MaxRetries: maxRetries,
		RetryDelay: time.Millisecond,
		HTTPClient: srv.Client(),
	})
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.New()
	require.NoError(t, tok.Set(jwt.ExpirationKey, exp))
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("remote-secret")))
	require.NoError(t, err)
	return string(signed)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchTransactions_FollowsEnvelopePages(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, transactionsPath, r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "2024-01-02", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("end_date"))
		assert.Equal(t, "2", r.URL.Query().Get("page_size"))

		pages = append(pages, r.URL.Query().Get("page"))
		switch r.URL.Query().Get("page") {
		case "1":
			writeJSON(w, map[string]any{
				"data": []map[string]any{
					{"emp_code": "E1", "punch_time": "2024-01-10 09:00:00"},
					{"emp_code": 1002, "punch_time": "2024-01-10 09:05:00"},
				},
				"next": "http://remote/next",
			})
		default:
			writeJSON(w, map[string]any{
				"data": []map[string]any{{"emp_code": "E1", "punch_time": "2024-01-10 18:00:00"}},
				"next": nil,
			})
		}
	}))
	defer srv.Close()

	c := newTestClient(srv, 1)
	txs, err := c.FetchTransactions(context.Background(),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, pages)
	require.Len(t, txs, 3)
	assert.Equal(t, "1002", txs[1].EmpCode.String())
	assert.Equal(t, "2024-01-10 18:00:00", txs[2].PunchTime)
}

func TestFetchTransactions_BareList(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, []map[string]any{{"emp_code": "E1", "punch_time": "2024-01-10 09:00:00"}})
	}))
	defer srv.Close()

	txs, err := newTestClient(srv, 1).FetchTransactions(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "a bare list is the only page")
}

func TestFetchTransactions_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"data": []any{}, "next": nil})
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 3).FetchTransactions(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchTransactions_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 2).FetchTransactions(context.Background(), time.Now(), time.Now())
	require.ErrorIs(t, err, source.ErrTransient)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchTransactions_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 3).FetchTransactions(context.Background(), time.Now(), time.Now())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchTransactions_Unauthorized(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 3).FetchTransactions(context.Background(), time.Now(), time.Now())
	require.ErrorIs(t, err, source.ErrUnauthorized)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchTransactions_PartialPagesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			writeJSON(w, map[string]any{
				"data": []map[string]any{{"emp_code": "E1", "punch_time": "2024-01-10 09:00:00"}},
				"next": "more",
			})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	txs, err := newTestClient(srv, 1).FetchTransactions(context.Background(), time.Now(), time.Now())
	require.ErrorIs(t, err, source.ErrTransient)
	assert.Len(t, txs, 1)
}

func TestFetchTransactions_BadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 1).FetchTransactions(context.Background(), time.Now(), time.Now())
	assert.ErrorIs(t, err, source.ErrBadPayload)
}

func TestFetchEmployees_UsesCachedJWT(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	var tokenCalls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tokenPath:
			atomic.AddInt32(&tokenCalls, 1)
			assert.Equal(t, http.MethodPost, r.Method)
			var creds map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "admin", creds["username"])
			writeJSON(w, map[string]string{"token": token})
		case employeesPath:
			assert.Equal(t, "JWT "+token, r.Header.Get("Authorization"))
			writeJSON(w, map[string]any{
				"data": []map[string]any{{"emp_code": "E1", "first_name": "Amina", "area": []map[string]any{{"id": 2, "area_code": "HQ"}}}},
				"next": nil,
			})
		case areasPath:
			assert.Equal(t, "JWT "+token, r.Header.Get("Authorization"))
			writeJSON(w, []map[string]any{{"id": 2, "area_code": "HQ", "area_name": "Head Office"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv, 1)
	employees, err := c.FetchEmployees(context.Background())
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, source.Code("HQ"), employees[0].Areas[0].AreaCode)

	areas, err := c.FetchAreas(context.Background())
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, "Head Office", areas[0].AreaName)

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls), "token is reused until it expires")
}

func TestFetchEmployees_FallsBackToBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == tokenPath {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		auth := r.Header.Get("Authorization")
		assert.True(t, strings.HasPrefix(auth, "Basic "), "got %q", auth)
		writeJSON(w, []any{})
	}))
	defer srv.Close()

	employees, err := newTestClient(srv, 1).FetchEmployees(context.Background())
	require.NoError(t, err)
	assert.Empty(t, employees)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	assert.True(t, exp.Equal(tokenExpiry(signedToken(t, exp))))

	fallback := tokenExpiry("not-a-jwt")
	assert.WithinDuration(t, time.Now().Add(defaultTokenLifetime), fallback, time.Minute)
}
