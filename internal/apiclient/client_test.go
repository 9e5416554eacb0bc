package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"elda-admin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithHTTPClient(srv.Client()), WithRetry(3, time.Millisecond, 5*time.Millisecond))
}

func writeEnvelope(w http.ResponseWriter, status int, data any, paging *models.Paging) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": data, "paging": paging})
}

func TestListDecodesEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/employees", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, []models.Employee{{ID: "e1", Name: "Abebe"}},
			&models.Paging{Page: 2, Limit: 10, Total: 11, TotalPages: 2})
	})

	page, err := List[models.Employee](context.Background(), c, "tok", "employees", ListParams{Page: 2, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Abebe", page.Items[0].Name)
	assert.Equal(t, 2, page.Paging.TotalPages)
}

func TestListWithoutPaging(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, []models.Category{{ID: "1"}, {ID: "2"}}, nil)
	})
	page, err := List[models.Category](context.Background(), c, "", "categories", ListParams{})
	require.NoError(t, err)
	assert.Equal(t, models.Paging{Page: 1, Limit: 2, Total: 2, TotalPages: 1}, page.Paging)
}

// pagedServer serves total employees, never more than maxLimit per page.
func pagedServer(t *testing.T, total, maxLimit int, hits *atomic.Int32) *Client {
	t.Helper()
	return newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		limit = min(limit, maxLimit)
		items := []models.Employee{}
		for i := (page - 1) * limit; i < min(page*limit, total); i++ {
			items = append(items, models.Employee{ID: strconv.Itoa(i + 1)})
		}
		writeEnvelope(w, http.StatusOK, items,
			&models.Paging{Page: page, Limit: limit, Total: total, TotalPages: (total + limit - 1) / limit})
	})
}

func TestListAllFollowsPages(t *testing.T) {
	var hits atomic.Int32
	c := pagedServer(t, 25, 10, &hits)
	page, err := ListAll[models.Employee](context.Background(), c, "tok", "employees", 100, 1000)
	require.NoError(t, err)
	require.Len(t, page.Items, 25)
	assert.Equal(t, "25", page.Items[24].ID)
	assert.Equal(t, 25, page.Paging.Total)
	assert.Equal(t, int32(3), hits.Load())
}

func TestListAllStopsAtCap(t *testing.T) {
	var hits atomic.Int32
	c := pagedServer(t, 50, 10, &hits)
	page, err := ListAll[models.Employee](context.Background(), c, "tok", "employees", 10, 15)
	require.NoError(t, err)
	assert.Len(t, page.Items, 15)
	assert.Equal(t, 50, page.Paging.Total)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeEnvelope(w, http.StatusOK, models.User{ID: "u1"}, nil)
	})
	u, err := Get[models.User](context.Background(), c, "tok", "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetGivesUpAfterTwoRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := Get[models.User](context.Background(), c, "tok", "users", "u1")
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
	})
	_, err := c.Me(context.Background(), "tok")
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "token expired", Message(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestMutationsAreSentOnce(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/employees/e%2F1", r.URL.EscapedPath())
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"message":"employee has dependent records"}}`))
	})
	err := Delete(context.Background(), c, "tok", "employees", "e/1")
	assert.True(t, IsConflict(err))
	assert.Equal(t, "employee has dependent records", Message(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateAndUpdate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in models.Category
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		switch r.Method {
		case http.MethodPost:
			in.ID = "c1"
			writeEnvelope(w, http.StatusCreated, in, nil)
		case http.MethodPatch:
			assert.Equal(t, "/categories/c1", r.URL.Path)
			writeEnvelope(w, http.StatusOK, in, nil)
		}
	})
	created, err := Create[models.Category](context.Background(), c, "tok", "categories", models.Category{Name: "Legal"})
	require.NoError(t, err)
	assert.Equal(t, "c1", created.ID)

	updated, err := Update[models.Category](context.Background(), c, "tok", "categories", "c1", models.Category{Name: "Law"})
	require.NoError(t, err)
	assert.Equal(t, "Law", updated.Name)
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Get[models.User](ctx, c, "tok", "users", "u1")
	assert.Error(t, err)
}

func TestExtractMessage(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"details", `{"error":{"message":"invalid","details":[{"field":"phone","message":"bad format"},"too short"]},"message":"x"}`, "phone: bad format; too short"},
		{"error message", `{"error":{"message":"not allowed"},"message":"x"}`, "not allowed"},
		{"top message", `{"status":"error","message":"Validation failed"}`, "Validation failed"},
		{"error string", `{"error":"boom"}`, "boom"},
		{"plain text", `Bad Gateway from proxy`, "Bad Gateway from proxy"},
		{"json string", `"just a string"`, "just a string"},
		{"json fallback", `{ "code": 42 }`, `{"code":42}`},
		{"array fallback", `[1, 2]`, `[1,2]`},
		{"empty", ``, "Internal Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractMessage([]byte(tc.body), "Internal Server Error"))
		})
	}
}
