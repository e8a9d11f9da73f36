package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/menupulse/internal/domain"
	"github.com/pscheid92/menupulse/internal/platform/config"
	apperrors "github.com/pscheid92/menupulse/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// --- GET /api/dishes ---

func TestListDishes_Success(t *testing.T) {
	app := &mockDishService{
		listDishesFn: func(context.Context) ([]domain.Dish, error) {
			return []domain.Dish{
				{ID: 1, Name: "Pizza", ImageURL: "https://img/1", Published: true},
				{ID: 2, Name: "Sushi", Published: false},
			}, nil
		},
	}
	srv := newTestServer(t, app)

	rec := doRequest(srv, http.MethodGet, "/api/dishes", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var dishes []domain.Dish
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dishes))
	require.Len(t, dishes, 2)
	assert.Equal(t, "Pizza", dishes[0].Name)
	assert.Contains(t, rec.Body.String(), `"imageUrl":"https://img/1"`)
}

func TestListDishes_EmptyCatalogIsArray(t *testing.T) {
	srv := newTestServer(t, &mockDishService{})

	rec := doRequest(srv, http.MethodGet, "/api/dishes", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListDishes_StorageError(t *testing.T) {
	app := &mockDishService{
		listDishesFn: func(context.Context) ([]domain.Dish, error) {
			return nil, fmt.Errorf("failed to list dishes: %w", domain.ErrStorageUnavailable)
		},
	}
	srv := newTestServer(t, app)

	rec := doRequest(srv, http.MethodGet, "/api/dishes", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "Failed to fetch dishes", resp.Error)
	assert.NotContains(t, rec.Body.String(), "storage unavailable")
}

// --- POST|PUT /api/dishes/:id/toggle ---

func TestTogglePublish_Success(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut} {
		t.Run(method, func(t *testing.T) {
			app := &mockDishService{
				togglePublishFn: func(_ context.Context, id int64) (domain.Dish, error) {
					assert.Equal(t, int64(42), id)
					return domain.Dish{ID: 42, Name: "Curry", Published: true}, nil
				},
			}
			srv := newTestServer(t, app)

			rec := doRequest(srv, method, "/api/dishes/42/toggle", "")

			require.Equal(t, http.StatusOK, rec.Code)
			var dish domain.Dish
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dish))
			assert.Equal(t, int64(42), dish.ID)
			assert.True(t, dish.Published)
		})
	}
}

func TestTogglePublish_InvalidID(t *testing.T) {
	called := false
	app := &mockDishService{
		togglePublishFn: func(context.Context, int64) (domain.Dish, error) {
			called = true
			return domain.Dish{}, nil
		},
	}
	srv := newTestServer(t, app)

	for _, id := range []string{"abc", "1.5", "99999999999999999999"} {
		rec := doRequest(srv, http.MethodPost, "/api/dishes/"+id+"/toggle", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
		assert.Equal(t, "Invalid dish ID", decodeError(t, rec).Error)
	}
	assert.False(t, called)
}

func TestTogglePublish_NotFound(t *testing.T) {
	app := &mockDishService{
		togglePublishFn: func(context.Context, int64) (domain.Dish, error) {
			return domain.Dish{}, domain.ErrDishNotFound
		},
	}
	srv := newTestServer(t, app)

	rec := doRequest(srv, http.MethodPost, "/api/dishes/999/toggle", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "Dish not found", resp.Error)
	assert.Equal(t, apperrors.TypeNotFound, resp.Type)
}

func TestTogglePublish_StorageError(t *testing.T) {
	app := &mockDishService{
		togglePublishFn: func(context.Context, int64) (domain.Dish, error) {
			return domain.Dish{}, domain.ErrStorageUnavailable
		},
	}
	srv := newTestServer(t, app)

	rec := doRequest(srv, http.MethodPut, "/api/dishes/1/toggle", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to toggle publish status", decodeError(t, rec).Error)
}

func TestTogglePublish_DirectHandlerCall(t *testing.T) {
	app := &mockDishService{
		togglePublishFn: func(context.Context, int64) (domain.Dish, error) {
			return domain.Dish{}, domain.ErrDishNotFound
		},
	}
	srv := newTestServer(t, app)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("7")

	err := callHandler(srv.handleTogglePublish, c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTogglePublish_RateLimited(t *testing.T) {
	app := &mockDishService{
		togglePublishFn: func(_ context.Context, id int64) (domain.Dish, error) {
			return domain.Dish{ID: id}, nil
		},
	}
	srv := newTestServer(t, app, withConfig(func(cfg *config.Config) {
		cfg.MutationRateLimit = 0.001
		cfg.MutationRateBurst = 1
	}))

	first := doRequest(srv, http.MethodPost, "/api/dishes/1/toggle", "")
	second := doRequest(srv, http.MethodPost, "/api/dishes/1/toggle", "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, apperrors.TypeRateLimited, decodeError(t, second).Type)

	// reads are not throttled
	assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/api/dishes", "").Code)
}

// --- POST /api/dishes/bulk-update ---

func TestBulkUpdate_Success(t *testing.T) {
	app := &mockDishService{
		bulkUpdateFn: func(_ context.Context, updates []domain.PublishUpdate) ([]domain.Dish, error) {
			assert.Equal(t, []domain.PublishUpdate{{ID: 1, Published: true}, {ID: 999, Published: false}}, updates)
			return []domain.Dish{{ID: 1, Name: "Pizza", Published: true}}, nil
		},
	}
	srv := newTestServer(t, app)

	rec := doRequest(srv, http.MethodPost, "/api/dishes/bulk-update",
		`{"updates":[{"id":1,"published":true},{"id":999,"published":false}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp bulkUpdateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Bulk update successful", resp.Message)
	require.Len(t, resp.UpdatedDishes, 1)
	assert.Equal(t, int64(1), resp.UpdatedDishes[0].ID)
}

func TestBulkUpdate_EmptyArray(t *testing.T) {
	app := &mockDishService{
		bulkUpdateFn: func(_ context.Context, updates []domain.PublishUpdate) ([]domain.Dish, error) {
			assert.Empty(t, updates)
			return []domain.Dish{}, nil
		},
	}
	srv := newTestServer(t, app)

	rec := doRequest(srv, http.MethodPost, "/api/dishes/bulk-update", `{"updates":[]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Bulk update successful","updatedDishes":[]}`, rec.Body.String())
}

func TestBulkUpdate_InvalidPayloads(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"not json", `not-json`, "Invalid request body"},
		{"missing updates", `{}`, "Updates must be an array"},
		{"updates is object", `{"updates":{"id":1,"published":true}}`, "Updates must be an array"},
		{"updates is string", `{"updates":"all"}`, "Updates must be an array"},
		{"updates is null", `{"updates":null}`, "Updates must be an array"},
		{"missing id", `{"updates":[{"published":true}]}`, "Each update requires id and published"},
		{"missing published", `{"updates":[{"id":1}]}`, "Each update requires id and published"},
		{"wrong id type", `{"updates":[{"id":"1","published":true}]}`, "Invalid update entry"},
		{"wrong published type", `{"updates":[{"id":1,"published":"yes"}]}`, "Invalid update entry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			app := &mockDishService{
				bulkUpdateFn: func(context.Context, []domain.PublishUpdate) ([]domain.Dish, error) {
					called = true
					return nil, nil
				},
			}
			srv := newTestServer(t, app)

			rec := doRequest(srv, http.MethodPost, "/api/dishes/bulk-update", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantMsg, resp.Error)
			assert.Equal(t, apperrors.TypeValidation, resp.Type)
			assert.False(t, called)
		})
	}
}

func TestBulkUpdate_StorageError(t *testing.T) {
	app := &mockDishService{
		bulkUpdateFn: func(context.Context, []domain.PublishUpdate) ([]domain.Dish, error) {
			return nil, domain.ErrStorageUnavailable
		},
	}
	srv := newTestServer(t, app)

	rec := doRequest(srv, http.MethodPost, "/api/dishes/bulk-update", `{"updates":[{"id":1,"published":true}]}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to perform bulk update", decodeError(t, rec).Error)
}

// --- routing ---

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	srv := newTestServer(t, &mockDishService{})

	rec := doRequest(srv, http.MethodGet, "/api/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperrors.TypeNotFound, decodeError(t, rec).Type)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &mockDishService{})

	req := httptest.NewRequest(http.MethodOptions, "/api/dishes/1/toggle", nil)
	req.Header.Set(echo.HeaderOrigin, "https://admin.example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPut)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPut)
}
