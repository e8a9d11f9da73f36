package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/menupulse/internal/domain"
	apperrors "github.com/pscheid92/menupulse/internal/platform/errors"
)

func (s *Server) registerDishRoutes() {
	api := s.echo.Group("/api", middleware.BodyLimit(maxRequestBody))
	mutationLimiter := newRateLimiter(s.config.MutationRateLimit, s.config.MutationRateBurst)

	api.GET("/dishes", s.handleListDishes)
	api.POST("/dishes/:id/toggle", s.handleTogglePublish, mutationLimiter)
	api.PUT("/dishes/:id/toggle", s.handleTogglePublish, mutationLimiter)
	api.POST("/dishes/bulk-update", s.handleBulkUpdate, mutationLimiter)
}

func (s *Server) handleListDishes(c echo.Context) error {
	dishes, err := s.app.ListDishes(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("Failed to fetch dishes", err)
	}

	if err := c.JSON(http.StatusOK, dishes); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleTogglePublish(c echo.Context) error {
	idParam := c.Param("id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		return apperrors.ValidationError("Invalid dish ID").WithField("dish_id", idParam)
	}

	dish, err := s.app.TogglePublish(c.Request().Context(), id)
	if errors.Is(err, domain.ErrDishNotFound) {
		return apperrors.NotFoundError("Dish not found").WithField("dish_id", id)
	}
	if err != nil {
		return apperrors.InternalError("Failed to toggle publish status", err).WithField("dish_id", id)
	}

	if err := c.JSON(http.StatusOK, dish); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// bulkUpdateEntry uses pointers so a missing field is told apart from a zero value.
type bulkUpdateEntry struct {
	ID        *int64 `json:"id"`
	Published *bool  `json:"published"`
}

type bulkUpdateResponse struct {
	Message       string        `json:"message"`
	UpdatedDishes []domain.Dish `json:"updatedDishes"`
}

func (s *Server) handleBulkUpdate(c echo.Context) error {
	updates, err := decodeBulkUpdate(c)
	if err != nil {
		return err
	}

	dishes, err := s.app.BulkUpdate(c.Request().Context(), updates)
	if err != nil {
		return apperrors.InternalError("Failed to perform bulk update", err).WithField("updates", len(updates))
	}

	response := bulkUpdateResponse{Message: "Bulk update successful", UpdatedDishes: dishes}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func decodeBulkUpdate(c echo.Context) ([]domain.PublishUpdate, error) {
	var body struct {
		Updates json.RawMessage `json:"updates"`
	}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return nil, apperrors.ValidationError("Invalid request body").WithField("decode_error", err.Error())
	}

	var entries []bulkUpdateEntry
	if len(body.Updates) == 0 || body.Updates[0] != '[' {
		return nil, apperrors.ValidationError("Updates must be an array")
	}
	if err := json.Unmarshal(body.Updates, &entries); err != nil {
		return nil, apperrors.ValidationError("Invalid update entry").WithField("decode_error", err.Error())
	}

	updates := make([]domain.PublishUpdate, 0, len(entries))
	for i, e := range entries {
		if e.ID == nil || e.Published == nil {
			return nil, apperrors.ValidationError("Each update requires id and published").WithField("index", i)
		}
		updates = append(updates, domain.PublishUpdate{ID: *e.ID, Published: *e.Published})
	}
	return updates, nil
}
