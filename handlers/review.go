package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/goldenstat/goldenstat/models"
)

// PendingReviews lists queued review items, pending ones by default.
// ?status=accepted|rejected filters resolved history instead.
func (h *Handler) PendingReviews(c echo.Context) error {
	status := c.QueryParam("status")
	if status == "" {
		status = models.ReviewPending
	}
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	reviews, err := h.store.PendingReviews(c.Request().Context(), status, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, reviews)
}

type resolveReviewRequest struct {
	Accept   bool   `json:"accept"`
	PlayerID int    `json:"playerID,omitempty"` // required on accept
	Alias    bool   `json:"alias,omitempty"`    // also record an alias for future runs
	Reason   string `json:"reason,omitempty"`
}

// ResolveReview accepts or rejects one queued item. Accepting links the raw
// name to the chosen player via a tournament override and optionally records
// a durable alias.
func (h *Handler) ResolveReview(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid review id")
	}

	var req resolveReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	review, err := h.store.ReviewByID(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if review == nil {
		return echo.NewHTTPError(http.StatusNotFound, "review not found")
	}
	if review.Status != models.ReviewPending {
		return echo.NewHTTPError(http.StatusConflict, "review already resolved")
	}

	if !req.Accept {
		if err := h.store.SetReviewStatus(ctx, id, models.ReviewRejected); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, map[string]string{"status": models.ReviewRejected})
	}

	if req.PlayerID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "playerID required to accept")
	}
	player, err := h.store.PlayerByID(ctx, req.PlayerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown player")
	}

	if review.TournamentID != 0 {
		err = h.store.RepointOverride(ctx, review.TournamentID, review.RawName, player.ID, req.Reason)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	if req.Alias {
		source, err := h.store.PlayerByName(ctx, review.RawName)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if source != nil && source.ID != player.ID {
			if _, err := h.store.CreateAlias(ctx, source.ID, player.ID, req.Reason); err != nil {
				return echo.NewHTTPError(http.StatusConflict, err.Error())
			}
		}
	}

	if err := h.store.SetReviewStatus(ctx, id, models.ReviewAccepted); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": models.ReviewAccepted})
}
