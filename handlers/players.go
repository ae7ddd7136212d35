package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/goldenstat/goldenstat/resolve"
)

// SearchPlayers searches identities by name pattern.
func (h *Handler) SearchPlayers(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q param not set")
	}

	players, err := h.store.SearchPlayers(c.Request().Context(), q, 50)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, players)
}

// Overlaps reports temporal activity conflicts among identities sharing a
// base name, so a curator can judge a merge before approving it.
func (h *Handler) Overlaps(c echo.Context) error {
	base := c.QueryParam("name")
	if base == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name param not set")
	}

	overlaps, err := h.overlaps.FindOverlaps(c.Request().Context(), base)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, overlaps)
}

type createAliasRequest struct {
	AliasID     int    `json:"aliasID"`
	CanonicalID int    `json:"canonicalID"`
	Reason      string `json:"reason"`
}

// CreateAlias records one identity as an alias of another. Cycles and
// high-severity activity overlaps are rejected.
func (h *Handler) CreateAlias(c echo.Context) error {
	var req createAliasRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.AliasID == 0 || req.CanonicalID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "aliasID and canonicalID required")
	}

	ctx := c.Request().Context()
	alias, err := h.store.PlayerByID(ctx, req.AliasID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown alias player")
	}
	canonical, err := h.store.PlayerByID(ctx, req.CanonicalID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown canonical player")
	}

	severity, err := h.overlaps.PairSeverity(ctx, *alias, *canonical)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if severity == resolve.SeverityHigh {
		return echo.NewHTTPError(http.StatusConflict,
			"identities have overlapping activity; resolve manually")
	}

	created, err := h.store.CreateAlias(ctx, alias.ID, canonical.ID, req.Reason)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, created)
}

// Player returns one identity with its activity windows.
func (h *Handler) Player(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid player id")
	}

	ctx := c.Request().Context()
	p, err := h.store.PlayerByID(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "player not found")
	}
	windows, err := h.store.ClubActivity(ctx, p.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"player":  p,
		"windows": windows,
	})
}
