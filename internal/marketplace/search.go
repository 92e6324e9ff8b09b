package marketplace

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/kv"
)

// MaxRecentSearches is how many terms are remembered per user.
const MaxRecentSearches = 10

// RecentSearches keeps each user's latest search terms under
// recent_searches:<user>, most recent first.
type RecentSearches struct {
	store kv.Store
	mu    sync.Mutex
}

func NewRecentSearches(store kv.Store) *RecentSearches {
	return &RecentSearches{store: store}
}

// PushRecent puts term at the front of list, dropping an earlier
// case-insensitive duplicate and anything past the limit.
func PushRecent(list []string, term string) []string {
	term = strings.Join(strings.Fields(term), " ")
	if term == "" {
		return list
	}
	out := make([]string, 0, MaxRecentSearches)
	out = append(out, term)
	for _, t := range list {
		if len(out) == MaxRecentSearches {
			break
		}
		if !strings.EqualFold(t, term) {
			out = append(out, t)
		}
	}
	return out
}

func (r *RecentSearches) List(ctx context.Context, userID string) ([]string, error) {
	terms := []string{}
	if _, err := kv.GetJSON(ctx, r.store, kv.RecentSearchesKey(userID), &terms); err != nil {
		return nil, err
	}
	return terms, nil
}

func (r *RecentSearches) Add(ctx context.Context, userID, term string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	terms, err := r.List(ctx, userID)
	if err != nil {
		return err
	}
	return kv.SetJSON(ctx, r.store, kv.RecentSearchesKey(userID), PushRecent(terms, term))
}

func (r *RecentSearches) Clear(ctx context.Context, userID string) error {
	return r.store.Delete(ctx, kv.RecentSearchesKey(userID))
}

// SearchProducts matches available products of listable shops by name or
// category. Signed-in callers get the term recorded.
func (h *Handler) SearchProducts(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusOK, echo.Map{"products": []*Product{}})
	}
	if len(q) > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "search term too long"})
	}
	_, limit, offset := pagination(c, 50)

	ctx := c.Request().Context()
	pattern := "%" + escapeLike(q) + "%"
	rows, err := h.pool.Query(ctx, `SELECT `+productColumns+productFrom+`
		WHERE p.is_available AND s.is_approved AND s.is_active
			AND (p.name ILIKE $1 OR p.category ILIKE $1 OR p.description ILIKE $1)
		ORDER BY (p.name ILIKE $1) DESC, p.name
		LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return apperr.Respond(c, err, "search failed")
	}
	products, err := collectProducts(rows)
	if err != nil {
		return apperr.Respond(c, err, "search failed")
	}
	h.withProductImages(products...)

	if uid := userID(c); uid != "" && h.recent != nil {
		if err := h.recent.Add(ctx, uid, q); err != nil {
			c.Logger().Warnf("record recent search: %v", err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"products": products})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (h *Handler) GetRecentSearches(c echo.Context) error {
	terms, err := h.recent.List(c.Request().Context(), userID(c))
	if err != nil {
		return apperr.Respond(c, err, "failed to load recent searches")
	}
	return c.JSON(http.StatusOK, echo.Map{"searches": terms})
}

func (h *Handler) ClearRecentSearches(c echo.Context) error {
	if err := h.recent.Clear(c.Request().Context(), userID(c)); err != nil {
		return apperr.Respond(c, err, "failed to clear recent searches")
	}
	return c.NoContent(http.StatusNoContent)
}
