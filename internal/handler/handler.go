// Package handler exposes the cart API to a local UI or agent process:
// MCP tools at /mcp plus read-only JSON views and health checks.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cartsync/internal/cartapi"
	"cartsync/internal/model"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	api    *cartapi.API
	logger *slog.Logger
}

// New creates a Handler over api.
func New(api *cartapi.API, logger *slog.Logger) *Handler {
	return &Handler{
		api:    api,
		logger: logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Read-only views for UIs that only render.
	mux.HandleFunc("GET /cart", h.handleGetCart)
	mux.HandleFunc("GET /wishlist", h.handleGetWishlist)

	mux.Handle("/mcp", h.NewMCPHandler())

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// StateOutput is the view returned by every tool and by GET /cart.
type StateOutput struct {
	Session           cartapi.SessionView     `json:"session"`
	Cart              model.CartView          `json:"cart"`
	CartItemCount     int                     `json:"cartItemCount"`
	Wishlist          []model.WishlistItem    `json:"wishlist"`
	WishlistItemCount int                     `json:"wishlistItemCount"`
	Promotion         *model.AppliedPromotion `json:"promotion,omitempty"`

	// Warning carries a non-fatal failure, e.g. a removal the store has not
	// confirmed yet.
	Warning string `json:"warning,omitempty"`
}

func (h *Handler) state() *StateOutput {
	return &StateOutput{
		Session:           h.api.Session(),
		Cart:              h.api.Cart(),
		CartItemCount:     h.api.CartItemCount(),
		Wishlist:          h.api.Wishlist(),
		WishlistItemCount: h.api.WishlistItemCount(),
		Promotion:         h.api.Promotion(),
	}
}

// handleGetCart returns the current state.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.state())
}

// handleGetWishlist returns the saved items.
// GET /wishlist
func (h *Handler) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, wishlistResponse{
		Items: h.api.Wishlist(),
		Count: h.api.WishlistItemCount(),
	})
}

type wishlistResponse struct {
	Items []model.WishlistItem `json:"items"`
	Count int                  `json:"count"`
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// toolError converts an engine failure into the text an MCP client sees.
// Anything that is not a SyncError is logged and reported generically.
func (h *Handler) toolError(tool string, err error) error {
	var syncErr *model.SyncError
	if errors.As(err, &syncErr) {
		return errors.New(syncErr.Code + ": " + syncErr.Message)
	}
	h.logger.Error("tool failed",
		slog.String("tool", tool),
		slog.String("error", err.Error()),
	)
	return errors.New("INTERNAL_ERROR: " + model.UserMessage(err))
}
