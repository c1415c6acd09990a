// MCP transport for the cart API using the official MCP Go SDK.
// Every tool returns the resulting StateOutput so agents never need a
// follow-up read.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"cartsync/internal/cartapi"
	"cartsync/internal/model"
)

// === MCP Tool Input Types ===
// Amounts are decimal strings ("19.99"); display metadata is opaque JSON
// stored verbatim with the line.

// LoginInput is the input schema for session_login.
type LoginInput struct {
	Credential string `json:"credential" jsonschema:"opaque bearer credential for the store backend"`
}

// NoInput is the input schema for tools without arguments.
type NoInput struct{}

// AddItemInput is the input schema for cart_add_item.
type AddItemInput struct {
	ItemID          string         `json:"itemId" jsonschema:"product identifier"`
	Quantity        int            `json:"quantity,omitempty" jsonschema:"units to add (default 1)"`
	UnitPrice       string         `json:"unitPrice,omitempty" jsonschema:"decimal unit price shown to guests, e.g. 19.99"`
	DisplayMetadata map[string]any `json:"displayMetadata,omitempty" jsonschema:"display fields stored with the line"`
}

// UpdateQuantityInput is the input schema for cart_update_quantity.
type UpdateQuantityInput struct {
	ItemID   string `json:"itemId" jsonschema:"product identifier"`
	Quantity int    `json:"quantity" jsonschema:"new quantity; 0 removes the line"`
}

// ItemInput is the input schema for tools addressing one item.
type ItemInput struct {
	ItemID string `json:"itemId" jsonschema:"product identifier"`
}

// WishlistAddInput is the input schema for wishlist_add.
type WishlistAddInput struct {
	ItemID          string         `json:"itemId" jsonschema:"product identifier"`
	UnitPrice       string         `json:"unitPrice,omitempty" jsonschema:"decimal price cached for moving the item to a guest cart"`
	DisplayMetadata map[string]any `json:"displayMetadata,omitempty" jsonschema:"display fields stored with the item"`
}

// PromotionInput is the input schema for cart_apply_promotion.
type PromotionInput struct {
	Code string `json:"code" jsonschema:"promotion code"`
}

// NewMCPServer creates an MCP server with cart and wishlist tools registered.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "cartsync",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Shopping cart and wishlist for one shopper. Guests keep a local cart; " +
				"after session_login the cart lives on the store and guest lines are migrated once.",
		},
	)

	// Session
	mcp.AddTool(server, &mcp.Tool{
		Name:        "session_login",
		Description: "Sign in with a credential. The guest cart migrates to the account in the background.",
	}, h.mcpLogin)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "session_logout",
		Description: "Sign out. Account cart and wishlist are cleared from this device.",
	}, h.mcpLogout)

	// Cart
	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_get",
		Description: "Get the current cart, wishlist and session.",
	}, h.mcpGet)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_add_item",
		Description: "Add units of a product to the cart.",
	}, h.mcpAddItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_update_quantity",
		Description: "Set the quantity of a product already in the cart. Quantity 0 removes it.",
	}, h.mcpUpdateQuantity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_remove_item",
		Description: "Remove a product from the cart.",
	}, h.mcpRemoveItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_clear",
		Description: "Remove every line from the cart.",
	}, h.mcpClear)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_apply_promotion",
		Description: "Validate a promotion code against the current cart and apply it.",
	}, h.mcpApplyPromotion)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_remove_promotion",
		Description: "Drop the applied promotion code.",
	}, h.mcpRemovePromotion)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_refresh",
		Description: "Refetch the signed-in cart and wishlist from the store now.",
	}, h.mcpRefresh)

	// Wishlist
	mcp.AddTool(server, &mcp.Tool{
		Name:        "wishlist_get",
		Description: "Get the saved items.",
	}, h.mcpGet)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "wishlist_add",
		Description: "Save a product to the wishlist. Saving it twice is a no-op.",
	}, h.mcpWishlistAdd)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "wishlist_remove",
		Description: "Remove a product from the wishlist.",
	}, h.mcpWishlistRemove)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "wishlist_move_to_cart",
		Description: "Move a saved product into the cart.",
	}, h.mcpMoveToCart)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpLogin(ctx context.Context, req *mcp.CallToolRequest, input LoginInput) (*mcp.CallToolResult, any, error) {
	return h.mutate("session_login", func() error {
		return h.api.Login(ctx, input.Credential)
	})
}

func (h *Handler) mcpLogout(ctx context.Context, req *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	return h.mutate("session_logout", func() error {
		return h.api.Logout(ctx)
	})
}

func (h *Handler) mcpGet(ctx context.Context, req *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	return nil, h.state(), nil
}

func (h *Handler) mcpAddItem(ctx context.Context, req *mcp.CallToolRequest, input AddItemInput) (*mcp.CallToolResult, any, error) {
	price, err := parsePrice(input.UnitPrice)
	if err != nil {
		return nil, nil, h.toolError("cart_add_item", err)
	}
	metadata, err := encodeMetadata(input.DisplayMetadata)
	if err != nil {
		return nil, nil, h.toolError("cart_add_item", err)
	}
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}

	return h.mutate("cart_add_item", func() error {
		return h.api.AddItem(ctx, cartapi.AddItemRequest{
			ItemID:    input.ItemID,
			Quantity:  qty,
			UnitPrice: price,
			Metadata:  metadata,
		})
	})
}

func (h *Handler) mcpUpdateQuantity(ctx context.Context, req *mcp.CallToolRequest, input UpdateQuantityInput) (*mcp.CallToolResult, any, error) {
	return h.mutate("cart_update_quantity", func() error {
		return h.api.UpdateQty(ctx, input.ItemID, input.Quantity)
	})
}

func (h *Handler) mcpRemoveItem(ctx context.Context, req *mcp.CallToolRequest, input ItemInput) (*mcp.CallToolResult, any, error) {
	return h.mutate("cart_remove_item", func() error {
		return h.api.RemoveItem(ctx, input.ItemID)
	})
}

func (h *Handler) mcpClear(ctx context.Context, req *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	return h.mutate("cart_clear", func() error {
		return h.api.Clear(ctx)
	})
}

func (h *Handler) mcpApplyPromotion(ctx context.Context, req *mcp.CallToolRequest, input PromotionInput) (*mcp.CallToolResult, any, error) {
	return h.mutate("cart_apply_promotion", func() error {
		_, err := h.api.ApplyPromotion(ctx, input.Code)
		return err
	})
}

func (h *Handler) mcpRemovePromotion(ctx context.Context, req *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	return h.mutate("cart_remove_promotion", func() error {
		return h.api.RemovePromotion(ctx)
	})
}

func (h *Handler) mcpRefresh(ctx context.Context, req *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	return h.mutate("cart_refresh", func() error {
		return h.api.Refresh(ctx)
	})
}

func (h *Handler) mcpWishlistAdd(ctx context.Context, req *mcp.CallToolRequest, input WishlistAddInput) (*mcp.CallToolResult, any, error) {
	price, err := parsePrice(input.UnitPrice)
	if err != nil {
		return nil, nil, h.toolError("wishlist_add", err)
	}
	metadata, err := encodeMetadata(input.DisplayMetadata)
	if err != nil {
		return nil, nil, h.toolError("wishlist_add", err)
	}

	return h.mutate("wishlist_add", func() error {
		return h.api.AddToWishlist(ctx, model.WishlistItem{
			ItemID:    input.ItemID,
			UnitPrice: price,
			Metadata:  metadata,
		})
	})
}

func (h *Handler) mcpWishlistRemove(ctx context.Context, req *mcp.CallToolRequest, input ItemInput) (*mcp.CallToolResult, any, error) {
	return h.mutate("wishlist_remove", func() error {
		return h.api.RemoveFromWishlist(ctx, input.ItemID)
	})
}

func (h *Handler) mcpMoveToCart(ctx context.Context, req *mcp.CallToolRequest, input ItemInput) (*mcp.CallToolResult, any, error) {
	return h.mutate("wishlist_move_to_cart", func() error {
		return h.api.MoveToCart(ctx, input.ItemID)
	})
}

// mutate runs fn and reports the resulting state. An unconfirmed removal
// is not a failure: the state is returned with a warning.
func (h *Handler) mutate(tool string, fn func() error) (*mcp.CallToolResult, any, error) {
	if err := fn(); err != nil {
		if !model.IsRemoveNotConfirmed(err) {
			return nil, nil, h.toolError(tool, err)
		}
		out := h.state()
		out.Warning = cartapi.Message(err)
		return nil, out, nil
	}
	return nil, h.state(), nil
}

func parsePrice(s string) (model.Money, error) {
	if s == "" {
		return 0, nil
	}
	price, err := model.ParseMoney(s)
	if err != nil {
		return 0, model.NewValidationError("unitPrice", "must be a decimal amount")
	}
	if price < 0 {
		return 0, model.NewValidationError("unitPrice", "must not be negative")
	}
	return price, nil
}

func encodeMetadata(m map[string]any) (json.RawMessage, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, model.NewValidationError("displayMetadata", "must be a JSON object")
	}
	return data, nil
}
