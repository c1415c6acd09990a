// cartctl is a CLI for driving a running cartsyncd over MCP.
// Each command performs a single tool call, making it composable for scripts.
//
// Commands:
//
//	cartctl get [-server URL]
//	cartctl add -item ID [-qty N] [-price 19.99] [-meta JSON]
//	cartctl qty -item ID -qty N
//	cartctl remove -item ID
//	cartctl clear
//	cartctl login -token CREDENTIAL
//	cartctl logout
//	cartctl save -item ID [-price 19.99]
//	cartctl unsave -item ID
//	cartctl move -item ID
//	cartctl promo -code CODE | -remove
//	cartctl refresh
//
// Examples:
//
//	cartctl add -item ring-7 -price 120.00
//	cartctl login -token "$TOKEN"
//	N=$(cartctl get -q)
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Global flags (apply to all commands)
var (
	serverURL string
	quiet     bool
	noColor   bool
	verbose   bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

// command maps a CLI verb to an MCP tool. bind registers the command's own
// flags and returns a function building the tool arguments after parsing.
type command struct {
	tool    string
	summary string
	bind    func(fs *flag.FlagSet) func() (map[string]any, error)
}

var commands = map[string]command{
	"get": {
		tool:    "cart_get",
		summary: "Show cart, wishlist and session",
		bind:    noArgs,
	},
	"add": {
		tool:    "cart_add_item",
		summary: "Add units of a product to the cart",
		bind: func(fs *flag.FlagSet) func() (map[string]any, error) {
			item := fs.String("item", "", "Item ID (required)")
			qty := fs.Int("qty", 1, "Quantity")
			price := fs.String("price", "", "Unit price shown to guests, e.g. 19.99")
			meta := fs.String("meta", "", "Display metadata as a JSON object")
			return func() (map[string]any, error) {
				if *item == "" {
					return nil, fmt.Errorf("-item is required")
				}
				args := map[string]any{"itemId": *item, "quantity": *qty}
				if *price != "" {
					args["unitPrice"] = *price
				}
				if *meta != "" {
					var m map[string]any
					if err := json.Unmarshal([]byte(*meta), &m); err != nil {
						return nil, fmt.Errorf("-meta: %w", err)
					}
					args["displayMetadata"] = m
				}
				return args, nil
			}
		},
	},
	"qty": {
		tool:    "cart_update_quantity",
		summary: "Set a line's quantity (0 removes it)",
		bind: func(fs *flag.FlagSet) func() (map[string]any, error) {
			item := fs.String("item", "", "Item ID (required)")
			qty := fs.Int("qty", -1, "New quantity (required)")
			return func() (map[string]any, error) {
				if *item == "" || *qty < 0 {
					return nil, fmt.Errorf("-item and -qty are required")
				}
				return map[string]any{"itemId": *item, "quantity": *qty}, nil
			}
		},
	},
	"remove": {
		tool:    "cart_remove_item",
		summary: "Remove a product from the cart",
		bind:    itemArg,
	},
	"clear": {
		tool:    "cart_clear",
		summary: "Empty the cart",
		bind:    noArgs,
	},
	"login": {
		tool:    "session_login",
		summary: "Sign in; the guest cart migrates to the account",
		bind: func(fs *flag.FlagSet) func() (map[string]any, error) {
			token := fs.String("token", os.Getenv("CARTSYNC_TOKEN"), "Credential (default $CARTSYNC_TOKEN)")
			return func() (map[string]any, error) {
				if *token == "" {
					return nil, fmt.Errorf("-token is required")
				}
				return map[string]any{"credential": *token}, nil
			}
		},
	},
	"logout": {
		tool:    "session_logout",
		summary: "Sign out and clear account state",
		bind:    noArgs,
	},
	"save": {
		tool:    "wishlist_add",
		summary: "Save a product to the wishlist",
		bind: func(fs *flag.FlagSet) func() (map[string]any, error) {
			item := fs.String("item", "", "Item ID (required)")
			price := fs.String("price", "", "Price cached for guest move-to-cart")
			return func() (map[string]any, error) {
				if *item == "" {
					return nil, fmt.Errorf("-item is required")
				}
				args := map[string]any{"itemId": *item}
				if *price != "" {
					args["unitPrice"] = *price
				}
				return args, nil
			}
		},
	},
	"unsave": {
		tool:    "wishlist_remove",
		summary: "Remove a product from the wishlist",
		bind:    itemArg,
	},
	"move": {
		tool:    "wishlist_move_to_cart",
		summary: "Move a saved product into the cart",
		bind:    itemArg,
	},
	"refresh": {
		tool:    "cart_refresh",
		summary: "Refetch the signed-in cart and wishlist",
		bind:    noArgs,
	},
}

func noArgs(*flag.FlagSet) func() (map[string]any, error) {
	return func() (map[string]any, error) { return map[string]any{}, nil }
}

func itemArg(fs *flag.FlagSet) func() (map[string]any, error) {
	item := fs.String("item", "", "Item ID (required)")
	return func() (map[string]any, error) {
		if *item == "" {
			return nil, fmt.Errorf("-item is required")
		}
		return map[string]any{"itemId": *item}, nil
	}
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	args := os.Args[2:]

	switch name {
	case "promo":
		runPromo(args)
		return
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	fs := newFlagSet(name)
	build := cmd.bind(fs)
	fs.Parse(args)
	applyGlobalFlags()

	toolArgs, err := build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		fs.Usage()
		os.Exit(1)
	}
	runTool(cmd.tool, toolArgs)
}

// runPromo applies a promotion code, or drops it with -remove.
func runPromo(args []string) {
	fs := newFlagSet("promo")
	code := fs.String("code", "", "Promotion code")
	remove := fs.Bool("remove", false, "Remove the applied promotion")
	fs.Parse(args)
	applyGlobalFlags()

	switch {
	case *remove:
		runTool("cart_remove_promotion", map[string]any{})
	case *code != "":
		runTool("cart_apply_promotion", map[string]any{"code": *code})
	default:
		fs.Usage()
		os.Exit(1)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&serverURL, "server", envOrDefault("CARTSYNC_URL", "http://localhost:8080"), "cartsyncd base URL")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the cart item count")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - print the full tool result")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cartctl %s [options]\n\nOptions:\n", name)
		fs.PrintDefaults()
	}
	return fs
}

func applyGlobalFlags() {
	if noColor {
		disableColors()
	}
}

func printUsage() {
	var b strings.Builder
	for _, name := range []string{"get", "add", "qty", "remove", "clear", "login", "logout", "save", "unsave", "move", "refresh"} {
		fmt.Fprintf(&b, "  %-8s  %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(&b, "  %-8s  %s\n", "promo", "Apply (-code) or drop (-remove) a promotion code")

	fmt.Fprintf(os.Stderr, `cartctl - drive a running cartsyncd

Usage:
  cartctl <command> [options]

Commands:
%s
Examples:
  cartctl add -item ring-7 -price 120.00
  cartctl login -token "$TOKEN"
  cartctl qty -item ring-7 -qty 2

Run 'cartctl <command> -h' for command-specific options.
`, b.String())
}

// =============================================================================
// MCP HELPERS
// =============================================================================

// runTool connects to cartsyncd, calls tool and prints the resulting state.
func runTool(tool string, args map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "cartctl", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint: strings.TrimSuffix(serverURL, "/") + "/mcp",
	}, nil)
	if err != nil {
		fatal("Failed to connect to %s: %v", serverURL, err)
	}
	defer cs.Close()

	start := time.Now()
	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		fatal("%s failed: %v", tool, err)
	}
	text := resultText(res)

	if verbose && !quiet {
		fmt.Printf("\n%s◀ %s%s (%v)\n", colorCyan, tool, colorReset, time.Since(start))
		printJSON([]byte(text), "  ")
	}
	if res.IsError {
		fatal("%s", text)
	}

	var st state
	if err := json.Unmarshal([]byte(text), &st); err != nil {
		fatal("Parsing result: %v", err)
	}
	printState(st)
}

func resultText(res *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		if t, ok := c.(*mcp.TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// state mirrors the daemon's tool result.
type state struct {
	Session struct {
		Mode string `json:"mode"`
	} `json:"session"`
	Cart struct {
		Lines []struct {
			LineID    string          `json:"lineId"`
			ItemID    string          `json:"itemId"`
			Quantity  int             `json:"quantity"`
			UnitPrice json.Number     `json:"unitPrice"`
			Metadata  json.RawMessage `json:"displayMetadata"`
		} `json:"lines"`
		TotalAmount json.Number `json:"totalAmount"`
		Loaded      bool        `json:"loaded"`
	} `json:"cart"`
	CartItemCount int `json:"cartItemCount"`
	Wishlist      []struct {
		ItemID string `json:"itemId"`
	} `json:"wishlist"`
	Promotion *struct {
		Code           string      `json:"code"`
		DiscountAmount json.Number `json:"discountAmount"`
		FinalTotal     json.Number `json:"finalTotal"`
	} `json:"promotion"`
	Warning string `json:"warning"`
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printState(st state) {
	if quiet {
		fmt.Println(st.CartItemCount)
		return
	}
	if st.Warning != "" {
		printWarning("%s", st.Warning)
	}

	fmt.Printf("%sSession:%s %s\n", colorBold, colorReset, st.Session.Mode)
	if !st.Cart.Loaded {
		printInfo("Cart is still loading from the store")
	}
	if len(st.Cart.Lines) == 0 {
		printInfo("Cart is empty")
	}
	for _, line := range st.Cart.Lines {
		fmt.Printf("  %s%-20s%s x%-3d %s", colorCyan, line.ItemID, colorReset, line.Quantity, line.UnitPrice)
		if line.LineID != "" {
			fmt.Printf(" %s[%s]%s", colorGray, line.LineID, colorReset)
		}
		fmt.Println()
	}
	fmt.Printf("%sTotal:%s %s%s%s (%d items)\n", colorBold, colorReset, colorGreen, st.Cart.TotalAmount, colorReset, st.CartItemCount)

	if st.Promotion != nil {
		fmt.Printf("%sPromotion:%s %s -%s → %s\n", colorBold, colorReset, st.Promotion.Code, st.Promotion.DiscountAmount, st.Promotion.FinalTotal)
	}
	if len(st.Wishlist) > 0 {
		ids := make([]string, len(st.Wishlist))
		for i, w := range st.Wishlist {
			ids[i] = w.ItemID
		}
		fmt.Printf("%sWishlist:%s %s\n", colorBold, colorReset, strings.Join(ids, ", "))
	}
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}
	fmt.Println(prefix + pretty.String())
}

func printWarning(format string, args ...any) {
	fmt.Printf("%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
