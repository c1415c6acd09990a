package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

const (
	// HeaderClient identifies the syncing client: id="...", version="...".
	HeaderClient = "Cart-Client"
	// HeaderSchema carries the backend cart schema: version="1.2.0".
	HeaderSchema = "Cart-Schema"
)

// FormatClientHeader serializes the Cart-Client RFC 8941 dictionary.
func FormatClientHeader(id, version string) (string, error) {
	dict := httpsfv.NewDictionary()
	dict.Add("id", httpsfv.NewItem(id))
	if version != "" {
		dict.Add("version", httpsfv.NewItem(version))
	}
	return httpsfv.Marshal(dict)
}

// ParseSchemaHeader extracts the version member of a Cart-Schema header.
// Accepts a string or token value:
//
//	version="1.2.0"  → 1.2.0
//	version=v2;rev=3 → v2 (params ignored)
func ParseSchemaHeader(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("empty Cart-Schema header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return "", fmt.Errorf("invalid Cart-Schema header: %w", err)
	}

	member, ok := dict.Get("version")
	if !ok {
		return "", errors.New("version key not found in Cart-Schema header")
	}

	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", errors.New("version value must be an item")
	}

	switch v := item.Value.(type) {
	case string:
		return v, nil
	case httpsfv.Token:
		return string(v), nil
	default:
		return "", errors.New("version value must be a string or token")
	}
}
