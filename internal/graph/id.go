package graph

import (
	"crypto/md5"
	"encoding/hex"
	"path"
	"path/filepath"
	"strings"
)

// IDLength is the number of hex characters kept from the digest. 48 bits keeps
// the collision probability around n²/2^49 (≈2e-5 for 100k nodes); collisions
// are not detected.
const IDLength = 12

// MakeID derives a deterministic node ID from a canonical key
func MakeID(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])[:IDLength]
}

// NormalizePath converts a relative path to the canonical slash-separated form
// used as a file node key
func NormalizePath(rel string) string {
	p := path.Clean(filepath.ToSlash(rel))
	return strings.TrimPrefix(p, "./")
}

// FileKey returns the canonical key of a file node
func FileKey(rel string) string {
	return NormalizePath(rel)
}

// ModelKey returns the canonical key of a data model/collection node
func ModelKey(name string) string {
	return "model:" + name
}

// RouteKey returns the canonical key of a route/endpoint node
func RouteKey(method, routePath string) string {
	if method == "" {
		return "route:" + routePath
	}
	return "route:" + method + ":" + routePath
}

// APIKey returns the canonical key of an external API node
func APIKey(label string) string {
	return "api:" + label
}
