// Package handlers exposes the curation API: signin, the pending-review
// queue, identity search and alias management.
package handlers

import (
	"github.com/goldenstat/goldenstat/resolve"
	"github.com/goldenstat/goldenstat/store"
)

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	store    *store.Store
	overlaps *resolve.OverlapDetector
	JWTKey   []byte
}

// New creates a Handler over the store, the overlap detector and the JWT
// signing key.
func New(st *store.Store, overlaps *resolve.OverlapDetector, jwtKey []byte) *Handler {
	return &Handler{store: st, overlaps: overlaps, JWTKey: jwtKey}
}
