// Package httpserver exposes the cart and session managers to out-of-process
// screens: a JSON API under /api, websocket change streams under /ws, and the
// health, version and metrics endpoints.
package httpserver
