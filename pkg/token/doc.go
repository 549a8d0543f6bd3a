// Package token issues and verifies the HS256 JWTs that authenticate
// WebSocket handshakes. The subject claim carries the recipient id.
package token
