// Package token inspects issued access tokens on the client side. The engine
// never verifies signatures (the backend that issued the token does that);
// it only reads the expiry claim to schedule session expiry locally.
package token
