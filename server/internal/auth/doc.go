// Package auth provides authentication middleware for thermavg-server.
//
// APIKey(mode, header, key, exempt...) wraps an http.Handler and validates
// the API key from the named request header.
//
// When mode != "apikey" or key == "", all requests pass through (useful for
// local development with auth disabled). When the key is incorrect or absent,
// the middleware answers 401 with a JSON error body. Paths listed in exempt
// (matched exactly) are never checked.
//
// WebSocket upgrade requests (such as /ws/stream) may carry the key in the
// api_key query parameter when the header is absent, since browser
// WebSocket clients cannot set request headers. Plain HTTP requests must
// use the header.
package auth
