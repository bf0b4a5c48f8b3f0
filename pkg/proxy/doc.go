// Package proxy serves inbound requests according to the routing rules.
//
// Proxy is the http.Handler. For each request it reads the body, asks the
// router for a disposition and hands that to a Forwarder, which either returns
// the canned payload or makes one outbound call and buffers the response.
//
// Chunked upstream responses are re-framed with a Content-Length before they
// are relayed, decoding gzip, deflate, br or zstd bodies on the way. Other
// responses are relayed with their headers untouched.
//
// A failed outbound call becomes a 502 for that request only.
package proxy
