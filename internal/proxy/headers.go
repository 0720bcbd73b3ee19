package proxy

import "net/http"

// copyRequestHeaders copies browser headers worth forwarding to the backend,
// excluding hop-by-hop headers (per RFC 9110), body framing, and credentials.
// The relay sets Authorization and X-Request-ID itself.
func copyRequestHeaders(dst, src http.Header) {
	for k, v := range src {
		switch k {
		case "Connection", "Upgrade", "Host",
			"Keep-Alive", "Transfer-Encoding", "TE", "Trailer",
			"Proxy-Authorization", "Proxy-Authenticate",
			"Authorization", "Cookie",
			"Content-Length", "Content-Type", "Accept-Encoding",
			"Origin", "Referer", "X-Request-Id":
			continue
		}
		dst[k] = v
	}
}
