// Package ws keeps a WebSocket open to the browser shell so navigations can
// be decided without a new HTTP request per page load.
//
// Message Types (Client → Server):
//   - evaluate: decide a navigation ({"url"})
//   - security_level: classify a URL for the address bar ({"url"})
//   - check_phishing: run the phishing detector ({"url"})
//   - classify_download: score a download ({"filename"})
//   - browser_settings: referrer policy, JavaScript and DNT
//   - ping: keep-alive
//
// Message Types (Server → Client):
//   - system: connection established
//   - decision, security_level, phishing, download, browser_settings: replies
//   - pong: keep-alive reply
//   - error: malformed or unknown message
//
// Replies echo the client's "id" so the shell can match them to requests.
//
// Example Usage:
//
//	handler := ws.NewHandler(eng, logger)
//	router.GET("/stream", handler.HandleConnection)
package ws
