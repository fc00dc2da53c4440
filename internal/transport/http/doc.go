// Package http implements the HTTP handlers of the Volatility Explorer API.
// Handlers are thin: they parse and validate request parameters, call a
// service through a small interface, and render JSON. Every failure goes
// through the shared errors.ErrorHandler, which answers with RFC 7807
// problem details.
//
// Successful JSON responses use one envelope:
//
//	{"status": "success", "data": ..., "count": n}
//
// count is present for list payloads only. Export endpoints stream a CSV or
// XLSX attachment instead.
package http
