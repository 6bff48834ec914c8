// Package http implements the HTTP handlers for the anemia survey
// service. Handlers stay thin: they parse the request, delegate to the
// service layer, and translate service errors into RFC 7807 problem
// documents.
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Store
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
package http
