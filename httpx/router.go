package httpx

import "strings"

// MethodAny registers a Route for every HTTP method. Methods echo does not
// know are routed through the path's not-found handler.
const MethodAny = "ANY"

// Route represents a single HTTP route definition.
type Route struct {
	Method     string
	Path       string
	Handler    HandlerFunc
	Middleware []MiddlewareFunc
}

// RegisterRoutes applies a list of Route definitions to the App instance.
func RegisterRoutes(a *App, routes ...Route) {
	if a == nil || a.e == nil {
		return
	}
	for _, r := range routes {
		if r.Handler == nil || r.Path == "" || r.Method == "" {
			continue
		}
		method := strings.ToUpper(r.Method)
		if method == MethodAny {
			a.Any(r.Path, r.Handler, r.Middleware...)
			continue
		}
		a.e.Add(method, r.Path, r.Handler, r.Middleware...)
	}
}
