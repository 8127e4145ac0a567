package middleware

import "net/http"

// CORSConfig lists the origins allowed to call the API. Empty means any.
type CORSConfig struct {
	Origins []string
}

// CORS adds CORS headers to allow dashboard access
func (c CORSConfig) CORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := c.allowed(r.Header.Get("Origin"))
		w.Header().Set("Access-Control-Allow-Origin", origin)
		if origin != "*" {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (c CORSConfig) allowed(origin string) string {
	if len(c.Origins) == 0 {
		return "*"
	}
	for _, o := range c.Origins {
		if o == "*" {
			return "*"
		}
		if o == origin {
			return origin
		}
	}
	// Unknown origin: echo the first configured one so the browser rejects it.
	return c.Origins[0]
}

// CORS allows requests from any origin
func CORS(next http.HandlerFunc) http.HandlerFunc {
	return CORSConfig{}.CORS(next)
}
