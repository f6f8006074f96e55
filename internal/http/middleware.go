package http

import (
	"context"
	"net/http"
)

type contextKey string

const callerEmailKey contextKey = "caller_email"

// AuthMiddleware yields the verified caller email. The real JWT
// verification lives in the identity layer in front of this service; here
// the already-verified identity arrives as a trusted header.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := r.Header.Get("X-User-Email")
		if email == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
			return
		}

		ctx := context.WithValue(r.Context(), callerEmailKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerEmail(ctx context.Context) string {
	email, _ := ctx.Value(callerEmailKey).(string)
	return email
}
