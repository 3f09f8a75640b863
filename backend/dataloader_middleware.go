package main

import (
	"net/http"
)

// DataLoaderMiddleware injects fresh viewer-scoped dataloaders into the request context.
func DataLoaderMiddleware(a *app) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			me, _ := userIDFromContext(r.Context())
			ctx := WithDataLoaders(r.Context(), NewDataLoaders(a.profiles, a.likes, me))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
