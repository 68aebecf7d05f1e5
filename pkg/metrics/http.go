package metrics

import (
	"net/http"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicMiddleware starts a New Relic web transaction per request and
// injects the application for custom metrics and events downstream. A nil
// app yields a pass through middleware.
func NewRelicMiddleware(app *newrelic.Application) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if app == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			txn := app.StartTransaction(r.Method + " " + r.URL.Path)
			defer txn.End()

			txn.SetWebRequestHTTP(r)
			w = txn.SetWebResponse(w)

			ctx := WithApplication(r.Context(), app)
			ctx = newrelic.NewContext(ctx, txn)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
