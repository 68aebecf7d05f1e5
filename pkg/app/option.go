package app

import (
	"net/http"
)

const defaultConfigPath = "config.yaml"

// Option configures the environment run by Run().
type Option func(o *opts)

type opts struct {
	configPath string
	middleware []func(http.Handler) http.Handler
}

// WithConfigPath sets the config file read by Run. A missing file is not an
// error; config then comes from the environment only.
func WithConfigPath(path string) Option {
	return func(o *opts) {
		if len(path) > 0 {
			o.configPath = path
		}
	}
}

// WithMiddleware installs HTTP middleware on the app's router.
//
// Middleware is evaluated in addition order, after the default middleware.
func WithMiddleware(m func(http.Handler) http.Handler) Option {
	return func(o *opts) {
		o.middleware = append(o.middleware, m)
	}
}
