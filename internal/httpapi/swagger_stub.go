//go:build !swagger

package httpapi

import "github.com/go-chi/chi/v5"

// MountSwagger does nothing unless built with -tags=swagger, which keeps the
// generated docs package out of default builds.
func MountSwagger(chi.Router) {}
