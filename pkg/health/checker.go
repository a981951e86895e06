// Package health provides readiness checks for the daemon's dependencies.
package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trackforce/fieldguard/pkg/storage"
)

// Response is the health endpoint payload
type Response struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// StoreChecker probes the key-value backend. A missing probe key is healthy;
// only transport or backend failures count.
func StoreChecker(store storage.Store) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_, err := store.Get(ctx, "health_probe")
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return nil
	}
}

// Handler returns a health endpoint that runs the given dependency checks
func Handler(serviceName, version string, checks map[string]func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		results := make(map[string]string, len(checks))

		for name, check := range checks {
			if err := check(); err != nil {
				results[name] = "unhealthy: " + err.Error()
				status = "unhealthy"
			} else {
				results[name] = "healthy"
			}
		}

		code := http.StatusOK
		if status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, Response{
			Status:  status,
			Service: serviceName,
			Version: version,
			Checks:  results,
		})
	}
}
