package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Check is one named readiness dependency.
type Check struct {
	Name string
	Ping func() error
}

// HealthHandler provides liveness and readiness endpoints for the service.
//
// Responsibilities:
//   - /healthz: Basic liveness probe (always returns 200 OK).
//   - /readyz: Readiness probe (every registered dependency must answer its ping).
type HealthHandler struct {
	checks []Check
}

// NewHealthHandler constructs a HealthHandler. Checks with a nil Ping are ignored.
//
// Typical checks are the Postgres pool (db.Ping) and, when caching is
// enabled, the Redis client.
func NewHealthHandler(checks ...Check) *HealthHandler {
	h := &HealthHandler{}
	for _, c := range checks {
		if c.Ping != nil {
			h.checks = append(h.checks, c)
		}
	}
	return h
}

// Register mounts the health and readiness endpoints into the provided Gin router.
//
// Routes:
//   - GET /healthz: Always returns 200 OK.
//   - GET /readyz: Returns 200 OK if every check succeeds, 503 naming the failing ones otherwise.
func (h *HealthHandler) Register(r *gin.Engine) {
	// Liveness probe (just checks if the service is up)
	// @Summary      Liveness probe
	// @Description  Always returns OK if the service is running
	// @Tags         health
	// @Produce      json
	// @Success      200  {object}  map[string]string
	// @Router       /healthz [get]
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness probe (checks dependencies)
	// @Summary      Readiness probe
	// @Description  Returns ready if the service dependencies (Postgres, Redis) are reachable
	// @Tags         health
	// @Produce      json
	// @Success      200  {object}  map[string]interface{}
	// @Failure      503  {object}  map[string]interface{}
	// @Router       /readyz [get]
	r.GET("/readyz", func(c *gin.Context) {
		failing := map[string]string{}
		for _, chk := range h.checks {
			if err := chk.Ping(); err != nil {
				failing[chk.Name] = err.Error()
			}
		}
		if len(failing) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "failing": failing})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}
