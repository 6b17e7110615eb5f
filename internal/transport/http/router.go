package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/relaysched/relay/internal/transport/http/handler"
	"github.com/relaysched/relay/internal/transport/http/middleware"
)

// NewRouter wires the control-plane HTTP surface: CRUD over Job
// definitions and run history. Liveness, readiness and metrics are
// served on a separate port by internal/metrics.NewServer.
func NewRouter(logger *slog.Logger, jobHandler *handler.JobHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	jobs := r.Group("/jobs")
	jobs.POST("", jobHandler.Create)
	jobs.GET("", jobHandler.List)
	jobs.GET("/:id", jobHandler.GetByID)
	jobs.PATCH("/:id/active", jobHandler.SetActive)
	jobs.GET("/:id/runs", jobHandler.ListRuns)

	return r
}
