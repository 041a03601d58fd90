// Package httpapi is the composition root for the broadcast service's HTTP
// surface: it wires the broadcast engine, fetcher resolver, identity
// access-policy, and thumbnail proxy into a gin.Engine matching spec.md §6's
// route table.
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arung-agamani/denpa-broadcast/internal/broadcast"
	"github.com/arung-agamani/denpa-broadcast/internal/fetcher"
	"github.com/arung-agamani/denpa-broadcast/internal/identity"
	"github.com/arung-agamani/denpa-broadcast/internal/metrics"
	"github.com/arung-agamani/denpa-broadcast/internal/thumbnail"
)

// startedAt is recorded once at process start for the /health uptime field.
var startedAt = time.Now()

// Deps wires every collaborator the HTTP layer calls into.
type Deps struct {
	Engine       *broadcast.Engine
	Resolver     *fetcher.Resolver
	Identity     *identity.Identity
	Thumbnail    *thumbnail.Proxy
	ClientOrigin string
	Version      string
}

// NewRouter builds the gin.Engine per spec.md §6's route table.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(SecurityHeaders())
	r.Use(CORS(deps.ClientOrigin))
	r.Use(RequestLog())

	h := &handlers{deps: deps}

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	r.GET("/api/status", h.status)
	r.GET("/api/me", identity.OptionalAuth(deps.Identity), h.me)

	queue := r.Group("/api/queue")
	queue.Use(identity.RequireAuth(deps.Identity))
	queue.Use(QueueRateLimit())
	{
		queue.POST("", h.enqueue)
		queue.DELETE("/:id", h.dequeue)
		queue.PATCH("/:id", h.moveQueue)
	}

	r.POST("/api/pause", identity.RequireAuth(deps.Identity), h.setPaused)
	r.POST("/api/skip", identity.RequireAuth(deps.Identity), h.skip)

	r.GET("/stream", h.stream)

	r.GET("/youtube/thumbnail.png", h.youtubeThumbnail)
	r.GET("/soundcloud/thumbnail.png", h.soundcloudThumbnail)

	return r
}
