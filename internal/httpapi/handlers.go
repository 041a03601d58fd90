package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arung-agamani/denpa-broadcast/internal/apierr"
	"github.com/arung-agamani/denpa-broadcast/internal/fetcher"
	"github.com/arung-agamani/denpa-broadcast/internal/identity"
	"github.com/arung-agamani/denpa-broadcast/internal/track"
)

// handlers wraps the wired collaborators so gin handler methods have a
// receiver instead of a pile of closures.
type handlers struct {
	deps Deps
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"version":       h.deps.Version,
		"uptimeSeconds": int(time.Since(startedAt).Seconds()),
	})
}

func (h *handlers) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Engine.Snapshot())
}

func (h *handlers) me(c *gin.Context) {
	user, ok := identity.UserFrom(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"user": nil, "canQueue": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "canQueue": user.CanQueue})
}

type enqueueRequest struct {
	URL string `json:"url"`
}

func (h *handlers) enqueue(c *gin.Context) {
	user, _ := identity.UserFrom(c)
	if user == nil || !user.CanQueue {
		writeError(c, apierr.New(apierr.Forbidden, "not allowed to queue tracks"))
		return
	}

	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		writeError(c, apierr.New(apierr.BadRequest, "url is required"))
		return
	}

	source, err := fetcher.IdentifySource(req.URL)
	if err != nil {
		writeError(c, apierr.Wrap(apierr.UnsupportedUrl, "url is not a recognized youtube or soundcloud link", err))
		return
	}
	if source == track.SourceSoundCloud && !h.deps.Resolver.SoundCloud.Enabled() {
		writeError(c, apierr.New(apierr.FeatureDisabled, "soundcloud is disabled on this server"))
		return
	}

	url := fetcher.NormalizeURL(req.URL)
	title, duration, thumbnail := url, 0, ""
	if source == track.SourceSoundCloud {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		t, d, thumb, err := h.deps.Resolver.SoundCloud.Metadata(ctx, url)
		if err != nil {
			writeError(c, apierr.Wrap(apierr.UpstreamFailure, "could not resolve soundcloud track metadata", err))
			return
		}
		title, duration, thumbnail = t, d, thumb
	}

	requester := track.Requester{ID: user.ID}
	trk := track.New(source, url, title, duration, thumbnail, requester)
	h.deps.Engine.Enqueue(trk)

	c.JSON(http.StatusCreated, gin.H{"track": trk})
}

func (h *handlers) dequeue(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, apierr.New(apierr.BadRequest, "invalid track id"))
		return
	}
	if !h.deps.Engine.RemoveQueued(id) {
		writeError(c, apierr.New(apierr.NotFound, "track is not in the queue"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type moveQueueRequest struct {
	Index *int `json:"index"`
}

func (h *handlers) moveQueue(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, apierr.New(apierr.BadRequest, "invalid track id"))
		return
	}
	var req moveQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Index == nil || *req.Index < 0 {
		writeError(c, apierr.New(apierr.BadRequest, "index is required and must be non-negative"))
		return
	}
	if !h.deps.Engine.MoveQueued(id, *req.Index) {
		writeError(c, apierr.New(apierr.NotFound, "track is not in the queue"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type setPausedRequest struct {
	Paused *bool `json:"paused"`
}

func (h *handlers) setPaused(c *gin.Context) {
	var req setPausedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Paused == nil {
		writeError(c, apierr.New(apierr.BadRequest, "paused is required"))
		return
	}
	result := h.deps.Engine.SetPaused(*req.Paused)
	c.JSON(http.StatusOK, gin.H{"ok": true, "paused": result})
}

func (h *handlers) skip(c *gin.Context) {
	h.deps.Engine.Skip()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *handlers) youtubeThumbnail(c *gin.Context) {
	h.serveThumbnail(c, track.SourceYouTube, false)
}

func (h *handlers) soundcloudThumbnail(c *gin.Context) {
	h.serveThumbnail(c, track.SourceSoundCloud, true)
}

func (h *handlers) serveThumbnail(c *gin.Context, src track.Source, cover bool) {
	srcURL, ok := h.deps.Engine.Thumbnail(src)
	if !ok || srcURL == "" {
		writeError(c, apierr.New(apierr.NotFound, "no track with a thumbnail is currently playing"))
		return
	}

	png, err := h.deps.Thumbnail.FetchPNG(c.Request.Context(), srcURL, cover)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// writeError translates an apierr.Error (or any error) into a JSON error
// response with the appropriate status code.
func writeError(c *gin.Context, err error) {
	if apiErr, ok := apierr.As(err); ok {
		c.JSON(apiErr.Status(), gin.H{"error": apiErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
