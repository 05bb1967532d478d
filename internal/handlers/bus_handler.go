package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/dashboard"
	"github.com/vgnt/transport-portal/internal/database"
	"github.com/vgnt/transport-portal/internal/feed"
	"github.com/vgnt/transport-portal/internal/models"
)

const streamKeepAlive = 25 * time.Second

// BusStateReader reads the live bus row
type BusStateReader interface {
	GetState(ctx context.Context, busID string) (*models.BusState, error)
}

// StreamMetrics counts open live streams
type StreamMetrics interface {
	StreamOpened()
	StreamClosed()
}

// BusHandler serves the live bus state to students and management
type BusHandler struct {
	busID   string
	buses   BusStateReader
	feed    feed.Feed
	metrics StreamMetrics
	logger  *logrus.Logger

	done     chan struct{}
	doneOnce sync.Once
}

// NewBusHandler creates a new bus handler
func NewBusHandler(busID string, buses BusStateReader, f feed.Feed, metrics StreamMetrics, logger *logrus.Logger) *BusHandler {
	return &BusHandler{
		busID:   busID,
		buses:   buses,
		feed:    f,
		metrics: metrics,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Shutdown ends every open stream. http.Server.Shutdown does not cancel
// active requests, so it is registered with RegisterOnShutdown.
func (h *BusHandler) Shutdown() {
	h.doneOnce.Do(func() { close(h.done) })
}

// GetState handles GET /api/v1/bus/state
func (h *BusHandler) GetState(c *gin.Context) {
	state, err := h.buses.GetState(c.Request.Context(), h.busID)
	if err != nil && !errors.Is(err, database.ErrBusNotFound) {
		h.logger.WithError(err).Warn("Failed to read bus state")
	}
	c.JSON(http.StatusOK, gin.H{
		"live":  dashboard.NewLiveBus(state),
		"stale": err != nil,
	})
}

// Stream handles GET /api/v1/bus/stream as server-sent events. The feed
// subscription is released when the client goes away or the server shuts down.
func (h *BusHandler) Stream(c *gin.Context) {
	updates := make(chan feed.BusUpdate, 1)
	sub, err := h.feed.Subscribe(h.busID, func(u feed.BusUpdate) {
		// keep only the newest update for a slow client
		select {
		case updates <- u:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- u:
			default:
			}
		}
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to subscribe to bus feed")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "feed_unavailable",
			Message: "Live tracking is unavailable",
		})
		return
	}
	defer sub.Unsubscribe()

	if h.metrics != nil {
		h.metrics.StreamOpened()
		defer h.metrics.StreamClosed()
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	state, err := h.buses.GetState(c.Request.Context(), h.busID)
	if err != nil && !errors.Is(err, database.ErrBusNotFound) {
		h.logger.WithError(err).Warn("Failed to read bus state for stream")
	}
	c.SSEvent("state", dashboard.NewLiveBus(state))
	c.Writer.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-h.done:
			return false
		case u := <-updates:
			c.SSEvent("state", liveFromUpdate(u))
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}

func liveFromUpdate(u feed.BusUpdate) dashboard.LiveBus {
	status := models.BusStatusInactive
	if u.Active {
		status = models.BusStatusActive
	}
	return dashboard.NewLiveBus(&models.BusState{ID: u.BusID, Status: status, CurrentLocation: u.Location})
}
