package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/location"
	"github.com/vgnt/transport-portal/internal/models"
)

const reportWriteTimeout = 10 * time.Second

// TrackerMetrics receives trip tracker counters
type TrackerMetrics interface {
	FixAccepted()
	FixRejected(reason string)
	GPSError(kind string)
	ReportDelivered(d time.Duration)
	ReportFailed(d time.Duration)
	ReportSuperseded()
	SetTripActive(active bool)
}

// TripEventPublisher announces trip lifecycle changes
type TripEventPublisher interface {
	PublishTripEvent(ctx context.Context, event models.TripEvent) error
}

// TrackerConfig holds the fixed inputs of a TripTracker
type TrackerConfig struct {
	BusID        string
	TerminusName string
	Stops        []models.Stop
	Watch        location.WatchOptions
}

// TrackerSnapshot is a consistent copy of the tracker state
type TrackerSnapshot struct {
	Status     models.GPSStatus       `json:"gps_status"`
	TripID     string                 `json:"trip_id,omitempty"`
	StartedAt  *time.Time             `json:"started_at,omitempty"`
	Stops      []models.ResolvedStop  `json:"stops"`
	LastFix    *location.Fix          `json:"-"`
	LastReport *models.LocationReport `json:"last_report,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// TripTracker runs the driver's trip: it owns the location watch, resolves
// stop progress for every fix and hands reports to the dispatcher.
// The fix callback is the only writer of the resolved stops; HTTP handlers
// read them through Snapshot.
type TripTracker struct {
	cfg     TrackerConfig
	source  location.Source
	sink    ReportSink
	events  TripEventPublisher
	metrics TrackerMetrics
	logger  *logrus.Logger
	now     func() time.Time

	mu         sync.RWMutex
	generation uint64
	status     models.GPSStatus
	tripID     string
	startedAt  time.Time
	resolved   []models.ResolvedStop
	lastFix    *location.Fix
	lastReport *models.LocationReport
	lastErr    string
	sub        location.Subscription
	dispatcher *reportDispatcher
}

// NewTripTracker creates an idle tracker
func NewTripTracker(
	cfg TrackerConfig,
	source location.Source,
	sink ReportSink,
	events TripEventPublisher,
	metrics TrackerMetrics,
	logger *logrus.Logger,
) *TripTracker {
	return &TripTracker{
		cfg:      cfg,
		source:   source,
		sink:     sink,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		status:   models.GPSStatusIdle,
		resolved: InitialProgress(cfg.Stops),
	}
}

// Snapshot returns a copy of the current state
func (t *TripTracker) Snapshot() TrackerSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *TripTracker) snapshotLocked() TrackerSnapshot {
	snap := TrackerSnapshot{
		Status: t.status,
		TripID: t.tripID,
		Stops:  append([]models.ResolvedStop(nil), t.resolved...),
		Error:  t.lastErr,
	}
	if !t.startedAt.IsZero() {
		started := t.startedAt
		snap.StartedAt = &started
	}
	if t.lastFix != nil {
		fix := *t.lastFix
		snap.LastFix = &fix
	}
	if t.lastReport != nil {
		report := *t.lastReport
		report.PerStopStatus = append([]models.StopStatusEntry(nil), t.lastReport.PerStopStatus...)
		snap.LastReport = &report
	}
	return snap
}

// Start begins a trip and acquires the location watch
func (t *TripTracker) Start(ctx context.Context, driver string) (TrackerSnapshot, error) {
	t.mu.Lock()
	if t.status == models.GPSStatusLocating || t.status == models.GPSStatusActive {
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, ErrTripAlreadyActive
	}

	// a trip halted by a GPS error is replaced
	t.releaseLocked()

	t.generation++
	gen := t.generation
	t.status = models.GPSStatusLocating
	t.tripID = uuid.NewString()
	t.startedAt = t.now()
	t.resolved = InitialProgress(t.cfg.Stops)
	t.lastFix = nil
	t.lastReport = nil
	t.lastErr = ""
	t.dispatcher = newReportDispatcher(t.sink, t.metrics, t.logger, reportWriteTimeout)
	tripID := t.tripID
	t.mu.Unlock()

	sub, err := t.source.Watch(t.cfg.Watch,
		func(fix location.Fix) { t.handleFix(gen, fix) },
		func(err error) { t.handleWatchError(gen, err) },
	)
	if err != nil {
		t.handleWatchError(gen, err)
		return t.Snapshot(), fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}

	t.mu.Lock()
	if t.generation != gen {
		// stopped or failed while the watch was starting
		t.mu.Unlock()
		sub.Unsubscribe()
		return t.Snapshot(), nil
	}
	t.sub = sub
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.metrics.SetTripActive(true)
	t.publish(ctx, models.TripEventStarted, tripID, driver, "")
	t.logger.WithFields(logrus.Fields{
		"bus_id":  t.cfg.BusID,
		"trip_id": tripID,
		"driver":  driver,
	}).Info("Trip started")

	return snap, nil
}

// Stop ends the trip, releases the watch and clears the bus location
func (t *TripTracker) Stop(ctx context.Context, driver string) (TrackerSnapshot, error) {
	t.mu.Lock()
	if t.status == models.GPSStatusIdle {
		snap := t.snapshotLocked()
		t.mu.Unlock()
		return snap, ErrNoActiveTrip
	}

	t.generation++
	tripID := t.tripID
	sub, dispatcher := t.sub, t.dispatcher
	t.sub, t.dispatcher = nil, nil
	t.status = models.GPSStatusIdle
	t.tripID = ""
	t.startedAt = time.Time{}
	t.resolved = InitialProgress(t.cfg.Stops)
	t.lastFix = nil
	t.lastReport = nil
	t.lastErr = ""
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	// the last in-flight write must land before the location is cleared
	if dispatcher != nil {
		dispatcher.Stop()
	}

	if err := t.sink.ClearLocation(ctx); err != nil {
		t.logger.WithFields(logrus.Fields{
			"bus_id": t.cfg.BusID,
			"error":  err.Error(),
		}).Warn("Failed to clear bus location")
	}

	t.metrics.SetTripActive(false)
	t.publish(ctx, models.TripEventStopped, tripID, driver, "")
	t.logger.WithFields(logrus.Fields{
		"bus_id":  t.cfg.BusID,
		"trip_id": tripID,
	}).Info("Trip stopped")

	return snap, nil
}

// Close releases the watch on shutdown. It is safe to call when idle.
func (t *TripTracker) Close(ctx context.Context) error {
	if _, err := t.Stop(ctx, ""); err != nil && !errors.Is(err, ErrNoActiveTrip) {
		return err
	}
	return nil
}

// releaseLocked drops the watch and dispatcher of a halted trip
func (t *TripTracker) releaseLocked() {
	if t.sub != nil {
		t.sub.Unsubscribe()
		t.sub = nil
	}
	if t.dispatcher != nil {
		t.dispatcher.Stop()
		t.dispatcher = nil
	}
}

func (t *TripTracker) handleFix(gen uint64, fix location.Fix) {
	t.mu.Lock()
	if t.generation != gen || (t.status != models.GPSStatusLocating && t.status != models.GPSStatusActive) {
		t.mu.Unlock()
		t.metrics.FixRejected("stopped")
		return
	}

	resolved := ResolveStops(fix.Coordinate, t.cfg.Stops)
	report := BuildLocationReport(fix.Coordinate, resolved, t.cfg.TerminusName, t.now())

	t.resolved = resolved
	t.status = models.GPSStatusActive
	t.lastFix = &fix
	t.lastReport = &report
	dispatcher := t.dispatcher
	t.mu.Unlock()

	t.metrics.FixAccepted()
	if dispatcher != nil {
		dispatcher.Offer(report)
	}
}

func (t *TripTracker) handleWatchError(gen uint64, err error) {
	t.mu.Lock()
	if t.generation != gen || t.status == models.GPSStatusIdle || t.status == models.GPSStatusError {
		t.mu.Unlock()
		return
	}

	t.status = models.GPSStatusError
	t.lastErr = err.Error()
	tripID := t.tripID
	sub, dispatcher := t.sub, t.dispatcher
	t.sub, t.dispatcher = nil, nil
	t.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if dispatcher != nil {
		dispatcher.Stop()
	}

	kind := "unavailable"
	if errors.Is(err, location.ErrTimeout) {
		kind = "timeout"
	}
	t.metrics.GPSError(kind)
	t.publish(context.Background(), models.TripEventGPSError, tripID, "", err.Error())
	t.logger.WithFields(logrus.Fields{
		"bus_id":  t.cfg.BusID,
		"trip_id": tripID,
		"error":   err.Error(),
	}).Warn("Location watch failed, tracking halted")
}

func (t *TripTracker) publish(ctx context.Context, eventType models.TripEventType, tripID, driver, reason string) {
	if t.events == nil {
		return
	}
	event := models.TripEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		BusID:      t.cfg.BusID,
		TripID:     tripID,
		Driver:     driver,
		Reason:     reason,
		OccurredAt: t.now(),
	}
	if err := t.events.PublishTripEvent(ctx, event); err != nil {
		t.logger.WithFields(logrus.Fields{
			"event": eventType,
			"error": err.Error(),
		}).Warn("Failed to publish trip event")
	}
}
