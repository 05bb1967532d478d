package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vgnt/transport-portal/internal/feed"
	"github.com/vgnt/transport-portal/internal/models"
)

// BusLocationStore persists the live state of a bus
type BusLocationStore interface {
	UpdateLocation(ctx context.Context, busID string, report models.LocationReport) error
	MarkInactive(ctx context.Context, busID string) error
}

// BusLocationSink writes reports to the store and announces them on the feed
type BusLocationSink struct {
	busID string
	store BusLocationStore
	feed  feed.Feed
	now   func() time.Time
}

// NewBusLocationSink creates a BusLocationSink
func NewBusLocationSink(busID string, store BusLocationStore, f feed.Feed) *BusLocationSink {
	return &BusLocationSink{busID: busID, store: store, feed: f, now: time.Now}
}

// DeliverReport implements ReportSink
func (s *BusLocationSink) DeliverReport(ctx context.Context, report models.LocationReport) error {
	if err := s.store.UpdateLocation(ctx, s.busID, report); err != nil {
		return err
	}
	return s.announce(ctx, feed.BusUpdate{BusID: s.busID, Active: true, Location: &report, At: s.now()})
}

// ClearLocation implements ReportSink
func (s *BusLocationSink) ClearLocation(ctx context.Context) error {
	storeErr := s.store.MarkInactive(ctx, s.busID)
	feedErr := s.announce(ctx, feed.BusUpdate{BusID: s.busID, Active: false, At: s.now()})
	return errors.Join(storeErr, feedErr)
}

func (s *BusLocationSink) announce(ctx context.Context, update feed.BusUpdate) error {
	if s.feed == nil {
		return nil
	}
	if err := s.feed.Publish(ctx, update); err != nil {
		return fmt.Errorf("failed to announce bus update: %w", err)
	}
	return nil
}
