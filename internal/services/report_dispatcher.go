package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/models"
)

// ReportSink is where location reports end up
type ReportSink interface {
	DeliverReport(ctx context.Context, report models.LocationReport) error
	ClearLocation(ctx context.Context) error
}

// reportDispatcher writes reports in the background, one at a time.
// It holds at most one pending report: a newer report replaces an older one
// that has not been picked up yet, so a slow store never delays fix handling.
type reportDispatcher struct {
	sink    ReportSink
	metrics TrackerMetrics
	logger  *logrus.Logger
	timeout time.Duration

	slot chan models.LocationReport
	quit chan struct{}
	done chan struct{}
}

func newReportDispatcher(sink ReportSink, metrics TrackerMetrics, logger *logrus.Logger, timeout time.Duration) *reportDispatcher {
	d := &reportDispatcher{
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		timeout: timeout,
		slot:    make(chan models.LocationReport, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Offer queues report without blocking. Only one goroutine may call Offer.
func (d *reportDispatcher) Offer(report models.LocationReport) {
	for {
		select {
		case d.slot <- report:
			return
		default:
		}
		select {
		case <-d.slot:
			d.metrics.ReportSuperseded()
		default:
		}
	}
}

// Stop drops any pending report and waits for an in-flight write to finish
func (d *reportDispatcher) Stop() {
	select {
	case <-d.quit:
	default:
		close(d.quit)
	}
	<-d.done
}

func (d *reportDispatcher) run() {
	defer close(d.done)
	for {
		select {
		case <-d.quit:
			return
		case report := <-d.slot:
			select {
			case <-d.quit:
				return
			default:
			}
			d.deliver(report)
		}
	}
}

func (d *reportDispatcher) deliver(report models.LocationReport) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	err := d.sink.DeliverReport(ctx, report)
	elapsed := time.Since(start)

	if err != nil {
		d.metrics.ReportFailed(elapsed)
		d.logger.WithFields(logrus.Fields{
			"next_stop": report.NextStopName,
			"error":     err.Error(),
		}).Warn("Failed to deliver location report")
		return
	}
	d.metrics.ReportDelivered(elapsed)
}
