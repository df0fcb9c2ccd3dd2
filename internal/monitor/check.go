package monitor

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/AbdullahP/pokealert/internal/metrics"
	"github.com/AbdullahP/pokealert/internal/notify"
	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// check runs one full iteration for a target and records the outcome.
func (m *Monitor) check(ctx context.Context, target domain.TrackedTarget) error {
	start := time.Now()
	err := m.doCheck(ctx, target)
	metrics.CheckDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ChecksTotal.WithLabelValues("error").Inc()
		m.status.RecordFailure(target.ID, err)
		return err
	}
	metrics.ChecksTotal.WithLabelValues("ok").Inc()
	m.status.RecordSuccess(target.ID)
	return nil
}

func (m *Monitor) doCheck(ctx context.Context, target domain.TrackedTarget) error {
	thresholds, err := m.store.ListThresholds(ctx)
	if err != nil {
		m.logger.Warn("loading thresholds failed, screening disabled this pass",
			"error", err)
		thresholds = nil
	}

	if target.Kind == domain.KindCollection {
		return m.checkCollection(ctx, target, thresholds)
	}

	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()
	return m.checkItem(ctx, target.URL, target, thresholds)
}

// checkCollection fetches the collection page, then fans out per-item
// checks under the global concurrency bound. A failing item is logged
// and skipped; the others still complete.
func (m *Monitor) checkCollection(ctx context.Context, target domain.TrackedTarget, thresholds []domain.PriceThreshold) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	res, err := m.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		m.release()
		return fmt.Errorf("fetching collection page: %w", err)
	}
	links, err := m.parser.ExtractProductLinks(res.Body, target.URL)
	m.release()
	if err != nil {
		return fmt.Errorf("parsing collection page: %w", err)
	}

	var wg sync.WaitGroup
	for _, link := range links {
		if err := m.acquire(ctx); err != nil {
			break
		}
		wg.Add(1)
		go func(link string) {
			defer wg.Done()
			defer m.release()
			if err := m.checkItem(ctx, link, target, thresholds); err != nil {
				if ctx.Err() == nil {
					m.logger.Warn("collection item check failed",
						"target_id", target.ID, "url", link, "error", err)
				}
			}
		}(link)
	}
	wg.Wait()
	return ctx.Err()
}

// checkItem runs fetch→parse→filter→detect for one product page and
// publishes any resulting change event.
func (m *Monitor) checkItem(ctx context.Context, pageURL string, target domain.TrackedTarget, thresholds []domain.PriceThreshold) error {
	res, err := m.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return err
	}

	snap, err := m.parser.ParseItem(res.Body, pageURL)
	if err != nil {
		return err
	}
	snap.TargetID = target.ID
	snap.PurchaseURL = cacheBustURL(snap.URL)

	if kept := m.filter.Apply([]*domain.ItemSnapshot{snap}, thresholds); len(kept) == 0 {
		m.logger.Debug("item screened out by price threshold",
			"item_id", snap.ItemID, "price", snap.Price)
		return nil
	}

	event, err := m.detector.Detect(ctx, snap)
	if err != nil {
		return err
	}
	if event == nil {
		return nil
	}
	return m.publish(ctx, event, snap, target)
}

// publish renders the event and hands it to the notification pipeline.
// The event's notified flag flips only after the pipeline accepted it,
// so a failed queue leaves the event visible for a later sweep.
func (m *Monitor) publish(ctx context.Context, event *domain.ChangeEvent, snap *domain.ItemSnapshot, target domain.TrackedTarget) error {
	n := notify.RenderEvent(event, snap, &target)
	if err := m.publisher.Queue(ctx, n); err != nil {
		return fmt.Errorf("queueing notification: %w", err)
	}
	if err := m.store.MarkEventNotified(ctx, event.ID); err != nil {
		return fmt.Errorf("marking event notified: %w", err)
	}
	return nil
}

// cacheBustURL appends timestamp and nonce parameters so the link in a
// notification bypasses CDN caches when clicked.
func cacheBustURL(u string) string {
	return u + "?t=" + strconv.FormatInt(time.Now().Unix(), 10) +
		"&r=" + strconv.Itoa(rand.Intn(1_000_000)) //nolint:gosec // cache noise, not crypto
}
