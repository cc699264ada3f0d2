// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// getCounterValue extracts the value from a Prometheus counter.
func getCounterValue(counter prometheus.Counter) float64 {
	var m io_prometheus_client.Metric
	if err := counter.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// getGaugeValue extracts the value from a Prometheus gauge.
func getGaugeValue(gauge prometheus.Gauge) float64 {
	var m io_prometheus_client.Metric
	if err := gauge.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func TestRecordBookOperation(t *testing.T) {
	counter := BookOperationsTotal.WithLabelValues("create")
	before := getCounterValue(counter)

	RecordBookOperation("create")

	if after := getCounterValue(counter); after != before+1 {
		t.Errorf("expected counter to increase by 1, got %f -> %f", before, after)
	}
}

func TestSessionLifecycleGauge(t *testing.T) {
	gauge := RealtimeSessionsActive.WithLabelValues("polling")
	before := getGaugeValue(gauge)

	RecordSessionOpened("polling")
	if v := getGaugeValue(gauge); v != before+1 {
		t.Errorf("expected gauge %f after open, got %f", before+1, v)
	}

	RecordSessionClosed("polling")
	if v := getGaugeValue(gauge); v != before {
		t.Errorf("expected gauge %f after close, got %f", before, v)
	}
}

func TestRecordUpgradeMovesGauge(t *testing.T) {
	polling := RealtimeSessionsActive.WithLabelValues("polling")
	websocket := RealtimeSessionsActive.WithLabelValues("websocket")

	RecordSessionOpened("polling")
	pollingBefore := getGaugeValue(polling)
	wsBefore := getGaugeValue(websocket)

	RecordUpgrade("polling", "websocket")

	if v := getGaugeValue(polling); v != pollingBefore-1 {
		t.Errorf("expected polling gauge to decrease, got %f -> %f", pollingBefore, v)
	}
	if v := getGaugeValue(websocket); v != wsBefore+1 {
		t.Errorf("expected websocket gauge to increase, got %f -> %f", wsBefore, v)
	}
	RecordSessionClosed("websocket")
}

func TestRecordBroadcast(t *testing.T) {
	counter := WebsocketMessagesTotal.WithLabelValues("book:created", "sent")
	before := getCounterValue(counter)

	RecordBroadcast("book:created", 7)

	if after := getCounterValue(counter); after != before+1 {
		t.Errorf("expected message counter to increase, got %f -> %f", before, after)
	}
}

func TestMetricNamesMatchDashboardContract(t *testing.T) {
	want := map[string]prometheus.Collector{
		"http_requests_total":          HTTPRequestsTotal,
		"book_operations_total":        BookOperationsTotal,
		"websocket_connections_active": RealtimeSessionsActive,
		"websocket_messages_total":     WebsocketMessagesTotal,
	}

	for name, collector := range want {
		descs := make(chan *prometheus.Desc, 1)
		collector.Describe(descs)
		desc := (<-descs).String()
		if !strings.Contains(desc, `fqName: "`+name+`"`) {
			t.Errorf("collector for %s describes as %s", name, desc)
		}
	}
}

func TestRecordStoreOperationError(t *testing.T) {
	errCounter := StoreOperationErrors.WithLabelValues("get", "book")
	before := getCounterValue(errCounter)

	RecordStoreOperation("get", "book", 2*time.Millisecond, errors.New("boom"))
	RecordStoreOperation("get", "book", 2*time.Millisecond, nil)

	if after := getCounterValue(errCounter); after != before+1 {
		t.Errorf("expected exactly one error recorded, got %f -> %f", before, after)
	}
}

func TestRecordAuthAttempt(t *testing.T) {
	success := AuthAttemptsTotal.WithLabelValues("login", "success")
	failure := AuthAttemptsTotal.WithLabelValues("login", "failure")
	sBefore := getCounterValue(success)
	fBefore := getCounterValue(failure)

	RecordAuthAttempt("login", true)
	RecordAuthAttempt("login", false)

	if v := getCounterValue(success); v != sBefore+1 {
		t.Errorf("expected success counter +1, got %f -> %f", sBefore, v)
	}
	if v := getCounterValue(failure); v != fBefore+1 {
		t.Errorf("expected failure counter +1, got %f -> %f", fBefore, v)
	}
}
