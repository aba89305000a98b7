package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.LedgerTransitions.WithLabelValues("fine", "pay").Inc()
	m.NotificationsCreated.WithLabelValues("multa_pagada").Add(2)

	if got := testutil.ToFloat64(m.NotificationsCreated.WithLabelValues("multa_pagada")); got != 2 {
		t.Fatalf("expected 2 got %v", got)
	}

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `condo_ledger_transitions_total{ledger="fine",transition="pay"} 1`) {
		t.Fatalf("expected transition counter in output:\n%s", body)
	}
}
