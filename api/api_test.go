// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakedash/stakedash/api/doc"
	"github.com/stakedash/stakedash/api/stakes"
	"github.com/stakedash/stakedash/api/subscriptions"
	"github.com/stakedash/stakedash/api/utils"
	"github.com/stakedash/stakedash/metrics"
	"github.com/stakedash/stakedash/test/datagen"
	"github.com/stakedash/stakedash/test/testhttp"
	"github.com/stakedash/stakedash/test/teststaker"
)

func init() {
	metrics.InitializePrometheusMetrics()
}

func scrape(t *testing.T, ts *httptest.Server) map[string]*dto.MetricFamily {
	body, status := testhttp.Get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, status)
	parser := expfmt.TextParser{}
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	require.NoError(t, err)
	return families
}

// findMetric returns the metric of the family carrying all the given labels.
func findMetric(family *dto.MetricFamily, labels map[string]string) *dto.Metric {
	if family == nil {
		return nil
	}
	for _, m := range family.GetMetric() {
		matched := 0
		for _, l := range m.GetLabel() {
			if v, ok := labels[l.GetName()]; ok && v == l.GetValue() {
				matched++
			}
		}
		if matched == len(labels) {
			return m
		}
	}
	return nil
}

func TestMetricName(t *testing.T) {
	assert.Equal(t, "stakes_operator_undelegate", metricName("POST /stakes/{operator}/undelegate"))
	assert.Equal(t, "stakes", metricName("POST /stakes"))
	assert.Equal(t, "grants_id", metricName("GET /grants/{id}"))
	assert.Equal(t, "subscriptions_events", metricName("WS /subscriptions/events"))
}

func TestMetricsMiddleware(t *testing.T) {
	env := teststaker.New(t)
	router := mux.NewRouter()
	stakes.New(env.Staker, env.Clock).Mount(router, "/stakes")
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	router.Use(metricsMiddleware)
	ts := httptest.NewServer(router)
	defer ts.Close()

	_, status := testhttp.Get(t, ts.URL+"/stakes/"+datagen.RandAddress().String())
	assert.Equal(t, http.StatusNotFound, status)
	_, status = testhttp.Get(t, ts.URL+"/stakes/0x12")
	assert.Equal(t, http.StatusBadRequest, status)
	_, status = testhttp.Post(t, ts.URL+"/stakes", &stakes.DelegateRequest{
		Operator: datagen.RandAddress(),
		Owner:    datagen.RandAddress(),
		Amount:   utils.Amount(teststaker.StartMinimum),
	})
	assert.Equal(t, http.StatusOK, status)

	families := scrape(t, ts)
	counter := families["stakedash_api_request_count"]
	require.NotNil(t, counter)

	for _, tt := range []struct {
		name, code, method string
	}{
		{"stakes_operator", "404", "GET"},
		{"stakes_operator", "400", "GET"},
		{"stakes", "200", "POST"},
	} {
		m := findMetric(counter, map[string]string{"name": tt.name, "code": tt.code, "method": tt.method})
		require.NotNil(t, m, "%s %s %s", tt.method, tt.name, tt.code)
		assert.Equal(t, float64(1), m.GetCounter().GetValue())
	}

	duration := families["stakedash_api_duration_ms"]
	require.NotNil(t, duration)
	m := findMetric(duration, map[string]string{"name": "stakes", "code": "200", "method": "POST"})
	require.NotNil(t, m)
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}

func TestWebsocketMetrics(t *testing.T) {
	env := teststaker.New(t)
	router := mux.NewRouter()
	subs := subscriptions.New(env.Staker, []string{"*"})
	subs.Mount(router, "/subscriptions")
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	router.Use(metricsMiddleware)
	ts := httptest.NewServer(router)
	defer ts.Close()

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/subscriptions/events"
	conn1, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn1.Close()
	conn2, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)

	gauge := func() float64 {
		m := findMetric(scrape(t, ts)["stakedash_api_active_websocket_count"], map[string]string{"subject": "events"})
		if m == nil {
			return -1
		}
		return m.GetGauge().GetValue()
	}
	require.Eventually(t, func() bool { return gauge() == 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn2.Close())
	require.Eventually(t, func() bool { return gauge() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestNew(t *testing.T) {
	env := teststaker.New(t)
	handler, closer := New(Backend{
		Staker: env.Staker,
		Grants: env.Grants,
		Events: env.Events,
		Clock:  env.Clock,
	}, Options{
		AllowedOrigins: "https://dash.example",
		EventsLimit:    10,
	})
	ts := httptest.NewServer(handler)
	defer ts.Close()
	defer closer()

	t.Run("doc", func(t *testing.T) {
		res, err := http.Get(ts.URL + "/")
		require.NoError(t, err)
		defer res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "/doc/stakedash.yaml", res.Request.URL.Path)
		assert.Equal(t, doc.Version(), res.Header.Get("X-Stakedash-Ver"))
	})

	t.Run("request id", func(t *testing.T) {
		res, err := http.Get(ts.URL + "/schedule")
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.NotEmpty(t, res.Header.Get(requestIDHeader))

		req, err := http.NewRequest(http.MethodGet, ts.URL+"/schedule", nil)
		require.NoError(t, err)
		req.Header.Set(requestIDHeader, "abc")
		res, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, "abc", res.Header.Get(requestIDHeader))
	})

	t.Run("mounted", func(t *testing.T) {
		_, status := testhttp.Get(t, ts.URL+"/events")
		assert.Equal(t, http.StatusOK, status)
		_, status = testhttp.Get(t, ts.URL+"/events?limit=11")
		assert.Equal(t, http.StatusForbidden, status)
		_, status = testhttp.Get(t, ts.URL+"/grants/1")
		assert.Equal(t, http.StatusNotFound, status)
		// no registry
		_, status = testhttp.Get(t, ts.URL+"/groups/0x01")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("cors", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, ts.URL+"/stakes", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "https://dash.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, "https://dash.example", res.Header.Get("Access-Control-Allow-Origin"))
	})
}
