package jobmetrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/auldata/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewPusherSelectsExporter(t *testing.T) {
	cfg := config.Config{AppName: "auldata-report", Environment: "test"}
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))

	cfg.Metrics = config.MetricsConfig{Exporter: ExporterPrometheusPushgateway}
	assert.Nil(t, NewPusher(cfg, zap.NewNop()), "endpoint is required")

	cfg.Metrics.Endpoint = "http://pushgateway:9091"
	assert.IsType(t, &PushgatewayPusher{}, NewPusher(cfg, zap.NewNop()))

	cfg.Metrics.Exporter = ExporterPrometheusRemoteWrite
	assert.IsType(t, &RemoteWritePusher{}, NewPusher(cfg, zap.NewNop()))

	cfg.Metrics.Exporter = "statsd"
	assert.Nil(t, NewPusher(cfg, zap.NewNop()))
}

func TestRemoteWritePusherSendsSnappyProtobuf(t *testing.T) {
	var got prompb.WriteRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(decoded))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := New(prometheus.NewRegistry(), Config{Environment: "test"})
	m.SetRowsWritten("C", 4)

	p := NewRemoteWritePusher(srv.URL, "token")
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }
	require.NoError(t, p.Push(context.Background(), m.Registry()))

	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer token", headers.Get("Authorization"))

	var found bool
	for _, ts := range got.Timeseries {
		labels := map[string]string{}
		for _, l := range ts.Labels {
			labels[l.Name] = l.Value
		}
		if labels["__name__"] == "auldata_job_rows_written" && labels["node"] == "C" {
			found = true
			require.Len(t, ts.Samples, 1)
			assert.Equal(t, 4.0, ts.Samples[0].Value)
			assert.Equal(t, int64(1700000000000), ts.Samples[0].Timestamp)
		}
	}
	assert.True(t, found)
}

func TestRemoteWritePusherReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	m := New(prometheus.NewRegistry(), Config{})
	m.SetRowsPruned(1)

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), m.Registry())
	assert.ErrorContains(t, err, "502")
}

func TestPushgatewayPusherUsesJobAndGrouping(t *testing.T) {
	var path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		method = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New(prometheus.NewRegistry(), Config{})
	m.SetSubscribers("A", 2)

	p := NewPushgatewayPusher(srv.URL, "auldata-report", map[string]string{"environment": "test", "empty": " "})
	require.NoError(t, p.Push(context.Background(), m.Registry()))

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/auldata-report/environment/test", path)
}

func TestPushgatewayPusherRequiresJob(t *testing.T) {
	err := NewPushgatewayPusher("http://localhost:9091", " ", nil).Push(context.Background(), prometheus.NewRegistry())
	assert.Error(t, err)
}
