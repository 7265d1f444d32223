package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitwatch/journey-alert-backend/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	client := NewClient(config.FeedConfig{
		BaseURL:            server.URL,
		Timeout:            5 * time.Second,
		TopologyCacheTTL:   time.Hour,
		DisruptionCacheTTL: 2 * time.Minute,
	}, logger)

	return client, server
}

func TestListLines(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Line/Mode/tube,dlr", r.URL.Path)
		w.Write([]byte(`[
			{"id": "central", "name": "Central", "modeName": "tube"},
			{"id": "", "name": "broken"},
			{"id": "dlr", "name": "DLR", "modeName": "dlr"}
		]`))
	}))

	lines, err := client.ListLines(context.Background(), []string{"tube", "dlr"})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, Line{ID: "central", Name: "Central", Mode: "tube"}, lines[0])
	assert.Equal(t, Line{ID: "dlr", Name: "DLR", Mode: "dlr"}, lines[1])
}

func TestListStations(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Line/central/StopPoints", r.URL.Path)
		assert.Equal(t, "tflOperatedNationalRailStationsOnly=false", r.URL.RawQuery)
		w.Write([]byte(`[
			{"naptanId": "940GZZLUBND", "commonName": "Bond Street", "lat": 51.5, "lon": -0.15,
			 "modes": ["tube"], "hubNaptanCode": "HUBBDS", "hubName": "Bond Street Hub"},
			{"id": "fallback-id", "commonName": "Fallback", "modes": ["tube"]},
			{"commonName": "No ID At All"}
		]`))
	}))

	stations, err := client.ListStations(context.Background(), "central", true)
	require.NoError(t, err)
	require.Len(t, stations, 2)

	assert.Equal(t, "940GZZLUBND", stations[0].ID)
	assert.Equal(t, "Bond Street", stations[0].Name)
	require.NotNil(t, stations[0].HubCode)
	assert.Equal(t, "HUBBDS", *stations[0].HubCode)

	// naptanId missing: the secondary id field is used
	assert.Equal(t, "fallback-id", stations[1].ID)
	assert.Nil(t, stations[1].HubCode)
}

func TestGetRouteSequence(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Line/central/Route/Sequence/inbound", r.URL.Path)
		w.Write([]byte(`{
			"lineId": "central",
			"direction": "inbound",
			"orderedLineRoutes": [
				{"name": "A to C", "serviceType": "Regular", "naptanIds": ["A", "B", "C"]},
				{"name": "Empty", "serviceType": "Regular", "naptanIds": []},
				{"name": "Untyped", "naptanIds": ["A", "B"]}
			]
		}`))
	}))

	sequence, err := client.GetRouteSequence(context.Background(), "central", "inbound")
	require.NoError(t, err)
	require.Len(t, sequence.Variants, 2)
	assert.Equal(t, RouteVariant{Name: "A to C", ServiceType: "Regular", StationIDs: []string{"A", "B", "C"}}, sequence.Variants[0])
	assert.Equal(t, "", sequence.Variants[1].ServiceType)
}

func TestListDisruptions(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Line/central,victoria/Status", r.URL.Path)
		assert.Equal(t, "detail=true", r.URL.RawQuery)
		w.Write([]byte(`[
			{"id": "central", "lineStatuses": [
				{"statusSeverity": 10, "statusSeverityDescription": "Good Service"},
				{"statusSeverity": 9, "statusSeverityDescription": "Minor Delays",
				 "reason": "signal failure",
				 "affectedRoutes": [
					{"routeSectionNaptanEntrySequence": [
						{"stopPoint": {"naptanId": "A"}},
						{"stopPoint": {"naptanId": "B"}},
						{"stopPoint": null},
						{"stopPoint": {"naptanId": "A"}}
					]}
				 ]}
			]},
			{"id": "victoria", "lineStatuses": [
				{"statusSeverity": 6, "statusSeverityDescription": "Severe Delays"}
			]}
		]`))
	}))

	disruptions, err := client.ListDisruptions(context.Background(), []string{"central", "victoria"})
	require.NoError(t, err)
	require.Len(t, disruptions, 2)

	assert.Equal(t, "central", disruptions[0].LineID)
	assert.Equal(t, 9, disruptions[0].SeverityCode)
	assert.Equal(t, "signal failure", disruptions[0].Reason)
	assert.Equal(t, []string{"A", "B"}, disruptions[0].AffectedStationIDs)

	assert.Equal(t, "victoria", disruptions[1].LineID)
	assert.Empty(t, disruptions[1].AffectedStationIDs)
	assert.False(t, disruptions[1].HasStationDetail())
}

func TestListDisruptionsNoLines(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty line set")
	}))

	disruptions, err := client.ListDisruptions(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, disruptions)
}

func TestClientCachesResponses(t *testing.T) {
	var hits atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`[{"id": "central", "name": "Central", "modeName": "tube"}]`))
	}))

	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	_, err := client.ListLines(context.Background(), []string{"tube"})
	require.NoError(t, err)
	_, err = client.ListLines(context.Background(), []string{"tube"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), hits.Load(), "second call must be served from cache")

	// Past the topology TTL the feed is hit again
	now = now.Add(2 * time.Hour)
	_, err = client.ListLines(context.Background(), []string{"tube"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestClientErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.ListLines(context.Background(), []string{"tube"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
