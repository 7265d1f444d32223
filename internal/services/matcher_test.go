package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitwatch/journey-alert-backend/internal/models"
)

type fakeSubscriptionList struct {
	subs []models.Subscription
}

func (f *fakeSubscriptionList) GetMonitorable() ([]models.Subscription, error) {
	return f.subs, nil
}

type fakeDisruptionFeed struct {
	mu          sync.Mutex
	disruptions []models.Disruption
	calls       int
}

func (f *fakeDisruptionFeed) ListDisruptions(ctx context.Context, lineIDs []string) ([]models.Disruption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.disruptions, nil
}

func (f *fakeDisruptionFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingDispatcher struct {
	mu     sync.Mutex
	alerts []uuid.UUID
	fail   bool
}

func (d *recordingDispatcher) SendAlert(ctx context.Context, subscriptionID uuid.UUID, disruptions []models.Disruption) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("gateway down")
	}
	d.alerts = append(d.alerts, subscriptionID)
	return nil
}

func (d *recordingDispatcher) sent() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.alerts)
}

func alwaysActiveWindow() models.ActiveWindow {
	return models.ActiveWindow{
		Days: []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		Start:    "00:00",
		End:      "23:59",
		Timezone: "UTC",
	}
}

func centralSubscription(windows ...models.ActiveWindow) models.Subscription {
	return models.Subscription{
		ID: uuid.New(),
		Legs: models.LegList{
			{StationID: "X", LineID: strPtr("central")},
			{StationID: "Y", LineID: strPtr("central")},
			{StationID: "Z", LineID: nil},
		},
		Windows: models.WindowList(windows),
	}
}

func newTestEngine(subs *fakeSubscriptionList, disruptionFeed *fakeDisruptionFeed, dispatcher *recordingDispatcher) *MatchingEngine {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewMatchingEngine(subs, disruptionFeed, NewDedupStore(), dispatcher, 4, logger)
}

func TestProcessAllHappyPath(t *testing.T) {
	sub := centralSubscription(alwaysActiveWindow())
	subs := &fakeSubscriptionList{subs: []models.Subscription{sub}}
	disruptionFeed := &fakeDisruptionFeed{disruptions: []models.Disruption{
		{LineID: "central", SeverityCode: 9, SeverityDescription: "Minor Delays", AffectedStationIDs: []string{"Y"}},
	}}
	dispatcher := &recordingDispatcher{}
	engine := newTestEngine(subs, disruptionFeed, dispatcher)

	report, err := engine.ProcessAll(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.AlertsSent)
	assert.Equal(t, 0, report.Errors)
	assert.Equal(t, 1, dispatcher.sent())
}

func TestProcessAllOutOfWindow(t *testing.T) {
	// Window 09:00-10:00, evaluated at 12:00 local: checked increments but no
	// disruption fetch happens at all
	sub := centralSubscription(models.ActiveWindow{
		Days: []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		Start:    "09:00",
		End:      "10:00",
		Timezone: "UTC",
	})
	subs := &fakeSubscriptionList{subs: []models.Subscription{sub}}
	disruptionFeed := &fakeDisruptionFeed{disruptions: []models.Disruption{
		{LineID: "central", SeverityCode: 9, SeverityDescription: "Minor Delays"},
	}}
	dispatcher := &recordingDispatcher{}
	engine := newTestEngine(subs, disruptionFeed, dispatcher)

	noon := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	report, err := engine.ProcessAll(context.Background(), noon)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 0, report.AlertsSent)
	assert.Equal(t, 0, disruptionFeed.callCount())
}

func TestProcessAllDedupStability(t *testing.T) {
	sub := centralSubscription(alwaysActiveWindow())
	subs := &fakeSubscriptionList{subs: []models.Subscription{sub}}
	disruptionFeed := &fakeDisruptionFeed{disruptions: []models.Disruption{
		{LineID: "central", SeverityCode: 9, SeverityDescription: "Minor Delays", Reason: "signal failure", AffectedStationIDs: []string{"Y"}},
	}}
	dispatcher := &recordingDispatcher{}
	engine := newTestEngine(subs, disruptionFeed, dispatcher)

	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	// Two passes with unchanged disruption content: exactly one alert
	_, err := engine.ProcessAll(context.Background(), now)
	require.NoError(t, err)
	_, err = engine.ProcessAll(context.Background(), now.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, dispatcher.sent())

	// Changing the reason changes the content hash and re-alerts
	disruptionFeed.mu.Lock()
	disruptionFeed.disruptions[0].Reason = "points failure"
	disruptionFeed.mu.Unlock()

	_, err = engine.ProcessAll(context.Background(), now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, dispatcher.sent())
}

func TestProcessAllDispatchFailureRetries(t *testing.T) {
	sub := centralSubscription(alwaysActiveWindow())
	subs := &fakeSubscriptionList{subs: []models.Subscription{sub}}
	disruptionFeed := &fakeDisruptionFeed{disruptions: []models.Disruption{
		{LineID: "central", SeverityCode: 6, SeverityDescription: "Severe Delays", AffectedStationIDs: []string{"X"}},
	}}
	dispatcher := &recordingDispatcher{fail: true}
	engine := newTestEngine(subs, disruptionFeed, dispatcher)

	now := time.Now().UTC()
	report, err := engine.ProcessAll(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 0, report.AlertsSent)

	// No dedup record was written, so the next pass retries the alert
	dispatcher.mu.Lock()
	dispatcher.fail = false
	dispatcher.mu.Unlock()

	report, err = engine.ProcessAll(context.Background(), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, report.AlertsSent)
	assert.Equal(t, 0, report.Errors)
}

func TestMatchFineGrained(t *testing.T) {
	sub := centralSubscription(alwaysActiveWindow())

	t.Run("Affected Station On Journey", func(t *testing.T) {
		result := Match(&sub, []models.Disruption{
			{LineID: "central", SeverityCode: 9, SeverityDescription: "Minor Delays", AffectedStationIDs: []string{"Y"}},
		})
		require.Len(t, result.Disruptions, 1)
		assert.Equal(t, []string{"Y"}, result.AffectedStations)
	})

	t.Run("Terminal Station Matches Via Arriving Line", func(t *testing.T) {
		result := Match(&sub, []models.Disruption{
			{LineID: "central", SeverityCode: 9, SeverityDescription: "Minor Delays", AffectedStationIDs: []string{"Z"}},
		})
		require.Len(t, result.Disruptions, 1)
		assert.Equal(t, []string{"Z"}, result.AffectedStations)
	})

	t.Run("Wrong Line Does Not Match", func(t *testing.T) {
		result := Match(&sub, []models.Disruption{
			{LineID: "victoria", SeverityCode: 9, SeverityDescription: "Minor Delays", AffectedStationIDs: []string{"Y"}},
		})
		assert.Empty(t, result.Disruptions)
	})

	t.Run("Off Journey Station Does Not Match", func(t *testing.T) {
		result := Match(&sub, []models.Disruption{
			{LineID: "central", SeverityCode: 9, SeverityDescription: "Minor Delays", AffectedStationIDs: []string{"W"}},
		})
		assert.Empty(t, result.Disruptions)
	})
}

func TestMatchLineLevelFallback(t *testing.T) {
	sub := centralSubscription(alwaysActiveWindow())

	// No station detail: every subscription riding the line matches
	result := Match(&sub, []models.Disruption{
		{LineID: "central", SeverityCode: 4, SeverityDescription: "Part Suspended"},
	})
	require.Len(t, result.Disruptions, 1)
	assert.Empty(t, result.AffectedStations)
}

func TestContentHashStability(t *testing.T) {
	a := []models.Disruption{
		{LineID: "central", SeverityDescription: "Minor Delays", Reason: "signal failure"},
		{LineID: "victoria", SeverityDescription: "Severe Delays", Reason: "flooding"},
	}
	b := []models.Disruption{
		{LineID: "victoria", SeverityDescription: "Severe Delays", Reason: "flooding"},
		{LineID: "central", SeverityDescription: "Minor Delays", Reason: "signal failure"},
	}

	assert.Equal(t, contentHash(a), contentHash(b), "hash must not depend on ordering")

	b[0].Reason = "planned works"
	assert.NotEqual(t, contentHash(a), contentHash(b))
}
