package metrics

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounters(t *testing.T) {
	c := New()
	c.RecordTick(2 * time.Millisecond)
	c.RecordTick(4 * time.Millisecond)
	c.RecordClick()
	c.RecordPurchase(true)
	c.RecordPurchase(false)
	c.RecordPurchase(false)
	c.RecordBonus(true)
	c.RecordSave(time.Millisecond, nil)
	c.RecordSave(time.Millisecond, errors.New("disk full"))
	c.RecordEconomy(12.5, 3, 40)

	snap := c.Snapshot()
	tick := snap["tick"].(map[string]interface{})
	assert.Equal(t, int64(2), tick["count"])
	assert.InDelta(t, 3.0, tick["avg_latency_ms"], 1e-9)
	assert.InDelta(t, 4.0, tick["max_latency_ms"], 1e-9)

	actions := snap["actions"].(map[string]interface{})
	assert.Equal(t, int64(1), actions["purchases"])
	assert.Equal(t, int64(2), actions["purchases_rejected"])

	saves := snap["saves"].(map[string]interface{})
	assert.Equal(t, int64(2), saves["count"])
	assert.Equal(t, int64(1), saves["errors"])

	economy := snap["economy"].(map[string]interface{})
	assert.Equal(t, 12.5, economy["currency"])
}

func TestRecordDrink(t *testing.T) {
	c := New()
	c.RecordDrink(250)
	c.RecordDrink(600)
	c.RecordDrink(0)
	c.RecordPackSold()

	tour := c.Snapshot()["tournament"].(map[string]interface{})
	assert.Equal(t, int64(2), tour["drinks"])
	assert.Equal(t, int64(850), tour["drunk_ml"])
	assert.Equal(t, int64(1), tour["drinks_rejected"])
	assert.Equal(t, int64(1), tour["packs_sold"])

	rec := httptest.NewRecorder()
	c.PrometheusHandler()(rec, httptest.NewRequest("GET", "/metrics/prometheus", nil))
	assert.Contains(t, rec.Body.String(), "beer_tournament_drunk_ml_total 850")
}

func TestHandlers(t *testing.T) {
	c := New()
	c.RecordPurchase(true)
	c.RecordWSMessage(true)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "actions")

	rec = httptest.NewRecorder()
	c.PrometheusHandler()(rec, httptest.NewRequest("GET", "/metrics/prometheus", nil))
	out := rec.Body.String()
	assert.Contains(t, out, `beer_purchases_total{result="ok"} 1`)
	assert.Contains(t, out, `beer_ws_messages_total{direction="in"} 1`)
	assert.Contains(t, out, "# TYPE beer_currency gauge")
}
