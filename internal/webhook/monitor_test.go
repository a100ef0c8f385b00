package webhook

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sourcish/ServiceNow-Agent/internal/logging"
)

func TestMonitorPublishWithoutSubscribers(t *testing.T) {
	m := NewMonitor(logging.New(nil, "silent"))
	// Must return immediately; dispatch never waits on the monitor.
	m.Publish("activity", map[string]any{"type": "message"})
	assert.Equal(t, 0, m.Subscribers())
}

func TestMonitorDeliversFrames(t *testing.T) {
	m := NewMonitor(logging.New(nil, "silent"))
	ch := m.Subscribe()
	defer m.Unsubscribe(ch)

	m.Publish("session", map[string]any{"conversation": "conv-1"})

	select {
	case frame := <-ch:
		var evt MonitorEvent
		require.NoError(t, json.Unmarshal(frame, &evt))
		assert.Equal(t, "session", evt.Event)
		assert.Equal(t, int64(1), evt.Seq)
		assert.Equal(t, "conv-1", evt.Data["conversation"])
		assert.False(t, evt.Time.IsZero())
	case <-time.After(time.Second):
		t.Fatal("frame never arrived")
	}
}

func TestMonitorDropsWhenSubscriberStalls(t *testing.T) {
	m := NewMonitor(logging.New(nil, "silent"))
	ch := m.Subscribe()
	defer m.Unsubscribe(ch)

	// Nobody drains ch; publishing past the buffer must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < monitorBuffer+16; i++ {
			m.Publish("activity", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a stalled subscriber")
	}
	assert.Len(t, ch, monitorBuffer)
}

func TestMonitorUnsubscribeStopsDelivery(t *testing.T) {
	m := NewMonitor(logging.New(nil, "silent"))
	ch := m.Subscribe()
	require.Equal(t, 1, m.Subscribers())

	m.Unsubscribe(ch)
	assert.Equal(t, 0, m.Subscribers())
	m.Publish("activity", nil)
	assert.Empty(t, ch)
}

func TestDebugEventsDisabled(t *testing.T) {
	_, ts := testServer(t, testConfig(), WithRuntime(&fakeRuntime{}))

	resp, err := http.Get(ts.URL + "/debug/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDebugEventsRejectsBadToken(t *testing.T) {
	cfg := testConfig()
	cfg.Debug.Events = true
	cfg.Debug.Token = "tail-token"
	m := NewMonitor(logging.New(nil, "silent"))
	_, ts := testServer(t, cfg, WithRuntime(&fakeRuntime{}), WithMonitor(m))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/debug/events?token=wrong"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil) //nolint:bodyclose
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDebugEventsStreamsDispatch(t *testing.T) {
	cfg := testConfig()
	cfg.Debug.Events = true
	cfg.Debug.Token = "tail-token"
	m := NewMonitor(logging.New(nil, "silent"))
	rt := &fakeRuntime{streamReply: "On it."}
	_, ts := testServer(t, cfg, WithRuntime(rt), WithMonitor(m))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/debug/events?token=tail-token"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The handshake returns before the handler attaches the subscriber.
	require.Eventually(t, func() bool { return m.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	postActivity(t, ts, messageActivity)

	var events []string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for i := 0; i < 3; i++ {
		_, frame, err := conn.ReadMessage()
		require.NoError(t, err)
		var evt MonitorEvent
		require.NoError(t, json.Unmarshal(frame, &evt))
		events = append(events, evt.Event)
		if evt.Event == "reply" {
			assert.Equal(t, "conv-1", evt.Data["conversation"])
			assert.Equal(t, float64(len("On it.")), evt.Data["chars"])
		}
	}
	assert.Equal(t, []string{"activity", "session", "reply"}, events)
}

func TestDebugEventsBearerToken(t *testing.T) {
	cfg := testConfig()
	cfg.Debug.Events = true
	cfg.Debug.Token = "tail-token"
	m := NewMonitor(logging.New(nil, "silent"))
	_, ts := testServer(t, cfg, WithRuntime(&fakeRuntime{}), WithMonitor(m))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/debug/events"
	header := http.Header{"Authorization": []string{"Bearer tail-token"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	conn.Close()
}
