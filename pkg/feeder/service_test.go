package feeder

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	compressed bool
}

func (d fakeDriver) Name() string                      { return "fake" }
func (d fakeDriver) URL() string                       { return "wss://example.com/ws" }
func (d fakeDriver) SubscribeMessage() ([]byte, error) { return []byte(`{"op":"subscribe"}`), nil }
func (d fakeDriver) PingMessage() ([]byte, bool)       { return nil, false }
func (d fakeDriver) Compressed() bool                  { return d.compressed }

func (d fakeDriver) ControlReply(msg []byte) ([]byte, bool) {
	var ping struct {
		Ping int64 `json:"ping"`
	}
	if err := json.Unmarshal(msg, &ping); err != nil || ping.Ping == 0 {
		return nil, false
	}
	reply, _ := json.Marshal(map[string]int64{"pong": ping.Ping})
	return reply, true
}

func (d fakeDriver) Parse(msg []byte) Event {
	var quote struct {
		Bid float64 `json:"bid"`
	}
	if err := json.Unmarshal(msg, &quote); err != nil || quote.Bid == 0 {
		return nil
	}
	return QuoteEvent{
		Source:     d.Name(),
		Bid:        decimal.NewFromFloat(quote.Bid),
		ObservedAt: time.Now(),
	}
}

func gzipped(t *testing.T, payload string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestHandleMessageForwardsParsedEvent(t *testing.T) {
	eventChan := make(chan Event, 1)
	svc := NewService(Opts{Driver: fakeDriver{}, EventChan: eventChan})

	_, isReply := svc.handleMessage([]byte(`{"bid":50000.5}`))
	require.False(t, isReply)

	event := <-eventChan
	quote, ok := event.(QuoteEvent)
	require.True(t, ok)
	require.Equal(t, "fake", quote.SourceID())
	require.True(t, quote.Bid.Equal(decimal.NewFromFloat(50000.5)))
}

func TestHandleMessageInflatesCompressedFrames(t *testing.T) {
	eventChan := make(chan Event, 1)
	svc := NewService(Opts{
		Driver:    fakeDriver{compressed: true},
		EventChan: eventChan,
	})

	svc.handleMessage(gzipped(t, `{"bid":50000.5}`))

	require.Len(t, eventChan, 1)
}

func TestHandleMessageAnswersControlFrames(t *testing.T) {
	eventChan := make(chan Event, 1)
	svc := NewService(Opts{Driver: fakeDriver{}, EventChan: eventChan})

	reply, isReply := svc.handleMessage([]byte(`{"ping":42}`))
	require.True(t, isReply)
	require.JSONEq(t, `{"pong":42}`, string(reply))
	require.Empty(t, eventChan)
}

func TestHandleMessageDropsMalformedFrames(t *testing.T) {
	eventChan := make(chan Event, 1)
	svc := NewService(Opts{Driver: fakeDriver{}, EventChan: eventChan})

	_, isReply := svc.handleMessage([]byte(`not json`))
	require.False(t, isReply)
	require.Empty(t, eventChan)
}

func TestHandleMessageNeverBlocksOnFullQueue(t *testing.T) {
	eventChan := make(chan Event, 1)
	svc := NewService(Opts{Driver: fakeDriver{}, EventChan: eventChan})

	svc.handleMessage([]byte(`{"bid":1}`))

	done := make(chan struct{})
	go func() {
		svc.handleMessage([]byte(`{"bid":2}`))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handleMessage blocked on a full event queue")
	}
	require.Len(t, eventChan, 1)
}
