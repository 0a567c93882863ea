package ws

import (
	"testing"

	"github.com/pricepulse-network/pricepulse-daemon/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesEveryConnectedSubscriber(t *testing.T) {
	svc := NewService(ServiceOpts{Port: 0})

	subs := make([]*subscriber, 3)
	for i := range subs {
		subs[i] = newSubscriber(nil)
		svc.hub.add(subs[i])
	}
	require.Equal(t, 3, svc.NumSubscribers())

	svc.PublishTick(domain.NewNormalTick(decimal.NewFromFloat(50000.5)))

	var first []byte
	for i, sub := range subs {
		select {
		case payload := <-sub.sendChan:
			if i == 0 {
				first = payload
			} else {
				require.Equal(t, first, payload, "fan-out output differs per subscriber")
			}
			require.JSONEq(t, `{"kind":"normal","price":"50000.5"}`, string(payload))
		default:
			t.Fatalf("subscriber %d received nothing", i)
		}
	}
}

func TestLateSubscriberGetsNoReplay(t *testing.T) {
	svc := NewService(ServiceOpts{Port: 0})

	early := newSubscriber(nil)
	svc.hub.add(early)

	svc.PublishTick(domain.NewNormalTick(decimal.NewFromInt(50000)))

	late := newSubscriber(nil)
	svc.hub.add(late)

	require.Len(t, early.sendChan, 1)
	require.Empty(t, late.sendChan)
}

func TestPublishToEmptyHubIsNoOp(t *testing.T) {
	svc := NewService(ServiceOpts{Port: 0})
	require.Equal(t, 0, svc.NumSubscribers())

	require.NotPanics(t, func() {
		svc.PublishTick(domain.NewNormalTick(decimal.NewFromInt(50000)))
	})
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	svc := NewService(ServiceOpts{Port: 0})

	slow := newSubscriber(nil)
	svc.hub.add(slow)

	for i := 0; i < sendQueueSize; i++ {
		require.True(t, slow.send([]byte("x")))
	}
	require.False(t, slow.send([]byte("overflow")))

	// A full queue must not stall the publish path either.
	svc.PublishTick(domain.NewNormalTick(decimal.NewFromInt(50000)))
	require.Len(t, slow.sendChan, sendQueueSize)
}

func TestDisconnectedSubscriberLeavesTheSet(t *testing.T) {
	svc := NewService(ServiceOpts{Port: 0})

	sub := newSubscriber(nil)
	svc.hub.add(sub)
	require.Equal(t, 1, svc.NumSubscribers())

	svc.hub.remove(sub.id)
	require.Equal(t, 0, svc.NumSubscribers())

	svc.PublishTick(domain.NewNormalTick(decimal.NewFromInt(50000)))
	require.Empty(t, sub.sendChan)
}

func TestSyntheticTickCarriesDirection(t *testing.T) {
	svc := NewService(ServiceOpts{Port: 0})

	sub := newSubscriber(nil)
	svc.hub.add(sub)

	svc.PublishTick(domain.NewSyntheticTick(
		decimal.NewFromInt(50001), domain.DirectionBuy,
	))

	payload := <-sub.sendChan
	require.JSONEq(t, `{"kind":"synthetic","price":"50001","direction":"buy"}`, string(payload))
}
