package bus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRunsHandlersInRegistrationOrder(t *testing.T) {
	b := New()

	var got []int
	b.Subscribe(TopicOrdersChanged, func(Topic) { got = append(got, 1) })
	b.Subscribe(TopicOrdersChanged, func(Topic) { got = append(got, 2) })
	b.Subscribe(TopicOrdersChanged, func(Topic) { got = append(got, 3) })

	b.Publish(TopicOrdersChanged)
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestPublishIsSynchronous(t *testing.T) {
	b := New()

	seen := false
	b.Subscribe(TopicMenuChanged, func(Topic) { seen = true })

	b.Publish(TopicMenuChanged)
	require.True(t, seen)
}

func TestPublishOnlyMatchingTopic(t *testing.T) {
	b := New()

	calls := 0
	b.Subscribe(TopicOrdersChanged, func(Topic) { calls++ })

	b.Publish(TopicMenuChanged)
	require.Zero(t, calls)

	b.Publish(TopicOrdersChanged)
	require.Equal(t, 1, calls)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()

	calls := 0
	sub := b.Subscribe(TopicOrdersChanged, func(Topic) { calls++ })

	b.Publish(TopicOrdersChanged)
	sub.Unsubscribe()
	b.Publish(TopicOrdersChanged)

	require.Equal(t, 1, calls)
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	b := New()

	sub := b.Subscribe(TopicOrdersChanged, func(Topic) {})
	sub.Unsubscribe()
	require.NotPanics(t, func() { sub.Unsubscribe() })
}

func TestUnsubscribeKeepsOtherSubscribers(t *testing.T) {
	b := New()

	var got []string
	first := b.Subscribe(TopicSettingsChanged, func(Topic) { got = append(got, "first") })
	b.Subscribe(TopicSettingsChanged, func(Topic) { got = append(got, "second") })

	first.Unsubscribe()
	b.Publish(TopicSettingsChanged)

	require.Equal(t, []string{"second"}, got)
}

func TestPublishNoSubscribersDoesNotPanic(t *testing.T) {
	b := New()
	require.NotPanics(t, func() { b.Publish(TopicStorageFull) })
}
