package bus

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/frontmesh/crossbus/internal/models"
)

func testNotification(t *testing.T, target string) Notification {
	t.Helper()
	return Notification{
		Record: models.Record{
			ID:      "rec-" + target,
			Source:  "shell",
			Target:  target,
			Type:    "default",
			Payload: json.RawMessage(`"hi"`),
		},
	}
}

func TestSubscriberObservesExactlyOnce(t *testing.T) {
	b := NewBroker()

	count := 0
	cancel := b.Subscribe("one", func(n Notification) {
		count++
	})
	defer cancel()

	delivered := b.Publish(testNotification(t, "one"))
	if delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}
	if count != 1 {
		t.Fatalf("subscriber observed %d times, want exactly 1", count)
	}
}

func TestSubscriberNotNotifiedForOtherTargets(t *testing.T) {
	b := NewBroker()

	var forOne, forTwo int
	defer b.Subscribe("one", func(Notification) { forOne++ })()
	defer b.Subscribe("two", func(Notification) { forTwo++ })()

	b.Publish(testNotification(t, "one"))

	if forOne != 1 {
		t.Fatalf("subscriber for one observed %d times, want 1", forOne)
	}
	if forTwo != 0 {
		t.Fatalf("subscriber for two observed %d times, want 0", forTwo)
	}
}

func TestLateSubscriberMissesEarlierPublish(t *testing.T) {
	b := NewBroker()

	b.Publish(testNotification(t, "one"))

	count := 0
	defer b.Subscribe("one", func(Notification) { count++ })()

	if count != 0 {
		t.Fatal("late subscriber must not receive earlier notifications")
	}

	b.Publish(testNotification(t, "one"))
	if count != 1 {
		t.Fatalf("late subscriber observed %d after subscribing, want 1", count)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()

	count := 0
	cancel := b.Subscribe("one", func(Notification) { count++ })

	b.Publish(testNotification(t, "one"))
	cancel()
	cancel() // idempotent
	b.Publish(testNotification(t, "one"))

	if count != 1 {
		t.Fatalf("expected 1 delivery before cancel, got %d", count)
	}
	if b.SubscriberCount("one") != 0 {
		t.Fatal("subscriber still registered after cancel")
	}
}

func TestMultipleSubscribersAllNotified(t *testing.T) {
	b := NewBroker()

	counts := make([]int, 3)
	for i := range counts {
		i := i
		defer b.Subscribe("one", func(Notification) { counts[i]++ })()
	}

	delivered := b.Publish(testNotification(t, "one"))
	if delivered != 3 {
		t.Fatalf("expected 3 deliveries, got %d", delivered)
	}
	for i, c := range counts {
		if c != 1 {
			t.Fatalf("subscriber %d observed %d times, want 1", i, c)
		}
	}
}

func TestSubscriberMayUnsubscribeInCallback(t *testing.T) {
	b := NewBroker()

	count := 0
	var cancel func()
	cancel = b.Subscribe("one", func(Notification) {
		count++
		cancel()
	})

	b.Publish(testNotification(t, "one"))
	b.Publish(testNotification(t, "one"))

	if count != 1 {
		t.Fatalf("expected 1 delivery, got %d", count)
	}
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	b := NewBroker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cancel := b.Subscribe("one", func(Notification) {})
			cancel()
		}()
		go func() {
			defer wg.Done()
			b.Publish(testNotification(t, "one"))
		}()
	}
	wg.Wait()
}
