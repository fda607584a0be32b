package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"reviewkit/core"
	"reviewkit/engine"
)

func TestHubSubscribeBroadcastUnsubscribe(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(1, nil)

	ev := core.NewPromptShown(time.Now(), "phone", "APPID")
	h.Broadcast(context.Background(), ev)

	received := <-ch
	if received.Installation != "phone" || received.Type != core.EventPromptShown {
		t.Fatalf("unexpected event: %+v", received)
	}

	h.Unsubscribe(id)
	_, ok := <-ch
	if ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", h.Subscribers())
	}
}

func TestHubFilterAndAttach(t *testing.T) {
	h := NewHub()
	bus := engine.NewEventBus(engine.DispatchSync)
	detach := h.Attach(bus)
	defer detach()

	_, ch := h.Subscribe(4, ForInstallation("tablet"))
	bus.Publish(context.Background(), core.NewDecision(core.ActionDecline, time.Now(), "phone", "APPID"))
	bus.Publish(context.Background(), core.NewDecision(core.ActionReview, time.Now(), "tablet", "APPID"))

	select {
	case ev := <-ch:
		if ev.Installation != "tablet" || ev.Type != core.EventReviewed {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected tablet event")
	}
	select {
	case ev := <-ch:
		t.Fatalf("filtered event delivered: %+v", ev)
	default:
	}
}

func TestMarshalJSON(t *testing.T) {
	ev := core.NewStoreOpenFailed(time.Now(), "phone", "APPID", "itms-apps://x", nil)
	b := MarshalJSON(ev)
	var out core.Event
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.StoreURL != "itms-apps://x" || out.ID == "" {
		t.Fatalf("unexpected event: %+v", out)
	}
}
