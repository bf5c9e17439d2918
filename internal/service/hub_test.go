package service

import (
	"encoding/json"
	"testing"

	"piston_control/internal/models"
)

func TestHub_PublishReachesOnlyTheUser(t *testing.T) {
	h := NewHub(nil)
	a1, cancelA1 := h.Subscribe("a")
	a2, cancelA2 := h.Subscribe("a")
	b, cancelB := h.Subscribe("b")
	defer cancelA2()
	defer cancelB()

	h.Publish("a", models.DeviceStatus{Type: models.MessageDeviceStatus, DeviceID: "D1", Status: "offline"})

	for i, ch := range []<-chan []byte{a1, a2} {
		select {
		case data := <-ch:
			var st models.DeviceStatus
			if err := json.Unmarshal(data, &st); err != nil || st.DeviceID != "D1" {
				t.Fatalf("subscriber %d got %s (%v)", i, data, err)
			}
		default:
			t.Fatalf("subscriber %d got nothing", i)
		}
	}
	select {
	case data := <-b:
		t.Fatalf("user b should not receive %s", data)
	default:
	}

	cancelA1()
	cancelA1() // idempotent
	if _, ok := <-a1; ok {
		t.Fatal("cancelled channel should be closed")
	}
	if n := h.Subscribers("a"); n != 1 {
		t.Fatalf("Subscribers(a) = %d; want 1", n)
	}
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe("a")
	defer cancel()
	for i := 0; i < subscriberBuffer+5; i++ {
		h.Publish("a", map[string]int{"n": i})
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("buffered = %d; want %d", len(ch), subscriberBuffer)
	}
}
