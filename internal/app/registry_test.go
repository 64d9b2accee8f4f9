package app

import (
	"testing"

	"github.com/bft-labs/hostlink/internal/domain"
)

func TestRegistry_DeliverFillsCall(t *testing.T) {
	r := NewRegistry()
	call, replaced := r.register(7)
	if replaced != nil {
		t.Fatal("register() reported a replaced call in an empty registry")
	}
	if !r.Has(7) {
		t.Fatal("Has(7) = false after register")
	}

	if r.Deliver(domain.Frame{ID: 8}) {
		t.Error("Deliver() matched an id nobody registered")
	}
	if !r.Deliver(domain.Frame{ID: 7, Command: domain.CmdI2CRead, Payload: []byte{0xAB}}) {
		t.Fatal("Deliver() did not match the registered id")
	}

	if !call.filled() {
		t.Fatal("call not filled after Deliver")
	}
	if call.resp.ID != 7 || call.resp.Command != domain.CmdI2CRead || call.resp.Payload[0] != 0xAB {
		t.Errorf("resp = %+v", call.resp)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after delivery, want 0", r.Len())
	}
	if r.Deliver(domain.Frame{ID: 7}) {
		t.Error("second Deliver() for the same id matched")
	}
}

func TestRegistry_AbandonRacesDeliver(t *testing.T) {
	r := NewRegistry()

	call, _ := r.register(3)
	if !r.abandon(call) {
		t.Error("abandon() of a registered call = false")
	}
	if r.Deliver(domain.Frame{ID: 3}) {
		t.Error("Deliver() matched an abandoned call")
	}

	call, _ = r.register(4)
	r.Deliver(domain.Frame{ID: 4})
	if r.abandon(call) {
		t.Error("abandon() after delivery = true")
	}
	if !call.filled() {
		t.Error("delivered call not filled")
	}
}

func TestRegistry_RegisterCollision(t *testing.T) {
	r := NewRegistry()

	old, _ := r.register(5)
	newer, replaced := r.register(5)
	if replaced != old {
		t.Fatal("register() did not return the replaced call")
	}

	r.Deliver(domain.Frame{ID: 5})
	if !newer.filled() {
		t.Error("newer registration not filled")
	}
	if old.filled() {
		t.Error("replaced registration filled")
	}
	if r.abandon(old) {
		t.Error("abandon() of a replaced call = true")
	}
}
