package peer

import (
	"testing"
	"time"

	"github.com/arsdk-go/arsdk/pkg/arsdk/transport"
)

func TestRegisterAssignsUniqueHandles(t *testing.T) {
	m := NewManager(nil)
	seen := make(map[Handle]bool)
	for i := 0; i < 50; i++ {
		p, err := m.Register("drone")
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if p.Handle == InvalidHandle {
			t.Fatal("Register must not hand out the invalid handle")
		}
		if seen[p.Handle] {
			t.Fatalf("duplicate handle %v", p.Handle)
		}
		seen[p.Handle] = true
	}
}

func TestUnregisterRemovesPeer(t *testing.T) {
	m := NewManager(nil)
	p, err := m.Register("drone")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	m.Unregister(p.Handle)
	if _, ok := m.Get(p.Handle); ok {
		t.Fatal("expected peer to be gone after Unregister")
	}
}

func TestSetLinkStatusAndUpdateStats(t *testing.T) {
	m := NewManager(nil)
	p, err := m.Register("drone")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	m.SetLinkStatus(p.Handle, transport.LinkOK)
	got, _ := m.Get(p.Handle)
	if got.LinkStatus != transport.LinkOK {
		t.Errorf("LinkStatus = %v, want LinkOK", got.LinkStatus)
	}

	m.UpdateStats(p.Handle, 99.5, 80.0, 25*time.Millisecond, 2)
	got, _ = m.Get(p.Handle)
	if got.TxQualityPct != 99.5 || got.RxQualityPct != 80.0 || got.RTT != 25*time.Millisecond || got.Failures != 2 {
		t.Errorf("unexpected stats after UpdateStats: %+v", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := NewManager(nil)
	p, err := m.Register("drone")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	snap := m.Snapshot()
	if len(snap) != 1 || snap[0].Handle != p.Handle {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	m.SetLinkStatus(p.Handle, transport.LinkKO)
	if snap[0].LinkStatus == transport.LinkKO {
		t.Error("snapshot must not observe later mutations")
	}
}

func TestGetUnknownHandle(t *testing.T) {
	m := NewManager(nil)
	if _, ok := m.Get(Handle(12345)); ok {
		t.Fatal("expected unknown handle to be absent")
	}
}
