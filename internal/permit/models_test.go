package permit

import "testing"

func TestStateMachineEdges(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusPendingPIC, StatusPendingManager},
		{StatusPendingPIC, StatusRejected},
		{StatusPendingPIC, StatusCancelled},
		{StatusPendingManager, StatusApproved},
		{StatusPendingManager, StatusRejected},
		{StatusPendingManager, StatusCancelled},
		{StatusApproved, StatusActive},
		{StatusApproved, StatusCancelled},
		{StatusApproved, StatusExpired},
		{StatusActive, StatusCompleted},
	}
	for _, e := range legal {
		if !CanTransition(e.from, e.to) {
			t.Fatalf("expected %s -> %s to be legal", e.from, e.to)
		}
	}

	illegal := []struct{ from, to Status }{
		{StatusPendingPIC, StatusApproved},
		{StatusPendingPIC, StatusActive},
		{StatusPendingManager, StatusActive},
		{StatusApproved, StatusCompleted},
		{StatusActive, StatusCancelled},
		{StatusActive, StatusExpired},
		{StatusRejected, StatusPendingManager},
		{StatusCancelled, StatusApproved},
		{StatusExpired, StatusActive},
		{StatusCompleted, StatusActive},
	}
	for _, e := range illegal {
		if CanTransition(e.from, e.to) {
			t.Fatalf("expected %s -> %s to be illegal", e.from, e.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []Status{StatusRejected, StatusCancelled, StatusExpired, StatusCompleted} {
		if !s.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusPendingPIC, StatusPendingManager, StatusApproved, StatusActive} {
		if s.IsTerminal() {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
}

func TestCredentialBearingStatuses(t *testing.T) {
	for _, s := range []Status{StatusApproved, StatusActive} {
		if !s.HasCredential() {
			t.Fatalf("expected %s to carry a credential", s)
		}
	}
	for _, s := range []Status{StatusPendingPIC, StatusPendingManager, StatusCompleted, StatusRejected, StatusCancelled, StatusExpired} {
		if s.HasCredential() {
			t.Fatalf("expected %s to carry no credential", s)
		}
	}
}
