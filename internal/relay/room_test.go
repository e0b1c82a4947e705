package relay

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
)

func TestTableConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	h := newTestHub()
	table := h.table

	const n = 64
	clients := make([]*Client, n)
	for i := range clients {
		clients[i] = newFakeClient(h)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		rejected int
	)
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			_, err := table.Join("race", c)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, ErrRoomFull):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(c)
	}
	wg.Wait()

	if admitted != MaxMembers || rejected != n-MaxMembers {
		t.Fatalf("admitted=%d rejected=%d", admitted, rejected)
	}
	if got := len(table.Members("race")); got != MaxMembers {
		t.Fatalf("expected %d members, got %d", MaxMembers, got)
	}
}

func TestTableRandomSequencesKeepInvariant(t *testing.T) {
	h := newTestHub()
	table := h.table
	rng := rand.New(rand.NewSource(7))

	pool := make([]*Client, 6)
	for i := range pool {
		pool[i] = newFakeClient(h)
	}

	for step := 0; step < 2000; step++ {
		c := pool[rng.Intn(len(pool))]
		switch rng.Intn(3) {
		case 0, 1:
			_, err := table.Join("fixed", c)
			if err != nil && !errors.Is(err, ErrRoomFull) {
				t.Fatalf("step %d: unexpected error %v", step, err)
			}
			if errors.Is(err, ErrRoomFull) && c.RoomCode() != "" {
				t.Fatalf("step %d: rejected client assigned to %q", step, c.RoomCode())
			}
		case 2:
			table.Leave(c)
		}

		live := 0
		for _, m := range table.Members("fixed") {
			if m.Alive() {
				live++
			}
		}
		if live > MaxMembers {
			t.Fatalf("step %d: %d live members", step, live)
		}
	}
}

func TestTableLeaveUnknownClient(t *testing.T) {
	h := newTestHub()
	c := newFakeClient(h)

	if _, _, ok := h.table.Leave(c); ok {
		t.Fatalf("leave reported membership for unjoined client")
	}
}

func TestTableRoomsAreIndependent(t *testing.T) {
	h := newTestHub()
	table := h.table

	for _, code := range []string{"b", "a", "c"} {
		if _, err := table.Join(code, newFakeClient(h)); err != nil {
			t.Fatalf("join %s: %v", code, err)
		}
	}
	if _, err := table.Join("a", newFakeClient(h)); err != nil {
		t.Fatalf("second join a: %v", err)
	}

	rooms := table.Snapshot()
	want := []RoomInfo{{Code: "a", Members: 2}, {Code: "b", Members: 1}, {Code: "c", Members: 1}}
	if len(rooms) != len(want) {
		t.Fatalf("expected %v, got %v", want, rooms)
	}
	for i := range want {
		if rooms[i] != want[i] {
			t.Fatalf("room %d: expected %v, got %v", i, want[i], rooms[i])
		}
	}
}

func TestTableMembersOfMissingRoom(t *testing.T) {
	table := NewTable()

	if members := table.Members("nope"); len(members) != 0 {
		t.Fatalf("expected no members, got %v", members)
	}
	if rooms := table.Snapshot(); len(rooms) != 0 {
		t.Fatalf("lookup created a room: %v", rooms)
	}
}
