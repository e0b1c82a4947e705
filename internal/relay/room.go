package relay

import (
	"errors"
	"sort"
	"sync"
)

// MaxMembers is the number of live connections a room can hold.
const MaxMembers = 2

var (
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyInRoom = errors.New("connection already joined another room")
	ErrNotInRoom     = errors.New("connection is not in a room")
	ErrEmptyRoomCode = errors.New("room code is empty")
)

// Room represents the membership of a single room code.
// It exists in the Table only while it has members.
type Room struct {
	// Code is the client-chosen room code.
	Code string

	mu      sync.Mutex
	members []*Client

	// evicted is set once the room has been removed from the table.
	// A goroutine that looked the room up before eviction must retry.
	evicted bool
}

func (r *Room) indexOf(c *Client) int {
	for i, m := range r.members {
		if m == c {
			return i
		}
	}
	return -1
}

// RoomInfo is the read-only view of a room returned by Table.Snapshot.
type RoomInfo struct {
	Code    string `json:"code"`
	Members int    `json:"members"`
}

// JoinResult describes what a successful Join changed.
type JoinResult struct {
	// Partners are the members that were already in the room.
	Partners []*Client

	// Purged are stale members removed by the liveness sweep.
	Purged []*Client

	// AlreadyJoined is set when the caller was already a member.
	AlreadyJoined bool
}

// Table is the room membership table. Every room carries its own lock so
// operations on different room codes never contend; the table lock only
// guards the code -> room map.
type Table struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewTable creates an empty membership table.
func NewTable() *Table {
	return &Table{
		rooms: make(map[string]*Room),
	}
}

// withRoom runs fn while holding the lock of the room for code. When create
// is false and no room exists, fn is not called and false is returned.
// Rooms left without members are evicted before the lock is released.
func (t *Table) withRoom(code string, create bool, fn func(r *Room)) bool {
	for {
		t.mu.Lock()
		r, ok := t.rooms[code]
		if !ok {
			if !create {
				t.mu.Unlock()
				return false
			}
			r = &Room{Code: code}
			t.rooms[code] = r
		}
		t.mu.Unlock()

		r.mu.Lock()
		if r.evicted {
			r.mu.Unlock()
			continue
		}

		fn(r)

		if len(r.members) == 0 {
			r.evicted = true
			t.mu.Lock()
			if t.rooms[code] == r {
				delete(t.rooms, code)
			}
			t.mu.Unlock()
		}
		r.mu.Unlock()
		return true
	}
}

// Join admits c into the room for code. Dead members are purged first, so a
// ghost never blocks a rejoin; the capacity check and admission happen under
// the same room lock.
func (t *Table) Join(code string, c *Client) (JoinResult, error) {
	var (
		res JoinResult
		err error
	)

	if code == "" {
		return res, ErrEmptyRoomCode
	}
	if current := c.RoomCode(); current != "" && current != code {
		return res, ErrAlreadyInRoom
	}

	t.withRoom(code, true, func(r *Room) {
		kept := make([]*Client, 0, MaxMembers)
		for _, m := range r.members {
			switch {
			case m == c:
				res.AlreadyJoined = true
				kept = append(kept, m)
			case !m.Alive():
				res.Purged = append(res.Purged, m)
				if m.RoomCode() == code {
					m.room.Store("")
				}
			default:
				kept = append(kept, m)
			}
		}
		r.members = kept

		if res.AlreadyJoined {
			return
		}
		if len(r.members) >= MaxMembers {
			err = ErrRoomFull
			return
		}

		res.Partners = append([]*Client(nil), r.members...)
		r.members = append(r.members, c)
		c.room.Store(code)
	})

	return res, err
}

// Leave removes c from its current room and returns the members that remain.
// ok is false when c was not a member of any room, which is the case for a
// connection that was already purged.
func (t *Table) Leave(c *Client) (code string, remaining []*Client, ok bool) {
	code = c.RoomCode()
	if code == "" {
		return "", nil, false
	}

	t.withRoom(code, false, func(r *Room) {
		i := r.indexOf(c)
		if i < 0 {
			return
		}
		r.members = append(r.members[:i], r.members[i+1:]...)
		remaining = append([]*Client(nil), r.members...)
		ok = true
	})
	c.room.Store("")

	return code, remaining, ok
}

// Members returns a snapshot of the members of the room for code.
// A room that does not exist has no members.
func (t *Table) Members(code string) []*Client {
	var members []*Client
	t.withRoom(code, false, func(r *Room) {
		members = append(members, r.members...)
	})
	return members
}

// Snapshot lists every non-empty room, ordered by code.
func (t *Table) Snapshot() []RoomInfo {
	t.mu.Lock()
	rooms := make([]*Room, 0, len(t.rooms))
	for _, r := range t.rooms {
		rooms = append(rooms, r)
	}
	t.mu.Unlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		if !r.evicted && len(r.members) > 0 {
			out = append(out, RoomInfo{Code: r.Code, Members: len(r.members)})
		}
		r.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
