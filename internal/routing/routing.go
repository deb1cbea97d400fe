// Package routing provides the administratively-configured next-hop map
// used by the message processor to decide where a packet goes next.
//
// Table is a narrow interface the engine depends on, backed here by a
// dense in-memory array, with an optional external Store for persistence
// (see ports.RouteStore).
package routing

import "github.com/wars-birdhouse/mesh-core/internal/packet"

// Table is the interface the message processor depends on for next-hop
// lookups. It is satisfied by *MemTable.
type Table interface {
	// NextHop resolves the next hop toward finalDest:
	//   - finalDest == 0            -> AddrUnassigned (caller treats as no route)
	//   - finalDest in special range -> finalDest itself (self-routed)
	//   - finalDest > AddrNodeMax   -> NoRoute
	//   - otherwise                 -> the table entry, default NoRoute
	NextHop(finalDest packet.Addr) packet.Addr

	// SetRoute stores an administrative next-hop mapping for target.
	SetRoute(target, nextHop packet.Addr)

	// ClearRoutes resets every entry to NoRoute.
	ClearRoutes()
}

// MemTable is the default in-memory RoutingTable implementation. It is
// dense over addresses 0..AddrNodeMax.
type MemTable struct {
	routes [packet.AddrNodeMax + 1]packet.Addr
}

// New creates a MemTable with every entry set to NoRoute.
func New() *MemTable {
	t := &MemTable{}
	t.ClearRoutes()
	return t
}

// NextHop implements Table.
func (t *MemTable) NextHop(finalDest packet.Addr) packet.Addr {
	if finalDest == packet.AddrUnassigned {
		return packet.AddrUnassigned
	}
	if finalDest.IsSpecial() {
		return finalDest
	}
	if finalDest > packet.AddrNodeMax {
		return packet.NoRoute
	}
	return t.routes[finalDest]
}

// SetRoute implements Table.
func (t *MemTable) SetRoute(target, nextHop packet.Addr) {
	if target > packet.AddrNodeMax {
		return
	}
	t.routes[target] = nextHop
}

// ClearRoutes implements Table.
func (t *MemTable) ClearRoutes() {
	for i := range t.routes {
		t.routes[i] = packet.NoRoute
	}
}

// LoadFrom seeds the table from a persisted snapshot, e.g. one returned by
// a ports.RouteStore. Entries for addresses above AddrNodeMax are ignored.
func (t *MemTable) LoadFrom(routes map[packet.Addr]packet.Addr) {
	for target, nextHop := range routes {
		t.SetRoute(target, nextHop)
	}
}

// Snapshot returns a copy of every non-default entry, suitable for
// persisting via a ports.RouteStore.
func (t *MemTable) Snapshot() map[packet.Addr]packet.Addr {
	out := make(map[packet.Addr]packet.Addr)
	for addr, nextHop := range t.routes {
		if nextHop != packet.NoRoute {
			out[packet.Addr(addr)] = nextHop
		}
	}
	return out
}
