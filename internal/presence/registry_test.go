package presence

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// fakeConn is a no-op connection for registry tests
type fakeConn struct {
	id int
}

func (c *fakeConn) Deliver(payload []byte) {}

// TestRegisterDeregister tests the basic connect/disconnect cycle
func TestRegisterDeregister(t *testing.T) {
	registry := NewRegistry()
	identity := uuid.New()
	conn := &fakeConn{id: 1}

	registry.Register(identity, conn)

	assert.True(t, registry.IsOnline(identity))
	assert.Len(t, registry.ConnectionsOf(identity), 1)
	assert.Contains(t, registry.OnlineIdentities(), identity)

	gotIdentity, offline, ok := registry.Deregister(conn)

	assert.True(t, ok)
	assert.True(t, offline)
	assert.Equal(t, identity, gotIdentity)
	assert.False(t, registry.IsOnline(identity))
	assert.Empty(t, registry.ConnectionsOf(identity))
}

// TestMultiDevice tests that an identity stays online until its last
// connection drops
func TestMultiDevice(t *testing.T) {
	registry := NewRegistry()
	identity := uuid.New()
	phone := &fakeConn{id: 1}
	laptop := &fakeConn{id: 2}

	registry.Register(identity, phone)
	registry.Register(identity, laptop)

	assert.Len(t, registry.ConnectionsOf(identity), 2)

	_, offline, ok := registry.Deregister(phone)
	assert.True(t, ok)
	assert.False(t, offline, "identity still has a live connection")
	assert.True(t, registry.IsOnline(identity))

	_, offline, ok = registry.Deregister(laptop)
	assert.True(t, ok)
	assert.True(t, offline, "last connection dropped")
	assert.False(t, registry.IsOnline(identity))
}

// TestDeregisterUnknownConn tests that an unseen connection is rejected
func TestDeregisterUnknownConn(t *testing.T) {
	registry := NewRegistry()

	_, _, ok := registry.Deregister(&fakeConn{id: 99})

	assert.False(t, ok)
}

// TestDuplicateRegister tests that re-registering a connection is a no-op
func TestDuplicateRegister(t *testing.T) {
	registry := NewRegistry()
	identity := uuid.New()
	conn := &fakeConn{id: 1}

	registry.Register(identity, conn)
	registry.Register(identity, conn)

	assert.Len(t, registry.ConnectionsOf(identity), 1)
	assert.Len(t, registry.AllConnections(), 1)
}

// TestOnlineAfterPartialDisconnects tests the presence property: after
// connects C1..Cn and disconnects D subset of them, the identity is online
// iff some connection survives
func TestOnlineAfterPartialDisconnects(t *testing.T) {
	registry := NewRegistry()
	identity := uuid.New()

	conns := make([]*fakeConn, 5)
	for i := range conns {
		conns[i] = &fakeConn{id: i}
		registry.Register(identity, conns[i])
	}

	// Drop all but one
	for _, conn := range conns[:4] {
		registry.Deregister(conn)
	}
	assert.True(t, registry.IsOnline(identity))

	registry.Deregister(conns[4])
	assert.False(t, registry.IsOnline(identity))
	assert.Empty(t, registry.OnlineIdentities())
}

// TestConcurrentConnectDisconnect tests that racing connects and disconnects
// for the same identity never lose updates
func TestConcurrentConnectDisconnect(t *testing.T) {
	registry := NewRegistry()
	identity := uuid.New()

	const n = 64
	conns := make([]*fakeConn, n)
	for i := range conns {
		conns[i] = &fakeConn{id: i}
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			registry.Register(identity, conns[i])
		}(i)
	}
	wg.Wait()

	assert.Len(t, registry.ConnectionsOf(identity), n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			registry.Deregister(conns[i])
		}(i)
	}
	wg.Wait()

	assert.False(t, registry.IsOnline(identity))
	assert.Empty(t, registry.AllConnections())
}
