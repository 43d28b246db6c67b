package call

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"wavelink-backend/internal/presence"
)

func TestRelayTo_DeliversToEveryConnectionOfTarget(t *testing.T) {
	registry := presence.NewRegistry()
	router := NewRouter(registry)

	target := uuid.New()
	other := uuid.New()

	phone := &fakeConn{}
	laptop := &fakeConn{}
	bystander := &fakeConn{}
	registry.Register(target, phone)
	registry.Register(target, laptop)
	registry.Register(other, bystander)

	callID := uuid.New()
	router.RelayTo(target, &Envelope{Type: EventEnded, CallID: &callID})

	assert.Len(t, phone.byType(t, EventEnded), 1)
	assert.Len(t, laptop.byType(t, EventEnded), 1)
	assert.Empty(t, bystander.byType(t, EventEnded))
}

func TestRelayTo_UnreachableTargetIsDropped(t *testing.T) {
	registry := presence.NewRegistry()
	router := NewRouter(registry)

	conn := &fakeConn{}
	registry.Register(uuid.New(), conn)

	router.RelayTo(uuid.New(), &Envelope{Type: EventIncoming})

	assert.Empty(t, conn.envelopes(t))
}

func TestBroadcastAll_ReachesEveryConnection(t *testing.T) {
	registry := presence.NewRegistry()
	router := NewRouter(registry)

	conns := []*fakeConn{{}, {}, {}}
	registry.Register(uuid.New(), conns[0])
	registry.Register(uuid.New(), conns[1])
	registry.Register(uuid.New(), conns[2])

	router.BroadcastAll(&Envelope{Type: EventPresence})

	for _, conn := range conns {
		assert.Len(t, conn.byType(t, EventPresence), 1)
	}
}
