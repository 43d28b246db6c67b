package call

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"wavelink-backend/internal/domain"
)

func newSession(callID, caller, callee uuid.UUID) *domain.CallSession {
	return &domain.CallSession{
		CallID:      callID,
		Caller:      caller,
		Callee:      callee,
		CallType:    domain.CallTypeAudio,
		State:       domain.SessionRinging,
		InitiatedAt: time.Now().UTC(),
	}
}

func TestSessionTable_InsertAndGet(t *testing.T) {
	table := newSessionTable()
	callID := uuid.New()

	assert.True(t, table.insert(newSession(callID, uuid.New(), uuid.New())))

	sess, ok := table.get(callID)
	assert.True(t, ok)
	assert.Equal(t, callID, sess.CallID)
	assert.Equal(t, 1, table.size())
}

func TestSessionTable_InsertNeverOverwrites(t *testing.T) {
	table := newSessionTable()
	callID := uuid.New()
	original := newSession(callID, uuid.New(), uuid.New())

	assert.True(t, table.insert(original))
	assert.False(t, table.insert(newSession(callID, uuid.New(), uuid.New())))

	sess, ok := table.get(callID)
	assert.True(t, ok)
	assert.Same(t, original, sess)
}

func TestSessionTable_TakeRemoves(t *testing.T) {
	table := newSessionTable()
	callID := uuid.New()
	table.insert(newSession(callID, uuid.New(), uuid.New()))

	sess, ok := table.take(callID)
	assert.True(t, ok)
	assert.Equal(t, callID, sess.CallID)

	_, ok = table.take(callID)
	assert.False(t, ok)
	assert.Equal(t, 0, table.size())
}

func TestSessionTable_TakeHasSingleWinner(t *testing.T) {
	table := newSessionTable()
	callID := uuid.New()
	table.insert(newSession(callID, uuid.New(), uuid.New()))

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := table.take(callID); ok {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins)
}

func TestSessionTable_Involving(t *testing.T) {
	table := newSessionTable()

	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	asCaller := uuid.New()
	asCallee := uuid.New()
	unrelated := uuid.New()

	table.insert(newSession(asCaller, alice, bob))
	table.insert(newSession(asCallee, carol, alice))
	table.insert(newSession(unrelated, bob, carol))

	assert.ElementsMatch(t, []uuid.UUID{asCaller, asCallee}, table.involving(alice))
	assert.Empty(t, table.involving(uuid.New()))
}

func TestSessionTable_StripeIsStablePerCallID(t *testing.T) {
	table := newSessionTable()
	callID := uuid.New()

	assert.Same(t, table.stripe(callID), table.stripe(callID))
}
