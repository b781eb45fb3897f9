package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/battlerelay/internal/model"
	"github.com/mcoot/battlerelay/internal/protocol"
	"github.com/mcoot/battlerelay/internal/testutil"
)

type stubPeer struct {
	id model.ConnectionID
}

func (p stubPeer) ID() model.ConnectionID        { return p.id }
func (p stubPeer) Deliver(protocol.Message) bool { return true }
func (p stubPeer) Close()                        {}

type RegistrySuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = New(testutil.NopLogger())
}

func (s *RegistrySuite) TestRegisterAndGet() {
	s.Require().NoError(s.registry.Register(stubPeer{id: "a"}))

	peer, err := s.registry.Get("a")
	s.Require().NoError(err)
	s.Equal(model.ConnectionID("a"), peer.ID())
	s.Equal(1, s.registry.Count())
}

func (s *RegistrySuite) TestRegisterDuplicateFails() {
	s.Require().NoError(s.registry.Register(stubPeer{id: "a"}))
	err := s.registry.Register(stubPeer{id: "a"})
	s.ErrorIs(err, model.ErrAlreadyRegistered)
	s.Equal(1, s.registry.Count())
}

func (s *RegistrySuite) TestGetUnknown() {
	_, err := s.registry.Get("missing")
	s.ErrorIs(err, model.ErrConnectionNotFound)
}

func (s *RegistrySuite) TestUnregisterUnknownIsNoop() {
	s.Require().NoError(s.registry.Register(stubPeer{id: "a"}))
	s.registry.Unregister("missing")
	s.Equal(1, s.registry.Count())
}

func (s *RegistrySuite) TestCountAfterJoinsAndLeaves() {
	const joins, leaves = 12, 5
	for i := 0; i < joins; i++ {
		s.Require().NoError(s.registry.Register(stubPeer{id: model.ConnectionID(fmt.Sprintf("c%02d", i))}))
	}
	for i := 0; i < leaves; i++ {
		s.registry.Unregister(model.ConnectionID(fmt.Sprintf("c%02d", i)))
	}
	s.Equal(joins-leaves, s.registry.Count())
}

func (s *RegistrySuite) TestSnapshotIsACopy() {
	s.Require().NoError(s.registry.Register(stubPeer{id: "b"}))
	s.Require().NoError(s.registry.Register(stubPeer{id: "a"}))

	snap := s.registry.Snapshot()
	s.Require().Len(snap, 2)
	s.Equal(model.ConnectionID("a"), snap[0].ID())
	s.Equal(model.ConnectionID("b"), snap[1].ID())

	s.registry.Unregister("a")
	s.Len(snap, 2)
	s.Len(s.registry.Snapshot(), 1)
}

func TestRegistry_ConcurrentRegister(t *testing.T) {
	r := New(testutil.NopLogger())
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, r.Register(stubPeer{id: model.ConnectionID(fmt.Sprintf("c%03d", i))}))
			_ = r.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, r.Count())
	seen := make(map[model.ConnectionID]bool)
	for _, p := range r.Snapshot() {
		assert.False(t, seen[p.ID()], "duplicate %s", p.ID())
		seen[p.ID()] = true
	}
	assert.Len(t, seen, n)
}
