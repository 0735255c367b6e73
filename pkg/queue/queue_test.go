package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// RegistryTestSuite tests the named operation queues
type RegistryTestSuite struct {
	suite.Suite
	registry *Registry
}

// SetupTest runs before each test
func (s *RegistryTestSuite) SetupTest() {
	s.registry = New()
}

// TestFirstAddStartsImmediately tests an idle queue releases at once
func (s *RegistryTestSuite) TestFirstAddStartsImmediately() {
	ev := NewEvent()
	s.registry.Add("Copy", ev)

	s.True(ev.IsSet())
	s.True(s.registry.IsActive("Copy"))
	s.Equal(0, s.registry.Pending("Copy"))
}

// TestFIFOOrder tests waiting operations start in the order they were added
func (s *RegistryTestSuite) TestFIFOOrder() {
	a, b, c := NewEvent(), NewEvent(), NewEvent()
	s.registry.Add("X", a)
	s.registry.Add("X", b)
	s.registry.Add("X", c)

	s.True(a.IsSet())
	s.False(b.IsSet())
	s.False(c.IsSet())
	s.Equal(2, s.registry.Pending("X"))

	s.registry.StartNext("X")
	s.True(b.IsSet())
	s.False(c.IsSet())

	s.registry.StartNext("X")
	s.True(c.IsSet())
	s.True(s.registry.IsActive("X"))

	s.registry.StartNext("X")
	s.False(s.registry.IsActive("X"))
	s.Equal(0, s.registry.Pending("X"))
}

// TestQueuesAreIndependent tests different names never block each other
func (s *RegistryTestSuite) TestQueuesAreIndependent() {
	first, second := NewEvent(), NewEvent()
	s.registry.Add("Copy", first)
	s.registry.Add("Move", second)

	s.True(first.IsSet())
	s.True(second.IsSet())
	s.ElementsMatch([]string{"Copy", DefaultName, "Move"}, s.registry.Names())
}

// TestDefaultQueue tests the empty name and the lazily created default queue
func (s *RegistryTestSuite) TestDefaultQueue() {
	s.Equal([]string{DefaultName}, s.registry.Names())
	s.False(s.registry.IsActive(""))

	ev := NewEvent()
	s.registry.Add("", ev)
	s.True(ev.IsSet())
	s.True(s.registry.IsActive(DefaultName))

	s.registry.StartNext(DefaultName)
	s.False(s.registry.IsActive(""))
}

// TestStartNextOnIdleQueue tests advancing an idle queue is harmless
func (s *RegistryTestSuite) TestStartNextOnIdleQueue() {
	s.registry.StartNext("never-used")
	s.False(s.registry.IsActive("never-used"))
	s.Contains(s.registry.Names(), "never-used")
}

// TestRemovePending tests a waiting event can be withdrawn
func (s *RegistryTestSuite) TestRemovePending() {
	a, b, c := NewEvent(), NewEvent(), NewEvent()
	s.registry.Add("X", a)
	s.registry.Add("X", b)
	s.registry.Add("X", c)

	s.True(s.registry.Remove("X", b))
	s.False(s.registry.Remove("X", b))
	s.False(s.registry.Remove("unknown", b))

	s.registry.StartNext("X")
	s.True(c.IsSet())
	s.False(b.IsSet())
}

// TestSnapshot tests the status listing
func (s *RegistryTestSuite) TestSnapshot() {
	s.registry.Enqueue("B")
	s.registry.Enqueue("B")
	s.registry.Enqueue("A")

	s.Equal([]Status{
		{Name: "A", Active: true, Pending: 0},
		{Name: "B", Active: true, Pending: 1},
		{Name: DefaultName, Active: false, Pending: 0},
	}, s.registry.Snapshot())
}

// TestSecondOperationWaitsForFirst tests the blocking hand-over between workers
func (s *RegistryTestSuite) TestSecondOperationWaitsForFirst() {
	first, second := NewEvent(), NewEvent()
	s.registry.Add("X", first)
	s.registry.Add("X", second)

	started := make(chan struct{})
	go func() {
		s.NoError(second.Wait(context.Background()))
		close(started)
	}()

	select {
	case <-started:
		s.Fail("second operation started before the first finished")
	case <-time.After(50 * time.Millisecond):
	}

	s.registry.StartNext("X")

	select {
	case <-started:
	case <-time.After(time.Second):
		s.Fail("second operation never started")
	}
}

// TestEventWaitHonoursContext tests Wait returns the context error
func (s *RegistryTestSuite) TestEventWaitHonoursContext() {
	ev := NewEvent()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.ErrorIs(ev.Wait(ctx), context.Canceled)

	ev.Set()
	ev.Set()
	s.NoError(ev.Wait(ctx))
	s.NotEmpty(ev.ID)
}

// TestSetEventWinsOverDoneContext tests a released operation is never
// reported as cancelled
func (s *RegistryTestSuite) TestSetEventWinsOverDoneContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ev := NewEvent()
	ev.Set()
	for i := 0; i < 1000; i++ {
		s.Require().NoError(ev.Wait(ctx))
	}
}

// TestRunSerializes tests Run never overlaps two operations on one queue
func (s *RegistryTestSuite) TestRunSerializes() {
	var (
		mu      sync.Mutex
		running int
		maxSeen int
		wg      sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.registry.Run(context.Background(), "Serial", func(context.Context) error {
				mu.Lock()
				running++
				if running > maxSeen {
					maxSeen = running
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.Equal(1, maxSeen)
	s.False(s.registry.IsActive("Serial"))
}

// TestRunCancelledWhileWaiting tests a cancelled waiter never runs
func (s *RegistryTestSuite) TestRunCancelledWhileWaiting() {
	holder := s.registry.Enqueue("X")
	s.True(holder.IsSet())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := s.registry.Run(ctx, "X", func(context.Context) error {
		called = true
		return nil
	})
	s.True(errors.Is(err, context.DeadlineExceeded))
	s.False(called)
	s.Equal(0, s.registry.Pending("X"))

	s.registry.StartNext("X")
	s.False(s.registry.IsActive("X"))
}

// TestRunReleasedWithDoneContext tests an idle queue still runs fn when ctx
// is already done
func (s *RegistryTestSuite) TestRunReleasedWithDoneContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 100; i++ {
		called := false
		err := s.registry.Run(ctx, "Idle", func(context.Context) error {
			called = true
			return nil
		})
		s.Require().NoError(err)
		s.Require().True(called)
		s.Require().False(s.registry.IsActive("Idle"))
	}
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}
