package diskusage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sunflower/pkg/models"
	"sunflower/pkg/monitor"
	"sunflower/pkg/provider"
	"sunflower/pkg/provider/local"
	"sunflower/pkg/provider/providertest"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type recorder struct {
	mu     sync.Mutex
	events []monitor.Event
}

func (r *recorder) Push(ev monitor.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// DiskUsageTestSuite tests background size calculations
type DiskUsageTestSuite struct {
	suite.Suite
	tempDir string
	local   *local.Provider
}

// SetupTest runs before each test
func (s *DiskUsageTestSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	s.local = local.New(provider.Options{TrashDir: filepath.Join(s.tempDir, "Trash")})
}

func (s *DiskUsageTestSuite) write(rel string, size int) {
	p := filepath.Join(s.tempDir, rel)
	s.Require().NoError(os.MkdirAll(filepath.Dir(p), 0o755))
	s.Require().NoError(os.WriteFile(p, make([]byte, size), 0o644))
}

// blockingProvider returns a mock whose root listing waits for release.
func (s *DiskUsageTestSuite) blockingProvider(root string, release <-chan struct{}) *providertest.MockProvider {
	p := new(providertest.MockProvider)
	p.On("ListDir", root, "").Run(func(mock.Arguments) { <-release }).Return([]string{}, nil)
	return p
}

// TestLocalTree tests totals over a real directory tree
func (s *DiskUsageTestSuite) TestLocalTree() {
	root := filepath.Join(s.tempDir, "tree")
	s.write("tree/a.bin", 100)
	s.write("tree/sub/b.bin", 20)
	s.write("tree/sub/deeper/c.bin", 3)
	s.Require().NoError(os.Symlink(filepath.Join(s.tempDir, "tree"), filepath.Join(root, "loop")))

	q := &recorder{}
	c := New(s.local)
	s.True(c.Calculate(root, q))
	c.Wait()

	r, ok := c.Get(root)
	s.Require().True(ok)
	s.True(r.Done)
	// a.bin, sub, b.bin, deeper, c.bin, loop
	s.Equal(uint64(6), r.Count)
	linkInfo := s.local.GetStat(filepath.Join(root, "loop"), "", false, false).Base()
	s.Equal(123+linkInfo.Size, r.Size)
	s.False(c.IsInFlight(root))

	s.Require().Equal(1, q.Len())
	s.Equal(monitor.SignalDirectorySizeChanged, q.events[0].Signal)
	s.Equal(root, q.events[0].Path)
}

// TestBatchNotifications tests partial snapshots every batch
func (s *DiskUsageTestSuite) TestBatchNotifications() {
	root := filepath.Join(s.tempDir, "many")
	for i := 0; i < 120; i++ {
		s.write(filepath.Join("many", fmt.Sprintf("f%03d", i)), 1)
	}

	q := &recorder{}
	c := New(s.local)
	s.Require().True(c.Calculate(root, q))
	c.Wait()

	// Two partial snapshots at 50 and 100 plus the final one.
	s.Equal(3, q.Len())
	r, _ := c.Get(root)
	s.Equal(Result{Count: 120, Size: 120, Done: true}, r)

	q = &recorder{}
	c = New(s.local, WithBatchSize(10))
	c.Calculate(root, q)
	c.Wait()
	s.Equal(13, q.Len())
}

// TestCalculateIsIdempotent tests a second request for the same path is ignored
func (s *DiskUsageTestSuite) TestCalculateIsIdempotent() {
	release := make(chan struct{})
	p := s.blockingProvider("/data", release)

	c := New(p)
	s.True(c.Calculate("/data", nil))
	s.False(c.Calculate("/data", nil))
	s.True(c.IsInFlight("/data"))

	close(release)
	c.Wait()
	s.False(c.IsInFlight("/data"))
	p.AssertNumberOfCalls(s.T(), "ListDir", 1)

	r, ok := c.Get("/data")
	s.True(ok)
	s.Equal(Result{Done: true}, r)
}

// TestCancel tests a cancelled calculation never reports done
func (s *DiskUsageTestSuite) TestCancel() {
	release := make(chan struct{})
	p := s.blockingProvider("/data", release)

	q := &recorder{}
	c := New(p)
	c.Calculate("/data", q)
	c.Cancel("/data")
	s.False(c.IsInFlight("/data"))
	close(release)
	c.Wait()

	r, ok := c.Get("/data")
	s.True(ok)
	s.False(r.Done)
	s.Zero(q.Len())
}

// TestCancelAll tests nested calculations are cancelled with their parent
func (s *DiskUsageTestSuite) TestCancelAll() {
	release := make(chan struct{})
	p := new(providertest.MockProvider)
	for _, dir := range []string{"/data", "/data/a", "/data/a/b", "/database", "/other"} {
		p.On("ListDir", dir, "").Run(func(mock.Arguments) { <-release }).Return([]string{}, nil)
	}

	c := New(p)
	for _, dir := range []string{"/data", "/data/a", "/data/a/b", "/database", "/other"} {
		s.Require().True(c.Calculate(dir, nil))
	}

	c.CancelAll("/data")
	s.False(c.IsInFlight("/data"))
	s.False(c.IsInFlight("/data/a"))
	s.False(c.IsInFlight("/data/a/b"))
	s.True(c.IsInFlight("/database"))
	s.True(c.IsInFlight("/other"))

	close(release)
	c.Wait()

	r, _ := c.Get("/database")
	s.True(r.Done)
	r, _ = c.Get("/data/a")
	s.False(r.Done)
}

// TestRemove tests dropping a result
func (s *DiskUsageTestSuite) TestRemove() {
	p := new(providertest.MockProvider)
	p.On("ListDir", "/data", "").Return([]string{"f"}, nil)
	p.On("GetStat", "/data/f", "", false, false).Return(models.FileInfo{Size: 7, Type: models.FileTypeRegular})

	c := New(p)
	c.Calculate("/data", nil)
	c.Wait()

	r, ok := c.Get("/data")
	s.True(ok)
	s.Equal(Result{Count: 1, Size: 7, Done: true}, r)

	c.Remove("/data")
	_, ok = c.Get("/data")
	s.False(ok)
	p.AssertExpectations(s.T())
}

// TestUnreadableEntriesAreSkipped tests listing and stat failures
func (s *DiskUsageTestSuite) TestUnreadableEntriesAreSkipped() {
	p := new(providertest.MockProvider)
	p.On("ListDir", "smb://nas/share", "").Return([]string{"gone", "locked"}, nil)
	p.On("GetStat", "smb://nas/share/gone", "", false, false).Return(nil)
	p.On("GetStat", "smb://nas/share/locked", "", false, false).Return(models.FileInfo{Type: models.FileTypeDirectory})
	p.On("ListDir", "smb://nas/share/locked", "").Return(nil, os.ErrPermission)

	c := New(p)
	c.Calculate("smb://nas/share", nil)
	c.Wait()

	r, _ := c.Get("smb://nas/share")
	s.Equal(Result{Count: 1, Done: true}, r)
	p.AssertExpectations(s.T())
}

// TestClose tests shutdown cancels running work
func (s *DiskUsageTestSuite) TestClose() {
	release := make(chan struct{})
	p := s.blockingProvider("/data", release)

	c := New(p)
	c.Calculate("/data", nil)

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.FailNow("close did not return")
	}
	s.False(c.IsInFlight("/data"))
}

func TestDiskUsageSuite(t *testing.T) {
	suite.Run(t, new(DiskUsageTestSuite))
}
