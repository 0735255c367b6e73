package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sunflower/pkg/config"
	"sunflower/pkg/monitor"
	"sunflower/pkg/provider"
	"sunflower/pkg/provider/zip"

	kzip "github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/suite"
)

// ManagerTestSuite tests the provider, queue and disk usage facade
type ManagerTestSuite struct {
	suite.Suite
	tempDir string
	manager *Manager
}

// SetupTest runs before each test
func (s *ManagerTestSuite) SetupTest() {
	s.tempDir = s.T().TempDir()

	cfg := config.GetDefaultConfig()
	cfg.Monitor.Interval = 5 * time.Millisecond
	cfg.Monitor.ChangesDoneDelay = time.Hour
	cfg.DiskUsage.BatchSize = 2
	cfg.Queue.DefaultName = "Main"
	cfg.GIO.MountRoot = filepath.Join(s.tempDir, "gvfs")
	cfg.Trash.Dir = filepath.Join(s.tempDir, "Trash")
	s.manager = New(cfg)
}

// TearDownTest runs after each test
func (s *ManagerTestSuite) TearDownTest() {
	s.NoError(s.manager.Close())
}

func (s *ManagerTestSuite) writeArchive() string {
	p := filepath.Join(s.tempDir, "bundle.jar")
	f, err := os.Create(p)
	s.Require().NoError(err)
	defer f.Close()

	w := kzip.NewWriter(f)
	entry, err := w.Create("META-INF/MANIFEST.MF")
	s.Require().NoError(err)
	_, err = entry.Write([]byte("Manifest-Version: 1.0\n"))
	s.Require().NoError(err)
	s.Require().NoError(w.Close())
	return p
}

// TestRegistryDefaults tests every built-in scheme and archive type is registered
func (s *ManagerTestSuite) TestRegistryDefaults() {
	s.Equal([]string{"archive", "dav", "davs", "file", "ftp", "gphoto2", "mtp", "network", "sftp", "smb", "trash"},
		s.manager.Registry().Schemes())
	s.Equal([]string{
		"application/jar",
		"application/java-archive",
		"application/war",
		"application/x-java-archive",
		"application/zip",
	}, s.manager.Registry().ContentTypes())
}

// TestProviderIsShared tests one provider per scheme
func (s *ManagerTestSuite) TestProviderIsShared() {
	p, err := s.manager.Provider(s.tempDir)
	s.Require().NoError(err)
	s.Equal("file", p.Protocol())

	again, err := s.manager.Provider("file:///etc")
	s.Require().NoError(err)
	s.Same(p, again)

	smb, err := s.manager.Provider("smb://nas/share")
	s.Require().NoError(err)
	s.Equal("smb", smb.Protocol())

	_, err = s.manager.Provider("gopher://old/")
	s.ErrorIs(err, provider.ErrUnknownScheme)
}

// TestOpenArchive tests archive providers are created per archive
func (s *ManagerTestSuite) TestOpenArchive() {
	archive := s.writeArchive()

	p, err := s.manager.OpenArchive(archive)
	s.Require().NoError(err)
	s.Equal("zip", p.Protocol())

	names, err := p.ListDir("META-INF", "")
	s.Require().NoError(err)
	s.Equal([]string{"MANIFEST.MF"}, names)

	s.NoError(s.manager.ReleaseArchive(p))

	local, err := s.manager.Provider(s.tempDir)
	s.Require().NoError(err)
	s.ErrorIs(s.manager.ReleaseArchive(local), provider.ErrUnsupported)

	_, err = s.manager.OpenArchive(filepath.Join(s.tempDir, "plain.txt"))
	s.ErrorIs(err, provider.ErrUnsupported)
}

// TestCloseReleasesOpenArchives tests Close releases archives the caller kept
func (s *ManagerTestSuite) TestCloseReleasesOpenArchives() {
	archive := s.writeArchive()

	kept, err := s.manager.OpenArchive(archive)
	s.Require().NoError(err)
	_, err = kept.ListDir("", "")
	s.Require().NoError(err)

	released, err := s.manager.OpenArchive(archive)
	s.Require().NoError(err)
	s.Equal(2, s.manager.HeldArchives())
	s.Require().NoError(s.manager.ReleaseArchive(released))
	s.Equal(1, s.manager.HeldArchives())

	zp, ok := kept.(*zip.Provider)
	s.Require().True(ok)
	s.NotNil(zp.ArchiveHandle())

	s.Require().NoError(s.manager.Close())
	s.Nil(zp.ArchiveHandle())
	s.Equal(0, s.manager.HeldArchives())
}

// TestDiskUsage tests calculators are bound to providers
func (s *ManagerTestSuite) TestDiskUsage() {
	dir := filepath.Join(s.tempDir, "data")
	s.Require().NoError(os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "a"), []byte("12345"), 0o644))
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "sub", "b"), []byte("67"), 0o644))

	p, err := s.manager.Provider(dir)
	s.Require().NoError(err)
	c := s.manager.DiskUsage(p)
	s.Same(c, s.manager.DiskUsage(p))

	var events []monitor.Event
	c.Calculate(dir, monitor.QueueFunc(func(ev monitor.Event) { events = append(events, ev) }))
	c.Wait()

	r, ok := c.Get(dir)
	s.Require().True(ok)
	s.True(r.Done)
	s.Equal(uint64(3), r.Count)
	s.Equal(uint64(7), r.Size)
	// Batch size 2: one partial snapshot plus the final one.
	s.Len(events, 2)
}

// TestWatchLocal tests monitors come from the provider
func (s *ManagerTestSuite) TestWatchLocal() {
	mon, err := s.manager.Watch(s.tempDir)
	s.Require().NoError(err)
	defer mon.Cancel()
	s.Equal(s.tempDir, mon.Path())
}

// TestRunUsesConfiguredDefaultQueue tests the empty lane name
func (s *ManagerTestSuite) TestRunUsesConfiguredDefaultQueue() {
	s.Equal("Main", s.manager.QueueName(""))
	s.Equal("Copy", s.manager.QueueName("Copy"))

	ran := false
	err := s.manager.Run(context.Background(), "", func(context.Context) error {
		ran = true
		s.True(s.manager.Queues().IsActive("Main"))
		return nil
	})
	s.Require().NoError(err)
	s.True(ran)
	s.False(s.manager.Queues().IsActive("Main"))
}

// TestNilConfig tests defaults are used
func (s *ManagerTestSuite) TestNilConfig() {
	m := New(nil)
	s.Equal(config.GetDefaultConfig(), m.Config())
	s.NoError(m.Close())
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}
