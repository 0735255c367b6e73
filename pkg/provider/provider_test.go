package provider_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sunflower/pkg/models"
	"sunflower/pkg/provider"
	"sunflower/pkg/provider/providertest"

	"github.com/stretchr/testify/suite"
)

// capableProvider adds every optional capability to the mock
type capableProvider struct {
	providertest.MockProvider
}

func (m *capableProvider) SetMode(path string, mode uint32, relativeTo string) error {
	return m.Called(path, mode, relativeTo).Error(0)
}

func (m *capableProvider) SetOwner(path string, uid, gid int, relativeTo string) error {
	return m.Called(path, uid, gid, relativeTo).Error(0)
}

func (m *capableProvider) SetTimestamp(path string, access, modify time.Time, relativeTo string) error {
	return m.Called(path, access, modify, relativeTo).Error(0)
}

func (m *capableProvider) TrashPath(path, relativeTo string) error {
	return m.Called(path, relativeTo).Error(0)
}

func (m *capableProvider) Link(target, name string, symbolic bool, relativeTo string) error {
	return m.Called(target, name, symbolic, relativeTo).Error(0)
}

// CapabilityTestSuite tests the capability helpers
type CapabilityTestSuite struct {
	suite.Suite
	plain   *providertest.MockProvider
	capable *capableProvider
}

// SetupTest runs before each test
func (s *CapabilityTestSuite) SetupTest() {
	s.plain = new(providertest.MockProvider)
	s.plain.On("Protocol").Return("plain").Maybe()

	s.capable = new(capableProvider)
	s.capable.On("Protocol").Return("capable").Maybe()
}

// TearDownTest runs after each test
func (s *CapabilityTestSuite) TearDownTest() {
	s.capable.AssertExpectations(s.T())
}

// TestUndeclaredCapabilityIsRefused tests misuse never silently succeeds
func (s *CapabilityTestSuite) TestUndeclaredCapabilityIsRefused() {
	s.plain.On("GetSupport").Return(models.NewSupportSet())

	err := provider.SetMode(s.plain, "/a", 0o600, "")
	s.ErrorIs(err, provider.ErrUnsupported)

	var unsupported *provider.UnsupportedError
	s.Require().True(errors.As(err, &unsupported))
	s.Equal("set_mode", unsupported.Op)
	s.Equal("plain", unsupported.Protocol)

	s.ErrorIs(provider.SetOwner(s.plain, "/a", 1, 1, ""), provider.ErrUnsupported)
	s.ErrorIs(provider.SetTimestamp(s.plain, "/a", time.Now(), time.Now(), ""), provider.ErrUnsupported)
	s.ErrorIs(provider.Link(s.plain, "/a", "/b", true, ""), provider.ErrUnsupported)
}

// TestDeclaredButNotImplemented tests a flag alone is not enough
func (s *CapabilityTestSuite) TestDeclaredButNotImplemented() {
	s.plain.On("GetSupport").Return(models.NewSupportSet(models.SupportSetAccess, models.SupportTrash))

	s.ErrorIs(provider.SetMode(s.plain, "/a", 0o600, ""), provider.ErrUnsupported)

	err := provider.TrashPath(s.plain, "/a", "")
	var trashErr *provider.TrashError
	s.Require().True(errors.As(err, &trashErr))
	s.ErrorIs(err, provider.ErrUnsupported)
}

// TestDeclaredAndImplemented tests the helpers dispatch to the provider
func (s *CapabilityTestSuite) TestDeclaredAndImplemented() {
	s.capable.On("GetSupport").Return(models.NewSupportSet(
		models.SupportSetAccess,
		models.SupportSetOwner,
		models.SupportSetTimestamp,
		models.SupportSymbolicLink,
	))
	when := time.Unix(1700000000, 0)

	s.capable.On("SetMode", "/a", uint32(0o640), "/base").Return(nil).Once()
	s.capable.On("SetOwner", "/a", 10, 20, "").Return(nil).Once()
	s.capable.On("SetTimestamp", "/a", when, when, "").Return(nil).Once()
	s.capable.On("Link", "/a", "/b", true, "").Return(nil).Once()

	s.NoError(provider.SetMode(s.capable, "/a", 0o640, "/base"))
	s.NoError(provider.SetOwner(s.capable, "/a", 10, 20, ""))
	s.NoError(provider.SetTimestamp(s.capable, "/a", when, when, ""))
	s.NoError(provider.Link(s.capable, "/a", "/b", true, ""))

	// Hard links are a separate capability.
	s.ErrorIs(provider.Link(s.capable, "/a", "/c", false, ""), provider.ErrUnsupported)
}

// TestTrashFailureIsWrapped tests the cause survives wrapping
func (s *CapabilityTestSuite) TestTrashFailureIsWrapped() {
	s.capable.On("GetSupport").Return(models.NewSupportSet(models.SupportTrash))
	s.capable.On("TrashPath", "/a", "").Return(os.ErrPermission).Once()

	err := provider.TrashPath(s.capable, "/a", "")
	var trashErr *provider.TrashError
	s.Require().True(errors.As(err, &trashErr))
	s.Equal("/a", trashErr.Path)
	s.ErrorIs(err, os.ErrPermission)
}

func TestCapabilitySuite(t *testing.T) {
	suite.Run(t, new(CapabilityTestSuite))
}

// RegistryTestSuite tests scheme and content type lookups
type RegistryTestSuite struct {
	suite.Suite
	registry *provider.Registry
	opened   []provider.Options
}

// SetupTest runs before each test
func (s *RegistryTestSuite) SetupTest() {
	s.registry = provider.NewRegistry()
	s.opened = nil

	factory := func(protocol string) provider.Factory {
		return func(opts provider.Options) (provider.Provider, error) {
			s.opened = append(s.opened, opts)
			m := new(providertest.MockProvider)
			m.On("Protocol").Return(protocol)
			return m, nil
		}
	}
	s.registry.Register("file", factory("file"))
	s.registry.Register("SMB", factory("smb"))
	s.registry.RegisterContentType(provider.ContentTypeZip, factory("zip"))
}

// TestOpenByScheme tests scheme lookup is case-insensitive
func (s *RegistryTestSuite) TestOpenByScheme() {
	p, err := s.registry.Open("smb://server/share/dir", provider.Options{Owner: "left"})
	s.Require().NoError(err)
	s.Equal("smb", p.Protocol())
	s.Equal("left", s.opened[0].Owner)

	p, err = s.registry.Open("/home/user", provider.Options{})
	s.Require().NoError(err)
	s.Equal("file", p.Protocol())

	s.Equal([]string{"file", "smb"}, s.registry.Schemes())
}

// TestUnknownScheme tests the sentinel error
func (s *RegistryTestSuite) TestUnknownScheme() {
	_, err := s.registry.Open("gopher://host/", provider.Options{})
	s.ErrorIs(err, provider.ErrUnknownScheme)
}

// TestFactoryError tests factory failures are wrapped
func (s *RegistryTestSuite) TestFactoryError() {
	boom := errors.New("boom")
	s.registry.Register("ftp", func(provider.Options) (provider.Provider, error) { return nil, boom })

	_, err := s.registry.Open("ftp://host/", provider.Options{})
	s.ErrorIs(err, boom)
}

// TestOpenArchive tests archive detection by extension and signature
func (s *RegistryTestSuite) TestOpenArchive() {
	dir := s.T().TempDir()
	named := filepath.Join(dir, "bundle.zip")
	sniffed := filepath.Join(dir, "bundle.data")
	plain := filepath.Join(dir, "notes.data")
	s.Require().NoError(os.WriteFile(named, nil, 0o600))
	s.Require().NoError(os.WriteFile(sniffed, []byte("PK\x03\x04rest"), 0o600))
	s.Require().NoError(os.WriteFile(plain, []byte("hello"), 0o600))

	p, err := s.registry.OpenArchive(named, provider.Options{})
	s.Require().NoError(err)
	s.Equal("zip", p.Protocol())
	s.Equal(named, s.opened[0].BasePath)

	s.True(s.registry.IsArchive(sniffed))
	s.False(s.registry.IsArchive(plain))

	_, err = s.registry.OpenArchive(plain, provider.Options{})
	s.ErrorIs(err, provider.ErrUnsupported)
}

// TestDetectContentType tests the java archive aliases
func (s *RegistryTestSuite) TestDetectContentType() {
	s.Equal(provider.ContentTypeJar, provider.DetectContentType("/x/app.JAR"))
	s.Equal(provider.ContentTypeWar, provider.DetectContentType("/x/app.war"))
	s.Equal("application/octet-stream", provider.DetectContentType("/does/not/exist"))

	sniffed := filepath.Join(s.T().TempDir(), "bundle")
	s.Require().NoError(os.WriteFile(sniffed, []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00"), 0o600))
	s.Equal(provider.ContentTypeZip, provider.DetectContentType(sniffed))
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

// BaseTestSuite tests the safe defaults
type BaseTestSuite struct {
	suite.Suite
	base *provider.Base
}

// SetupTest runs before each test
func (s *BaseTestSuite) SetupTest() {
	s.base = provider.NewBase("test", models.NewSupportSet(), false, provider.Options{
		Owner:     "right",
		BasePath:  "/archive.zip",
		Selection: []string{"a", "b"},
	})
}

// TestDefaults tests every mutator refuses
func (s *BaseTestSuite) TestDefaults() {
	s.ErrorIs(s.base.CreateFile("a", 0o644, ""), provider.ErrUnsupported)
	s.ErrorIs(s.base.CreateDirectory("a", 0o755, ""), provider.ErrUnsupported)
	s.ErrorIs(s.base.RemoveFile("a", ""), provider.ErrUnsupported)
	s.ErrorIs(s.base.RemoveDirectory("a", ""), provider.ErrUnsupported)
	s.ErrorIs(s.base.RenamePath("a", "b", ""), provider.ErrUnsupported)
	s.ErrorIs(s.base.MovePath("a", "b", ""), provider.ErrUnsupported)

	h, err := s.base.GetFileHandle("a", models.OpenRead, "")
	s.Nil(h)
	s.ErrorIs(err, provider.ErrUnsupported)

	s.True(s.base.GetSystemSize("/").IsZero())
	s.Empty(s.base.GetSupport().List())
}

// TestAccessors tests the shared construction parameters
func (s *BaseTestSuite) TestAccessors() {
	s.Equal("test", s.base.Protocol())
	s.False(s.base.IsLocal())
	s.Equal("right", s.base.Owner())
	s.Equal("/archive.zip", s.base.BasePath())

	selection := s.base.Selection()
	selection[0] = "changed"
	s.Equal([]string{"a", "b"}, s.base.Selection())
}

// TestParentNeverClimbsAboveRoot tests path navigation defaults
func (s *BaseTestSuite) TestParentNeverClimbsAboveRoot() {
	s.Equal("/", s.base.GetParentPath("/"))
	s.Equal("/home", s.base.GetParentPath("/home/user"))
	s.Equal("/", s.base.GetRootPath("/home/user"))
	s.Equal("ftp://host/", s.base.GetRootPath("ftp://host/pub/file"))
}

// TestBaseMonitor tests the default monitor has no queue
func (s *BaseTestSuite) TestBaseMonitor() {
	m, err := s.base.GetMonitor("/x")
	s.Require().NoError(err)
	defer m.Cancel()
	s.Nil(m.Queue())
	s.False(m.IsQueueBased())
}

func TestBaseSuite(t *testing.T) {
	suite.Run(t, new(BaseTestSuite))
}
