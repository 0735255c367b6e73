// Package providertest provides a testify mock of provider.Provider.
package providertest

import (
	"sunflower/pkg/models"
	"sunflower/pkg/monitor"
	"sunflower/pkg/provider"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of provider.Provider for testing
type MockProvider struct {
	mock.Mock
}

var _ provider.Provider = (*MockProvider)(nil)

func (m *MockProvider) IsFile(path, relativeTo string) bool {
	args := m.Called(path, relativeTo)
	return args.Bool(0)
}

func (m *MockProvider) IsDir(path, relativeTo string) bool {
	args := m.Called(path, relativeTo)
	return args.Bool(0)
}

func (m *MockProvider) IsLink(path, relativeTo string) bool {
	args := m.Called(path, relativeTo)
	return args.Bool(0)
}

func (m *MockProvider) Exists(path, relativeTo string) bool {
	args := m.Called(path, relativeTo)
	return args.Bool(0)
}

func (m *MockProvider) GetStat(path, relativeTo string, extended, follow bool) models.Stat {
	args := m.Called(path, relativeTo, extended, follow)
	if args.Get(0) == nil {
		return models.InvalidStat(extended)
	}
	return args.Get(0).(models.Stat)
}

func (m *MockProvider) CreateFile(path string, mode uint32, relativeTo string) error {
	args := m.Called(path, mode, relativeTo)
	return args.Error(0)
}

func (m *MockProvider) CreateDirectory(path string, mode uint32, relativeTo string) error {
	args := m.Called(path, mode, relativeTo)
	return args.Error(0)
}

func (m *MockProvider) RemoveFile(path, relativeTo string) error {
	args := m.Called(path, relativeTo)
	return args.Error(0)
}

func (m *MockProvider) RemoveDirectory(path, relativeTo string) error {
	args := m.Called(path, relativeTo)
	return args.Error(0)
}

func (m *MockProvider) RenamePath(source, destination, relativeTo string) error {
	args := m.Called(source, destination, relativeTo)
	return args.Error(0)
}

func (m *MockProvider) MovePath(source, destination, relativeTo string) error {
	args := m.Called(source, destination, relativeTo)
	return args.Error(0)
}

func (m *MockProvider) ListDir(path, relativeTo string) ([]string, error) {
	args := m.Called(path, relativeTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProvider) GetFileHandle(path string, mode models.OpenMode, relativeTo string) (provider.Handle, error) {
	args := m.Called(path, mode, relativeTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(provider.Handle), args.Error(1)
}

func (m *MockProvider) GetRootPath(path string) string {
	args := m.Called(path)
	return args.String(0)
}

func (m *MockProvider) GetParentPath(path string) string {
	args := m.Called(path)
	return args.String(0)
}

func (m *MockProvider) GetSystemSize(path string) models.SystemSize {
	args := m.Called(path)
	return args.Get(0).(models.SystemSize)
}

func (m *MockProvider) GetMonitor(path string) (monitor.Monitor, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(monitor.Monitor), args.Error(1)
}

func (m *MockProvider) GetSupport() models.SupportSet {
	args := m.Called()
	return args.Get(0).(models.SupportSet)
}

func (m *MockProvider) Protocol() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProvider) IsLocal() bool {
	args := m.Called()
	return args.Bool(0)
}
