package mocks

import (
	"io"

	"docvault/internal/model"
	"docvault/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockFileStore struct {
	mock.Mock
}

var _ storage.FileStore = (*MockFileStore)(nil)

func (m *MockFileStore) EnsureCategoryDir(category model.Category) (string, error) {
	args := m.Called(category)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) GenerateFilename(originalName string) string {
	args := m.Called(originalName)
	return args.String(0)
}

func (m *MockFileStore) RelativePath(category model.Category, filename string) string {
	args := m.Called(category, filename)
	return args.String(0)
}

func (m *MockFileStore) Stage(r io.Reader, filename string, limit int64) (string, int64, error) {
	args := m.Called(r, filename, limit)
	return args.String(0), args.Get(1).(int64), args.Error(2)
}

func (m *MockFileStore) DetectContentType(stagedPath string) (string, error) {
	args := m.Called(stagedPath)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) Discard(stagedPath string) error {
	args := m.Called(stagedPath)
	return args.Error(0)
}

func (m *MockFileStore) Place(stagedPath string, category model.Category, filename string) (string, error) {
	args := m.Called(stagedPath, category, filename)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) Move(oldCategory, newCategory model.Category, filename string) (bool, error) {
	args := m.Called(oldCategory, newCategory, filename)
	return args.Bool(0), args.Error(1)
}

func (m *MockFileStore) Delete(relativePath string) (bool, error) {
	args := m.Called(relativePath)
	return args.Bool(0), args.Error(1)
}

func (m *MockFileStore) Exists(relativePath string) bool {
	args := m.Called(relativePath)
	return args.Bool(0)
}

func (m *MockFileStore) Size(relativePath string) int64 {
	args := m.Called(relativePath)
	return args.Get(0).(int64)
}

func (m *MockFileStore) Open(relativePath string) (io.ReadCloser, int64, error) {
	args := m.Called(relativePath)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(int64), args.Error(2)
}

func (m *MockFileStore) List() (map[model.Category][]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[model.Category][]string), args.Error(1)
}
