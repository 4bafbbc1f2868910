package state

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/juju/errors"
)

// FullReader resolves config source names and reads whole source.
// ReadAll returns nil,nil when source does not exist.
type FullReader interface {
	Normalize(name string) string
	ReadAll(name string) ([]byte, error)
}

// OsFullReader resolves relative names against base directory.
type OsFullReader struct {
	base string
}

var _ FullReader = &OsFullReader{}  // compile-time interface check
var _ FullReader = MockFullReader{} // compile-time interface check

func NewOsFullReader(base string) *OsFullReader {
	self := &OsFullReader{}
	self.SetBase(base)
	return self
}

func (self *OsFullReader) SetBase(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	self.base = abs
}

func (self *OsFullReader) Normalize(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(self.base, name)
}

func (*OsFullReader) ReadAll(path string) ([]byte, error) {
	b, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return b, errors.Trace(err)
}

// MockFullReader serves config sources from memory, name -> content.
type MockFullReader map[string]string

func NewMockFullReader(sources map[string]string) MockFullReader { return MockFullReader(sources) }

func (MockFullReader) Normalize(name string) string { return filepath.Clean(name) }

func (self MockFullReader) ReadAll(name string) ([]byte, error) {
	if s, ok := self[name]; ok {
		return []byte(s), nil
	}
	return nil, nil
}
