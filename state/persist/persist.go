package persist

import (
	"encoding"
	"encoding/binary"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/extremofile"
	"github.com/temoto/hd44780/log2"
)

type Stater interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type storage interface {
	Read() ([]byte, error)
	io.Writer
}

const headerSize = 4

// Persist binds Stater to file storage under root/tag.
// Zero root disables storage, Load and Store become no-op.
// Storage overwrites file without truncate, so record is length prefixed
// and padded to the largest size seen.
type Persist struct {
	sync.Mutex
	log     *log2.Log
	tag     string
	target  Stater
	storage storage
	size    int
}

func (self *Persist) Init(tag string, target Stater, root string, log *log2.Log) error {
	if target == nil {
		return errors.NotValidf("persist %s target nil", tag)
	}
	self.tag = tag
	self.log = log
	self.target = target
	if root == "" {
		self.log.Debugf("persist %s disabled", self.tag)
		return nil
	}
	self.storage = extremofile.New(extremofile.Config{
		Dir:      filepath.Join(root, tag),
		DirPerm:  0755,
		FilePerm: 0644,
	})
	return nil
}

func (self *Persist) Enabled() bool { return self.storage != nil }

// Load returns nil and keeps target unchanged when nothing was stored yet.
func (self *Persist) Load() error {
	if self.tag == "" {
		panic("code error persist must call .Init() first")
	}
	if self.storage == nil {
		return nil
	}
	self.Lock()
	defer self.Unlock()
	tbegin := time.Now()
	b, err := self.storage.Read()
	self.log.Debugf("persist %s storage.read duration=%v", self.tag, time.Since(tbegin))
	if b != nil {
		if err != nil {
			self.log.Errorf("persist %s ignore non-critical storage err=%v", self.tag, err)
		}
		var data []byte
		if data, err = self.unframe(b); err == nil {
			err = self.target.UnmarshalBinary(data)
		}
	}
	return errors.Annotatef(err, "persist %s Load", self.tag)
}

func (self *Persist) Store() error {
	if self.tag == "" {
		panic("code error persist must call .Init() first")
	}
	if self.storage == nil {
		return nil
	}
	self.Lock()
	defer self.Unlock()
	b, err := self.target.MarshalBinary()
	if err == nil {
		tbegin := time.Now()
		_, err = self.storage.Write(self.frame(b))
		self.log.Debugf("persist %s storage.write duration=%v", self.tag, time.Since(tbegin))
	}
	return errors.Annotatef(err, "persist %s Store", self.tag)
}

func (self *Persist) frame(b []byte) []byte {
	n := headerSize + len(b)
	if n > self.size {
		self.size = n
	}
	buf := make([]byte, self.size)
	binary.BigEndian.PutUint32(buf, uint32(len(b)))
	copy(buf[headerSize:], b)
	return buf
}

func (self *Persist) unframe(b []byte) ([]byte, error) {
	if len(b) < headerSize {
		return nil, errors.NotValidf("persist %s record length=%d", self.tag, len(b))
	}
	n := int(binary.BigEndian.Uint32(b))
	if headerSize+n > len(b) {
		return nil, errors.NotValidf("persist %s record header=%d length=%d", self.tag, n, len(b))
	}
	if len(b) > self.size {
		self.size = len(b)
	}
	return b[headerSize : headerSize+n], nil
}
