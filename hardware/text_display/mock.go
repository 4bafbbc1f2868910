package text_display

import (
	"strings"
	"sync"
)

func NewMockTextDisplay(opt *TextDisplayConfig) (*TextDisplay, *MockDevicer) {
	dev := new(MockDevicer)
	display, err := NewTextDisplay(opt)
	if err != nil {
		panic(err)
	}
	display.dev = dev
	return display, dev
}

// MockDevicer keeps last text written into each row.
type MockDevicer struct {
	mu       sync.Mutex
	rows     map[int][]byte
	col, row int
	Clears   int
	Err      error
}

func (self *MockDevicer) Clear() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.rows = nil
	self.Clears++
	return self.Err
}

func (self *MockDevicer) MoveCursor(col, row int) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.col, self.row = col, row
	return self.Err
}

func (self *MockDevicer) Write(b []byte) (int, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.Err != nil {
		return 0, self.Err
	}
	if self.rows == nil {
		self.rows = make(map[int][]byte)
	}
	line := self.rows[self.row]
	for len(line) < self.col {
		line = append(line, ' ')
	}
	line = append(line[:self.col], b...)
	self.rows[self.row] = line
	self.col += len(b)
	return len(b), nil
}

func (self *MockDevicer) Row(row int) string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return string(self.rows[row])
}

func (self *MockDevicer) String() string {
	self.mu.Lock()
	defer self.mu.Unlock()
	n := 0
	for row := range self.rows {
		if row+1 > n {
			n = row + 1
		}
	}
	ss := make([]string, n)
	for row, b := range self.rows {
		ss[row] = string(b)
	}
	return strings.Join(ss, "\n")
}
