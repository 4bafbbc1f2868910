// Package text_display keeps text of every display row, translates it to
// device codepage and scrolls rows longer than display width.
// Safe for concurrent use, serializes access to device.
package text_display

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/paulrosania/go-charset/charset"
	_ "github.com/paulrosania/go-charset/data"
	"github.com/temoto/alive/v2"
	"github.com/temoto/hd44780/log2"
)

const MaxWidth = 40

var spaceBytes = bytes.Repeat([]byte{' '}, MaxWidth)

type TextDisplay struct { //nolint:maligned
	Log   *log2.Log
	alive *alive.Alive
	mu    sync.Mutex
	dev   Devicer
	tr    atomic.Value
	trmu  sync.Mutex // translator reuses one buffer
	width uint32
	rows  int
	state State

	tickd time.Duration
	tick  uint32
	upd   chan<- State
}

type TextDisplayConfig struct {
	Codepage    string
	ScrollDelay time.Duration
	Width       uint32
	Rows        int
}

// Devicer is implemented by *hd44780.LCD
type Devicer interface {
	Clear() error
	MoveCursor(col, row int) error
	Write(b []byte) (int, error)
}

func NewTextDisplay(opt *TextDisplayConfig) (*TextDisplay, error) {
	if opt == nil {
		return nil, errors.NotValidf("text display config nil")
	}
	if opt.Width == 0 || opt.Width > MaxWidth {
		return nil, errors.NotValidf("text display width=%d", opt.Width)
	}
	rows := opt.Rows
	if rows <= 0 {
		rows = 2
	}
	self := &TextDisplay{
		alive: alive.NewAlive(),
		tickd: opt.ScrollDelay,
		width: opt.Width,
		rows:  rows,
		state: State{Lines: make([][]byte, rows)},
	}

	if opt.Codepage != "" {
		if err := self.SetCodepage(opt.Codepage); err != nil {
			return nil, errors.Trace(err)
		}
	}

	return self, nil
}

func (self *TextDisplay) SetCodepage(cp string) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	tr, err := charset.TranslatorTo(cp)
	if err != nil {
		return errors.Annotatef(err, "codepage=%s", cp)
	}
	self.tr.Store(tr)
	return nil
}
func (self *TextDisplay) SetDevice(dev Devicer) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.dev = dev
}
func (self *TextDisplay) SetScrollDelay(d time.Duration) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.tickd = d
}

func (self *TextDisplay) Rows() int { return self.rows }

func (self *TextDisplay) Clear() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.state.Clear()
	if self.dev != nil {
		if err := self.dev.Clear(); err != nil {
			return errors.Annotate(err, "text display clear")
		}
	}
	return self.flush()
}

// Message temporarily shows `lines`, restores previous text after wait() returns.
func (self *TextDisplay) Message(lines []string, wait func()) error {
	next := State{Lines: make([][]byte, self.rows)}
	for i := 0; i < len(lines) && i < self.rows; i++ {
		next.Lines[i] = self.Translate(lines[i])
	}

	self.mu.Lock()
	prev := self.state
	self.state = next
	err := self.flush()
	self.mu.Unlock()

	wait()

	self.mu.Lock()
	defer self.mu.Unlock()
	self.state = prev
	return firstError(err, self.flush())
}

// nil: don't change
// len=0: set empty
func (self *TextDisplay) SetLinesBytes(bs ...[]byte) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	for i, b := range bs {
		if i >= self.rows {
			break
		}
		if b != nil {
			self.state.Lines[i] = b
		}
	}
	atomic.StoreUint32(&self.tick, 0)
	return self.flush()
}

func (self *TextDisplay) SetLines(lines ...string) error {
	bs := make([][]byte, len(lines))
	for i, s := range lines {
		bs[i] = self.Translate(s)
	}
	self.Log.Debugf("display lines=%q", lines)
	return self.SetLinesBytes(bs...)
}

// SetLine changes one row, others are kept.
func (self *TextDisplay) SetLine(row int, s string) error {
	if row < 0 || row >= self.rows {
		return errors.NotValidf("row=%d (display rows=%d)", row, self.rows)
	}
	bs := make([][]byte, row+1)
	bs[row] = self.Translate(s)
	self.Log.Debugf("display line=%d text=%q", row, s)
	return self.SetLinesBytes(bs...)
}

func (self *TextDisplay) Tick() {
	self.mu.Lock()
	defer self.mu.Unlock()

	atomic.AddUint32(&self.tick, 1)
	if err := self.flush(); err != nil {
		self.Log.Error(errors.Annotate(err, "text display tick"))
	}
}

// Run scrolls long lines until Stop. No-op with zero scroll delay.
func (self *TextDisplay) Run() {
	if !self.alive.Add(1) {
		return
	}
	defer self.alive.Done()
	self.mu.Lock()
	delay := self.tickd
	self.mu.Unlock()
	if delay == 0 {
		return
	}
	tmr := time.NewTicker(delay)
	defer tmr.Stop()
	stopch := self.alive.StopChan()

	for self.alive.IsRunning() {
		select {
		case <-tmr.C:
			self.Tick()
		case <-stopch:
			return
		}
	}
}

// Stop waits for Run to return and detaches device.
// Text set after Stop is kept in State only.
func (self *TextDisplay) Stop() {
	self.alive.Stop()
	self.alive.Wait()
	self.SetDevice(nil)
}

// sometimes returns slice into shared spaceBytes
// sometimes returns `b` (len>=width-1)
// sometimes allocates new buffer
func (self *TextDisplay) JustCenter(b []byte) []byte {
	l := len(b)
	w := int(atomic.LoadUint32(&self.width))

	// optimize short paths
	if l == 0 {
		return spaceBytes[:w]
	}
	if l >= w-1 {
		return b
	}
	padtotal := w - l
	n := padtotal / 2
	padleft := spaceBytes[:n]
	padright := spaceBytes[:n+padtotal%2] // account for odd length
	buf := make([]byte, 0, w)
	buf = append(append(append(buf, padleft...), b...), padright...)
	return buf
}

// returns `b` when len>=width
// otherwise pads with spaces
func (self *TextDisplay) PadRight(b []byte) []byte {
	return PadSpace(b, atomic.LoadUint32(&self.width))
}

// Translate converts UTF-8 to display codepage.
// Pads by default, trailing \x00 disables padding.
// Untranslatable text is logged and sent as is.
func (self *TextDisplay) Translate(s string) []byte {
	if len(s) == 0 {
		return spaceBytes[:0]
	}

	pad := true
	if s[len(s)-1] == '\x00' {
		pad = false
		s = s[:len(s)-1]
	}

	result := []byte(s)
	tr, ok := self.tr.Load().(charset.Translator)
	if ok && tr != nil {
		self.trmu.Lock()
		_, tb, err := tr.Translate(result, true)
		if err == nil {
			result = append([]byte(nil), tb...)
		}
		self.trmu.Unlock()
		if err != nil {
			self.Log.Errorf("text display translate text=%q err=%v", s, err)
		}
	}

	if pad {
		result = self.PadRight(result)
	}
	return result
}

func (self *TextDisplay) SetUpdateChan(ch chan<- State) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.upd = ch
}

func (self *TextDisplay) State() State {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.state.Copy()
}

// rewrite without clear, looks smoother
func (self *TextDisplay) flush() error {
	var buf [MaxWidth]byte
	b := buf[:self.width]
	tick := atomic.LoadUint32(&self.tick)
	if self.dev != nil {
		for row, line := range self.state.Lines {
			scrollWrap(b, line, tick)
			if err := self.dev.MoveCursor(0, row); err != nil {
				return errors.Annotatef(err, "text display row=%d", row)
			}
			if _, err := self.dev.Write(b); err != nil {
				return errors.Annotatef(err, "text display row=%d", row)
			}
		}
	}

	if self.upd != nil {
		self.upd <- self.state.Copy()
	}
	return nil
}

func firstError(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

type State struct {
	Lines [][]byte
}

func (s *State) Clear() {
	for i := range s.Lines {
		s.Lines[i] = nil
	}
}

func (s State) Copy() State {
	c := State{Lines: make([][]byte, len(s.Lines))}
	for i, l := range s.Lines {
		c.Lines[i] = append([]byte(nil), l...)
	}
	return c
}

func (s State) Equal(other State) bool {
	if len(s.Lines) != len(other.Lines) {
		return false
	}
	for i := range s.Lines {
		if !bytes.Equal(s.Lines[i], other.Lines[i]) {
			return false
		}
	}
	return true
}

func (s State) Format(width uint32) string {
	ss := make([]string, len(s.Lines))
	for i, l := range s.Lines {
		ss[i] = string(PadSpace(l, width))
	}
	return strings.Join(ss, "\n")
}

func (s State) String() string {
	ss := make([]string, len(s.Lines))
	for i, l := range s.Lines {
		ss[i] = string(l)
	}
	return strings.Join(ss, "\n")
}

// MarshalBinary joins device codepage lines with '\n'.
func (s State) MarshalBinary() ([]byte, error) {
	return bytes.Join(s.Lines, []byte{'\n'}), nil
}

func (s *State) UnmarshalBinary(b []byte) error {
	parts := bytes.Split(b, []byte{'\n'})
	s.Lines = make([][]byte, len(parts))
	for i, p := range parts {
		s.Lines[i] = append([]byte{}, p...)
	}
	return nil
}

func PadSpace(b []byte, width uint32) []byte {
	l := uint32(len(b))

	if l == 0 {
		return spaceBytes[:width]
	}
	if l >= width {
		return b
	}
	buf := make([]byte, 0, width)
	buf = append(append(buf, b...), spaceBytes[:width-l]...)
	return buf
}

// relies that len(buf) == display width
func scrollWrap(buf []byte, content []byte, tick uint32) uint32 {
	length := uint32(len(content))
	width := uint32(len(buf))
	gap := uint32(width / 2)
	n := 0
	if length <= width {
		n = copy(buf, content)
		copy(buf[n:], spaceBytes)
		return uint32(n)
	}

	offset := tick % (length + gap)
	if offset < length {
		n = copy(buf, content[offset:])
	} else {
		gap = gap - (offset - length)
	}
	n += copy(buf[n:], spaceBytes[:gap])
	n += copy(buf[n:], content[0:])
	return uint32(n)
}
