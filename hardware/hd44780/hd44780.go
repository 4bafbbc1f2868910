// Package hd44780 drives HD44780 compatible character LCD controllers
// over parallel 4 or 8 bit GPIO bus using blind timing (no busy flag reads).
//
// Lifecycle: New (pins to idle state) -> Begin (init sequence) -> operations -> Close.
// Open does New and Begin in one call. LCD is not safe for concurrent use.
package hd44780

import (
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/hd44780/hardware/pinio"
	"github.com/temoto/hd44780/helpers"
	"github.com/temoto/hd44780/log2"
)

const (
	MaxCols = 40 // DDRAM line length
	MaxRows = 4
)

// ErrNotReady is returned from bus operations before Begin or after Reset/Close.
var ErrNotReady = errors.New("hd44780 controller not initialized")

type Mode = pinio.Level

const (
	ModeCommand Mode = pinio.Low
	ModeData    Mode = pinio.High
)

type Config struct {
	RS pinio.Pin
	E  pinio.Pin

	// 4 or 8 pins, least significant bit counted from the end:
	// [D4 D5 D6 D7] or [D0 .. D7]
	Data []pinio.Pin

	Backlight pinio.Pin // NoPin if not connected
	Reset     pinio.Pin // NoPin if not connected
	Cols      int
	Rows      int
	Dots      DotSize
	Bus       BusWidth
}

// DefaultConfig has Raspberry Pi wiring used in many tutorials, 16x2 4-bit.
func DefaultConfig() Config {
	return Config{
		RS:        25,
		E:         24,
		Data:      []pinio.Pin{12, 16, 20, 21},
		Backlight: pinio.NoPin,
		Reset:     pinio.NoPin,
		Cols:      16,
		Rows:      2,
	}
}

// BusWidth resolves BusAuto from number of data pins.
// Bus4 with 8 data pins uses last 4 pins (D4-D7).
func (c *Config) BusWidth() BusWidth {
	if c.Bus != BusAuto {
		return c.Bus
	}
	if len(c.Data) >= 8 {
		return Bus8
	}
	return Bus4
}

// Validate checks every field, all problems are reported in one error.
func (c *Config) Validate() error {
	errs := make([]error, 0, 8)
	seen := make(map[pinio.Pin]string, 12)
	checkPin := func(name string, pin pinio.Pin, optional bool) {
		if optional && pin == pinio.NoPin {
			return
		}
		if !pin.Valid() {
			errs = append(errs, errors.NotValidf("pin %s=%d", name, pin))
			return
		}
		if other, ok := seen[pin]; ok {
			errs = append(errs, errors.NotValidf("pin %s=%s already used by %s", name, pin, other))
			return
		}
		seen[pin] = name
	}
	checkPin("rs", c.RS, false)
	checkPin("e", c.E, false)
	for i, pin := range c.Data {
		checkPin(fmt.Sprintf("data[%d]", i), pin, false)
	}
	checkPin("backlight", c.Backlight, true)
	checkPin("reset", c.Reset, true)

	switch len(c.Data) {
	case 4, 8:
	default:
		errs = append(errs, errors.NotValidf("data pins count=%d (expected 4 or 8)", len(c.Data)))
	}
	switch c.Bus {
	case BusAuto, Bus4:
	case Bus8:
		if len(c.Data) != 8 {
			errs = append(errs, errors.NotValidf("8-bit bus with data pins count=%d", len(c.Data)))
		}
	default:
		errs = append(errs, errors.NotValidf("bus width=%d", c.Bus))
	}
	if c.Cols < 1 || c.Cols > MaxCols {
		errs = append(errs, errors.NotValidf("cols=%d (expected 1-%d)", c.Cols, MaxCols))
	}
	if c.Rows < 1 || c.Rows > MaxRows {
		errs = append(errs, errors.NotValidf("rows=%d (expected 1-%d)", c.Rows, MaxRows))
	}
	if c.Dots != Dots5x8 && c.Dots != Dots5x10 {
		errs = append(errs, errors.NotValidf("dots=%d", c.Dots))
	}
	return helpers.FoldErrors(errs)
}

type state uint8

const (
	stateUninitialized state = iota
	stateReady
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateReady:
		return "ready"
	case stateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", s)
}

type LCD struct {
	Log *log2.Log

	drv    pinio.Driver
	rs     pinio.Pin
	e      pinio.Pin
	data   []pinio.Pin // only pins used by bus width
	light  pinio.Pin
	reset  pinio.Pin
	cols   int
	rows   int
	bus    BusWidth
	state  state
	entry  EntryMode
	ctrl   DisplayControl
	fn     FunctionSet
	closed bool
}

// New validates config, configures pins as outputs and sets idle levels.
// Call Begin before any display operation.
func New(drv pinio.Driver, c Config) (*LCD, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Annotate(err, "hd44780 config")
	}
	bus := c.BusWidth()
	self := &LCD{
		drv:   drv,
		rs:    c.RS,
		e:     c.E,
		data:  append([]pinio.Pin(nil), c.Data[len(c.Data)-int(bus):]...),
		light: c.Backlight,
		reset: c.Reset,
		cols:  c.Cols,
		rows:  c.Rows,
		bus:   bus,
		entry: EntryMode{Shift: false, Direction: Increment},
		ctrl:  DisplayControl{Blink: false, Cursor: false, Display: true},
		fn:    FunctionSet{Dots: c.Dots, TwoLine: c.Rows >= 2, Bus: bus},
	}

	outputs := make([]pinio.Pin, 0, 12)
	outputs = append(outputs, self.e, self.rs)
	outputs = append(outputs, self.data...)
	for _, pin := range outputs {
		if err := drv.Output(pin); err != nil {
			return nil, errors.Annotatef(err, "hd44780 configure pin=%s", pin)
		}
		if err := drv.Set(pin, pinio.Low); err != nil {
			return nil, errors.Annotatef(err, "hd44780 idle pin=%s", pin)
		}
	}
	if self.light.Valid() {
		if err := self.setupPin(self.light, pinio.Low); err != nil {
			return nil, errors.Annotate(err, "hd44780 backlight")
		}
	}
	if self.reset.Valid() {
		if err := self.setupPin(self.reset, pinio.High); err != nil {
			return nil, errors.Annotate(err, "hd44780 reset")
		}
	}
	return self, nil
}

// Open is New followed by Begin.
func Open(drv pinio.Driver, c Config) (*LCD, error) {
	self, err := New(drv, c)
	if err != nil {
		return nil, err
	}
	if err = self.Begin(); err != nil {
		return nil, err
	}
	return self, nil
}

func (self *LCD) setupPin(pin pinio.Pin, level pinio.Level) error {
	if err := self.drv.Output(pin); err != nil {
		return errors.Annotatef(err, "configure pin=%s", pin)
	}
	return errors.Annotatef(self.drv.Set(pin, level), "set pin=%s", pin)
}

func (self *LCD) Cols() int               { return self.cols }
func (self *LCD) Rows() int               { return self.rows }
func (self *LCD) Bus() BusWidth           { return self.bus }
func (self *LCD) Ready() bool             { return self.state == stateReady }
func (self *LCD) EntryMode() EntryMode    { return self.entry }
func (self *LCD) Control() DisplayControl { return self.ctrl }
func (self *LCD) Function() FunctionSet   { return self.fn }

// Begin runs power-on initialization sequence. Must be called once after New
// and again after Reset.
func (self *LCD) Begin() error {
	if self.state == stateClosed {
		return ErrNotReady
	}
	self.Log.Debugf("hd44780 begin bus=%d cols=%d rows=%d", self.bus, self.cols, self.rows)
	self.state = stateUninitialized
	if err := self.initSequence(); err != nil {
		return errors.Annotate(err, "hd44780 init")
	}
	self.state = stateReady
	return nil
}

func (self *LCD) initSequence() error {
	self.drv.Sleep(delayPowerOn)

	// datasheet: three 8-bit function set attempts, then (4-bit only) switch nibble
	var attempt func() error
	if self.bus == Bus8 {
		attempt = self.pushFunction
	} else {
		attempt = func() error {
			if err := self.drv.Set(self.rs, ModeCommand); err != nil {
				return errors.Annotate(err, "rs")
			}
			return self.writeBits(4, 0x03)
		}
	}
	if err := attempt(); err != nil {
		return errors.Annotate(err, "attempt 1")
	}
	self.drv.Sleep(delayInitFirst)
	if err := attempt(); err != nil {
		return errors.Annotate(err, "attempt 2")
	}
	self.drv.Sleep(delayInitSecond)
	if err := attempt(); err != nil {
		return errors.Annotate(err, "attempt 3")
	}
	if self.bus == Bus4 {
		if err := self.writeBits(4, 0x02); err != nil {
			return errors.Annotate(err, "switch to 4-bit")
		}
	}

	if err := self.pushFunction(); err != nil {
		return err
	}
	if err := self.pushControl(); err != nil {
		return err
	}
	if err := self.clear(); err != nil {
		return err
	}
	return self.pushEntryMode()
}

func (self *LCD) pushEntryMode() error {
	return errors.Annotate(self.command(self.entry.Command()), "entry mode")
}

func (self *LCD) pushControl() error {
	return errors.Annotate(self.command(self.ctrl.Command()), "display control")
}

func (self *LCD) pushFunction() error {
	return errors.Annotate(self.command(self.fn.Command()), "function set")
}

// SetBacklight is no-op without backlight pin.
func (self *LCD) SetBacklight(on bool) error {
	if !self.light.Valid() || self.closed {
		return nil
	}
	return errors.Annotate(self.drv.Set(self.light, pinio.LevelOf(on)), "hd44780 backlight")
}

// Reset pulses hardware reset line low for `d`. No-op without reset pin.
// Controller needs Begin afterwards.
func (self *LCD) Reset(d time.Duration) error {
	if !self.reset.Valid() || self.closed {
		return nil
	}
	self.Log.Debugf("hd44780 reset duration=%s", d)
	self.state = stateUninitialized
	if err := self.drv.Set(self.reset, pinio.Low); err != nil {
		return errors.Annotate(err, "hd44780 reset")
	}
	self.drv.Sleep(d)
	return errors.Annotate(self.drv.Set(self.reset, pinio.High), "hd44780 reset")
}

// Close returns pins to idle state (enable low, backlight off) and releases driver.
// With `clear` display memory is cleared first if controller was initialized.
// Repeated calls are no-op.
func (self *LCD) Close(clear bool) error {
	if self.closed {
		return nil
	}
	self.closed = true
	errs := make([]error, 0, 4)
	if clear && self.state == stateReady {
		errs = append(errs, self.clear())
	}
	self.state = stateClosed
	errs = append(errs, errors.Annotate(self.drv.Set(self.e, pinio.Low), "enable"))
	if self.light.Valid() {
		errs = append(errs, errors.Annotate(self.drv.Set(self.light, pinio.Low), "backlight"))
	}
	errs = append(errs, self.drv.Close())
	err := helpers.FoldErrors(errs)
	if err != nil {
		self.Log.Errorf("hd44780 close err=%v", err)
	}
	return err
}
