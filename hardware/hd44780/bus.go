package hd44780

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/hd44780/hardware/pinio"
)

const (
	delayEnable     = 10 * time.Microsecond  // enable pulse must be > 450ns
	delaySettle     = 100 * time.Microsecond // commands need > 37us to settle
	delayClear      = 2 * time.Millisecond   // clear and return home need > 1.52ms
	delayPowerOn    = 50 * time.Millisecond  // > 40ms after Vcc rises to 2.7V
	delayInitFirst  = 4500 * time.Microsecond
	delayInitSecond = 150 * time.Microsecond
)

// Controller samples data lines on falling edge, enable must idle low.
func (self *LCD) pulseEnable() error {
	if err := self.drv.Set(self.e, pinio.Low); err != nil {
		return errors.Annotate(err, "enable")
	}
	self.drv.Sleep(delayEnable)
	if err := self.drv.Set(self.e, pinio.High); err != nil {
		return errors.Annotate(err, "enable")
	}
	self.drv.Sleep(delayEnable)
	if err := self.drv.Set(self.e, pinio.Low); err != nil {
		return errors.Annotate(err, "enable")
	}
	self.drv.Sleep(delaySettle)
	return nil
}

// writeBits puts low `bits` of value on last `bits` data lines and latches them.
func (self *LCD) writeBits(bits int, value byte) error {
	offset := len(self.data) - bits
	for i := 0; i < bits; i++ {
		pin := self.data[offset+i]
		if err := self.drv.Set(pin, pinio.Level((value>>uint(i))&1)); err != nil {
			return errors.Annotatef(err, "data bit=%d", i)
		}
	}
	return self.pulseEnable()
}

// send transfers one byte, 4-bit bus takes high nibble first.
func (self *LCD) send(value byte, mode Mode) error {
	if err := self.drv.Set(self.rs, mode); err != nil {
		return errors.Annotate(err, "rs")
	}
	if self.bus == Bus8 {
		return self.writeBits(8, value)
	}
	if err := self.writeBits(4, (value>>4)&0x0f); err != nil {
		return err
	}
	return self.writeBits(4, value&0x0f)
}

func (self *LCD) command(c Command) error { return self.send(byte(c), ModeCommand) }

// Command sends raw instruction byte.
func (self *LCD) Command(c Command) error {
	if self.state != stateReady {
		return ErrNotReady
	}
	return errors.Annotatef(self.command(c), "hd44780 command=%02x", byte(c))
}

// Data sends raw byte to DDRAM or CGRAM, depending on last address command.
func (self *LCD) Data(b byte) error {
	if self.state != stateReady {
		return ErrNotReady
	}
	return errors.Annotatef(self.send(b, ModeData), "hd44780 data=%02x", b)
}
