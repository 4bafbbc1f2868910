package hd44780

import (
	"bytes"

	"github.com/juju/errors"
)

const ddramLine2 = 0x40

func (self *LCD) clear() error {
	if err := self.command(CommandClear); err != nil {
		return errors.Annotate(err, "clear")
	}
	self.drv.Sleep(delayClear)
	return nil
}

// Clear blanks display and moves cursor to origin.
func (self *LCD) Clear() error {
	if self.state != stateReady {
		return ErrNotReady
	}
	return errors.Annotate(self.clear(), "hd44780")
}

// Home moves cursor to origin and undoes display shift, DDRAM is kept.
func (self *LCD) Home() error {
	if self.state != stateReady {
		return ErrNotReady
	}
	if err := self.command(CommandReturn); err != nil {
		return errors.Annotate(err, "hd44780 home")
	}
	self.drv.Sleep(delayClear)
	return nil
}

// Lines 3 and 4 are continuation of 1 and 2 in DDRAM.
func (self *LCD) rowOffset(row int) int {
	switch row {
	case 0:
		return 0
	case 1:
		return ddramLine2
	case 2:
		return self.cols
	default:
		return ddramLine2 + self.cols
	}
}

// Address returns DDRAM address for position, clamped to display edges.
func (self *LCD) Address(col, row int) byte {
	col = clamp(col, 0, self.cols)
	row = clamp(row, 0, self.rows)
	if row >= MaxRows {
		row = MaxRows - 1
	}
	return byte(self.rowOffset(row)+col) & 0x7f
}

// MoveCursor out of range position is silently clamped.
func (self *LCD) MoveCursor(col, row int) error {
	if self.state != stateReady {
		return ErrNotReady
	}
	addr := self.Address(col, row)
	return errors.Annotatef(self.command(CommandAddress|Command(addr)), "hd44780 move cursor col=%d row=%d", col, row)
}

// Shift cursor (or whole display) `count` positions left, negative count shifts right.
func (self *LCD) Shift(count int, display bool) error {
	if self.state != stateReady {
		return ErrNotReady
	}
	left := count > 0
	if count < 0 {
		count = -count
	}
	c := ShiftCommand(left, display)
	for i := 0; i < count; i++ {
		if err := self.command(c); err != nil {
			return errors.Annotatef(err, "hd44780 shift %d/%d", i+1, count)
		}
	}
	return nil
}

// CreateChar stores custom glyph into CGRAM slot `addr` (0-7, higher bits ignored).
// Always writes 8 rows, missing rows are zero.
// Leaves address counter in CGRAM, use MoveCursor before writing text.
func (self *LCD) CreateChar(addr byte, glyph []byte) error {
	if self.state != stateReady {
		return ErrNotReady
	}
	addr &= 0x7
	if err := self.command(CommandCharAddress | Command(addr<<3)); err != nil {
		return errors.Annotatef(err, "hd44780 create char=%d", addr)
	}
	for i := 0; i < 8; i++ {
		var b byte
		if i < len(glyph) {
			b = glyph[i]
		}
		if err := self.send(b, ModeData); err != nil {
			return errors.Annotatef(err, "hd44780 create char=%d row=%d", addr, i)
		}
	}
	return nil
}

// Write sends bytes as is, must be valid in controller character ROM.
// Implements io.Writer.
func (self *LCD) Write(b []byte) (int, error) {
	if self.state != stateReady {
		return 0, ErrNotReady
	}
	for i, x := range b {
		if err := self.send(x, ModeData); err != nil {
			return i, errors.Annotatef(err, "hd44780 write offset=%d", i)
		}
	}
	return len(b), nil
}

func (self *LCD) WriteString(s string) error {
	_, err := self.Write([]byte(s))
	return err
}

// WriteLine overwrites whole row: text is padded with spaces or truncated to width.
func (self *LCD) WriteLine(row int, s string) error {
	if self.state != stateReady {
		return ErrNotReady
	}
	line := make([]byte, self.cols)
	n := copy(line, s)
	copy(line[n:], bytes.Repeat([]byte{' '}, self.cols-n))
	if err := self.MoveCursor(0, row); err != nil {
		return err
	}
	_, err := self.Write(line)
	return err
}

func (self *LCD) SetShift(shift bool) error {
	self.entry.Shift = shift
	return self.pushIfReady(self.pushEntryMode)
}

func (self *LCD) SetDirection(d Direction) error {
	self.entry.Direction = d
	return self.pushIfReady(self.pushEntryMode)
}

func (self *LCD) SetBlink(blink bool) error {
	self.ctrl.Blink = blink
	return self.pushIfReady(self.pushControl)
}

func (self *LCD) SetCursor(cursor bool) error {
	self.ctrl.Cursor = cursor
	return self.pushIfReady(self.pushControl)
}

func (self *LCD) SetDisplay(on bool) error {
	self.ctrl.Display = on
	return self.pushIfReady(self.pushControl)
}

// Before Begin setters only change state, init sequence will push it.
func (self *LCD) pushIfReady(push func() error) error {
	switch self.state {
	case stateReady:
		return errors.Annotate(push(), "hd44780")
	case stateClosed:
		return ErrNotReady
	}
	return nil
}

func clamp(x, min, max int) int {
	if x > max {
		return max
	}
	if x < min {
		return min
	}
	return x
}
