package hd44780

import (
	"fmt"

	"github.com/juju/errors"
)

type Command byte

const (
	CommandClear       Command = 0x01
	CommandReturn      Command = 0x02
	CommandEntryMode   Command = 0x04
	CommandControl     Command = 0x08
	CommandShift       Command = 0x10
	CommandFunction    Command = 0x20
	CommandCharAddress Command = 0x40
	CommandAddress     Command = 0x80
)

const (
	entryShift     = 0x01
	entryIncrement = 0x02

	controlBlink   = 0x01
	controlCursor  = 0x02
	controlDisplay = 0x04

	shiftRight   = 0x04
	shiftDisplay = 0x08

	functionDots5x10 = 0x04
	functionTwoLine  = 0x08
	function8Bit     = 0x10
)

// Cursor movement after each data write.
type Direction int8

const (
	// Sends I/D bit clear, same as Decrement. Can not be decoded back.
	DirectionUnspecified Direction = -1
	Decrement            Direction = 0
	Increment            Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Increment:
		return "increment"
	case Decrement:
		return "decrement"
	case DirectionUnspecified:
		return "unspecified"
	}
	return fmt.Sprintf("Direction(%d)", int8(d))
}

type DotSize byte

const (
	Dots5x8  DotSize = 0 // aka 5x7, cursor line is 8th
	Dots5x10 DotSize = 1 // aka 5x11
)

func (d DotSize) String() string {
	if d == Dots5x10 {
		return "5x10"
	}
	return "5x8"
}

func ParseDotSize(s string) (DotSize, error) {
	switch s {
	case "", "5x8", "5x7":
		return Dots5x8, nil
	case "5x10", "5x11":
		return Dots5x10, nil
	}
	return Dots5x8, errors.NotValidf("dot size=%s", s)
}

type BusWidth uint8

const (
	BusAuto BusWidth = 0 // from number of data pins
	Bus4    BusWidth = 4
	Bus8    BusWidth = 8
)

type EntryMode struct {
	Shift     bool // shift display on each data write
	Direction Direction
}

func (m EntryMode) Command() Command {
	c := CommandEntryMode
	if m.Shift {
		c |= entryShift
	}
	if m.Direction == Increment {
		c |= entryIncrement
	}
	return c
}

func DecodeEntryMode(c Command) (EntryMode, error) {
	if c&0xfc != CommandEntryMode {
		return EntryMode{}, errors.NotValidf("entry mode command=%02x", byte(c))
	}
	m := EntryMode{Shift: c&entryShift != 0, Direction: Decrement}
	if c&entryIncrement != 0 {
		m.Direction = Increment
	}
	return m, nil
}

type DisplayControl struct {
	Blink   bool
	Cursor  bool
	Display bool
}

func (dc DisplayControl) Command() Command {
	c := CommandControl
	if dc.Blink {
		c |= controlBlink
	}
	if dc.Cursor {
		c |= controlCursor
	}
	if dc.Display {
		c |= controlDisplay
	}
	return c
}

func DecodeDisplayControl(c Command) (DisplayControl, error) {
	if c&0xf8 != CommandControl {
		return DisplayControl{}, errors.NotValidf("display control command=%02x", byte(c))
	}
	return DisplayControl{
		Blink:   c&controlBlink != 0,
		Cursor:  c&controlCursor != 0,
		Display: c&controlDisplay != 0,
	}, nil
}

type FunctionSet struct {
	Dots    DotSize
	TwoLine bool
	Bus     BusWidth
}

func (f FunctionSet) Command() Command {
	c := CommandFunction
	if f.Dots == Dots5x10 {
		c |= functionDots5x10
	}
	if f.TwoLine {
		c |= functionTwoLine
	}
	if f.Bus == Bus8 {
		c |= function8Bit
	}
	return c
}

// Low two bits are "don't care" in datasheet and ignored.
func DecodeFunctionSet(c Command) (FunctionSet, error) {
	if c&0xe0 != CommandFunction {
		return FunctionSet{}, errors.NotValidf("function set command=%02x", byte(c))
	}
	f := FunctionSet{Dots: Dots5x8, TwoLine: c&functionTwoLine != 0, Bus: Bus4}
	if c&functionDots5x10 != 0 {
		f.Dots = Dots5x10
	}
	if c&function8Bit != 0 {
		f.Bus = Bus8
	}
	return f, nil
}

// ShiftCommand moves cursor or whole display one position.
func ShiftCommand(left bool, display bool) Command {
	c := CommandShift
	if !left {
		c |= shiftRight
	}
	if display {
		c |= shiftDisplay
	}
	return c
}
