package pinio

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/hd44780/helpers"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// Periph drives pins through periph.io host drivers (sysfs, bcm283x, etc).
type Periph struct {
	byName func(name string) gpio.PinIO
	pins   map[Pin]gpio.PinIO
	closed uint32
}

func OpenPeriph() (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Annotate(err, "periph/init")
	}
	return newPeriph(gpioreg.ByName), nil
}

func newPeriph(byName func(string) gpio.PinIO) *Periph {
	return &Periph{
		byName: byName,
		pins:   make(map[Pin]gpio.PinIO),
	}
}

func (self *Periph) Output(pin Pin) error {
	if !pin.Valid() {
		return errors.NotValidf("pin=%s", pin)
	}
	p := self.byName(strconv.Itoa(int(pin)))
	if p == nil {
		return errors.NotFoundf("periph gpio=%s", pin)
	}
	if err := p.Out(gpio.Low); err != nil {
		return errors.Annotatef(err, "periph output pin=%s", pin)
	}
	self.pins[pin] = p
	return nil
}

func (self *Periph) Set(pin Pin, level Level) error {
	p, ok := self.pins[pin]
	if !ok {
		return errors.NotFoundf("periph pin=%s not configured as output", pin)
	}
	if err := p.Out(level == High); err != nil {
		return errors.Annotatef(err, "periph set pin=%s level=%s", pin, level)
	}
	return nil
}

func (self *Periph) Sleep(d time.Duration) { Sleep(d) }

// Close halts pins. periph keeps pin ownership process wide, nothing else to release.
// Pins are forgotten even when Halt fails.
func (self *Periph) Close() error {
	if atomic.AddUint32(&self.closed, 1) != 1 {
		return nil
	}
	var errs []error
	for pin, p := range self.pins {
		if err := p.Halt(); err != nil {
			errs = append(errs, errors.Annotatef(err, "periph halt pin=%s", pin))
		}
		delete(self.pins, pin)
	}
	return helpers.FoldErrors(errs)
}

// compile-time interface check
var _ Driver = &Periph{}
