package pinio

import (
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"
	"github.com/temoto/hd44780/helpers"
)

const DefaultConsumer = "hd44780"

// Cdev drives pins through Linux GPIO character device, one line handle per output pin.
type Cdev struct {
	chip     gpio.Chiper
	consumer string
	lines    map[Pin]cdevLine
	closed   uint32
}

type cdevLine struct {
	handle gpio.Lineser
	set    gpio.LineSetFunc
}

// `path` is likely "/dev/gpiochip0"
func OpenCdev(path, consumer string) (*Cdev, error) {
	if consumer == "" {
		consumer = DefaultConsumer
	}
	chip, err := gpio.Open(path, consumer)
	if err != nil {
		return nil, errors.Annotatef(err, "gpio open chip=%s", path)
	}
	return NewCdev(chip, consumer), nil
}

// NewCdev takes ownership of already open chip.
func NewCdev(chip gpio.Chiper, consumer string) *Cdev {
	if consumer == "" {
		consumer = DefaultConsumer
	}
	return &Cdev{
		chip:     chip,
		consumer: consumer,
		lines:    make(map[Pin]cdevLine),
	}
}

func (self *Cdev) Output(pin Pin) error {
	if !pin.Valid() {
		return errors.NotValidf("pin=%s", pin)
	}
	if _, ok := self.lines[pin]; ok {
		return nil
	}
	handle, err := self.chip.OpenLines(gpio.GPIOHANDLE_REQUEST_OUTPUT, self.consumer, uint32(pin))
	if err != nil {
		return errors.Annotatef(err, "gpio output pin=%s", pin)
	}
	self.lines[pin] = cdevLine{handle: handle, set: handle.SetFunc(uint32(pin))}
	return nil
}

func (self *Cdev) Set(pin Pin, level Level) error {
	line, ok := self.lines[pin]
	if !ok {
		return errors.NotFoundf("gpio pin=%s not configured as output", pin)
	}
	line.set(byte(level))
	if err := line.handle.Flush(); err != nil {
		return errors.Annotatef(err, "gpio set pin=%s level=%s", pin, level)
	}
	return nil
}

func (self *Cdev) Sleep(d time.Duration) { Sleep(d) }

// Close releases all line handles, then the chip.
// Subsequent calls return nil.
func (self *Cdev) Close() error {
	if atomic.AddUint32(&self.closed, 1) != 1 {
		return nil
	}
	errs := make([]error, 0, len(self.lines)+1)
	for pin, line := range self.lines {
		if err := line.handle.Close(); err != nil && !gpio.IsClosed(err) {
			errs = append(errs, errors.Annotatef(err, "gpio close pin=%s", pin))
		}
		delete(self.lines, pin)
	}
	if err := self.chip.Close(); err != nil && !gpio.IsClosed(err) {
		errs = append(errs, errors.Annotate(err, "gpio close chip"))
	}
	return helpers.FoldErrors(errs)
}

// compile-time interface check
var _ Driver = &Cdev{}
