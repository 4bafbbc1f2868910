package pinio

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gpio "github.com/temoto/gpio-cdev-go"
	gpio_mock "github.com/temoto/gpio-cdev-go/mock"
)

type cdevEnv struct {
	chip   *gpio_mock.MockChip
	lines  map[uint32]*gpio_mock.MockLines
	values map[uint32]byte
}

func newCdevEnv(t testing.TB, pins ...uint32) *cdevEnv {
	env := &cdevEnv{
		chip:   &gpio_mock.MockChip{},
		lines:  make(map[uint32]*gpio_mock.MockLines),
		values: make(map[uint32]byte),
	}
	env.chip.Test(t)
	env.chip.On("Close").Return(nil).Once()
	for _, pin := range pins {
		pin := pin
		lines := &gpio_mock.MockLines{}
		lines.Test(t)
		lines.On("SetFunc", pin).Return(gpio.LineSetFunc(func(v byte) { env.values[pin] = v }))
		lines.On("Flush").Return(nil)
		lines.On("Close").Return(nil).Once()
		env.chip.On("OpenLines", gpio.GPIOHANDLE_REQUEST_OUTPUT, "test", pin).Return(lines, nil).Once()
		env.lines[pin] = lines
	}
	return env
}

func TestCdevOutputSet(t *testing.T) {
	t.Parallel()

	env := newCdevEnv(t, 3, 7)
	d := NewCdev(env.chip, "test")
	require.NoError(t, d.Output(3))
	require.NoError(t, d.Output(7))
	// second Output on the same pin is no-op
	require.NoError(t, d.Output(7))

	require.NoError(t, d.Set(3, High))
	require.NoError(t, d.Set(7, Low))
	assert.Equal(t, byte(1), env.values[3])
	assert.Equal(t, byte(0), env.values[7])
	env.lines[3].AssertNumberOfCalls(t, "Flush", 1)

	require.NoError(t, d.Close())
	assert.NoError(t, d.Close())
	env.chip.AssertExpectations(t)
	for _, l := range env.lines {
		l.AssertExpectations(t)
	}
}

func TestCdevErrors(t *testing.T) {
	t.Parallel()

	chip := &gpio_mock.MockChip{}
	chip.Test(t)
	chip.On("OpenLines", gpio.GPIOHANDLE_REQUEST_OUTPUT, DefaultConsumer, uint32(9)).
		Return((*gpio_mock.MockLines)(nil), fmt.Errorf("EBUSY")).Once()
	d := NewCdev(chip, "")

	err := d.Output(9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EBUSY")
	assert.Error(t, d.Output(NoPin))
	assert.Error(t, d.Set(9, High), "set on unconfigured pin")
	chip.AssertExpectations(t)
}

func TestCdevFlushError(t *testing.T) {
	t.Parallel()

	chip := &gpio_mock.MockChip{}
	lines := &gpio_mock.MockLines{}
	lines.On("SetFunc", uint32(2)).Return(gpio.LineSetFunc(func(byte) {}))
	lines.On("Flush").Return(fmt.Errorf("EIO"))
	chip.On("OpenLines", gpio.GPIOHANDLE_REQUEST_OUTPUT, "test", uint32(2)).Return(lines, nil)
	d := NewCdev(chip, "test")
	require.NoError(t, d.Output(2))
	err := d.Set(2, High)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EIO")
}
