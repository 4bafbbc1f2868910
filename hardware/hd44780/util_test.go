package hd44780

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/temoto/hd44780/hardware/pinio"
	"github.com/temoto/hd44780/log2"
)

// Helpers for testing hd44780 package

const (
	testRS        pinio.Pin = 1
	testE         pinio.Pin = 2
	testBacklight pinio.Pin = 20
	testReset     pinio.Pin = 21
)

func testConfig4() Config {
	return Config{
		RS:        testRS,
		E:         testE,
		Data:      []pinio.Pin{10, 11, 12, 13},
		Backlight: testBacklight,
		Reset:     testReset,
		Cols:      16,
		Rows:      2,
	}
}

func testConfig8() Config {
	c := testConfig4()
	c.Data = []pinio.Pin{30, 31, 32, 33, 34, 35, 36, 37}
	return c
}

func testOpen(t testing.TB, c Config) (*LCD, *pinio.Mock) {
	m := pinio.NewMock()
	lcd, err := Open(m, c)
	require.NoError(t, err)
	lcd.Log = log2.NewTest(t, log2.LDebug)
	m.Reset()
	return lcd, m
}

// latched is what controller sampled on one enable falling edge.
type latched struct {
	rs    pinio.Level
	value byte
}

// busTap replays recorded pin changes and returns values latched by controller.
func busTap(events []pinio.Event, rs, e pinio.Pin, data []pinio.Pin) []latched {
	levels := make(map[pinio.Pin]pinio.Level)
	result := make([]latched, 0, len(events)/8)
	for _, ev := range events {
		if ev.Kind != pinio.EventSet {
			continue
		}
		if ev.Pin == e && ev.Level == pinio.Low && levels[e] == pinio.High {
			var v byte
			for i, pin := range data {
				v |= byte(levels[pin]) << uint(i)
			}
			result = append(result, latched{rs: levels[rs], value: v})
		}
		levels[ev.Pin] = ev.Level
	}
	return result
}

// joinNibbles combines 4-bit transfers high nibble first.
func joinNibbles(t testing.TB, nibbles []latched) []latched {
	require.Equal(t, 0, len(nibbles)%2, "odd number of nibbles")
	result := make([]latched, 0, len(nibbles)/2)
	for i := 0; i < len(nibbles); i += 2 {
		hi, lo := nibbles[i], nibbles[i+1]
		require.Equal(t, hi.rs, lo.rs, "rs changed between nibbles at %d", i)
		result = append(result, latched{rs: hi.rs, value: hi.value<<4 | lo.value})
	}
	return result
}

// transfers decodes full bytes sent since last Mock.Reset.
func transfers(t testing.TB, lcd *LCD, m *pinio.Mock) []latched {
	ls := busTap(m.Events(), lcd.rs, lcd.e, lcd.data)
	if lcd.bus == Bus4 {
		return joinNibbles(t, ls)
	}
	return ls
}

func commands(ls []latched) []byte {
	result := make([]byte, 0, len(ls))
	for _, l := range ls {
		if l.rs == ModeCommand {
			result = append(result, l.value)
		}
	}
	return result
}

func data(ls []latched) []byte {
	result := make([]byte, 0, len(ls))
	for _, l := range ls {
		if l.rs == ModeData {
			result = append(result, l.value)
		}
	}
	return result
}
