package text_display

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/hd44780/hardware/hd44780"
	"github.com/temoto/hd44780/hardware/pinio"
	"github.com/temoto/hd44780/log2"
)

func TestWrap(t *testing.T) {
	t.Parallel()

	const width uint32 = 16
	spaces := strings.Repeat(" ", MaxWidth*2)
	canonical := func(input string, tick uint32) string {
		gap := width / 2
		length := uint32(len(input))
		if length <= width {
			return (input + spaces)[:width]
		}
		help := input + spaces[:gap] + input
		offset := tick % (length + gap)
		return help[offset : offset+width]
	}

	type Case struct {
		name  string
		input string
	}
	cases := []Case{
		{"short", "foobar"},
		{"full", "full-length-line"},
		{"long1", "too-much-very-long-line"},
		{"long2", "too-much-very-long-line1;too-much-very-long-line2"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			for tick := uint32(0); tick < uint32(len(c.input)*3); tick++ {
				var buf [width]byte
				scrollWrap(buf[:], []byte(c.input), tick)
				expect := canonical(c.input, tick)
				result := string(buf[:])
				if result != expect {
					t.Errorf("input=(%d)'%s' tick=%d expected=(%d)'%s' actual=(%d)'%s'",
						len(c.input), c.input, tick, len(expect), expect, len(result), result)
				}
			}
		})
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	d, dev := NewMockTextDisplay(&TextDisplayConfig{Width: 8, Rows: 2})
	d.Log = log2.NewTest(t, log2.LDebug)
	ch := make(chan State, 1)
	d.SetUpdateChan(ch)
	require.NoError(t, d.SetLines("hello", "cursor\x00"))
	assert.Equal(t, "hello   \ncursor", (<-ch).String())
	assert.Equal(t, "hello   \ncursor  ", dev.String())
	require.NoError(t, d.Message([]string{"padded", "msg"}, func() {
		assert.Equal(t, "padded  \nmsg     ", (<-ch).String())
	}))
	assert.Equal(t, "hello   \ncursor", (<-ch).String())
}

func TestSetLine(t *testing.T) {
	t.Parallel()

	d, dev := NewMockTextDisplay(&TextDisplayConfig{Width: 8, Rows: 4})
	require.NoError(t, d.SetLine(2, "third"))
	require.NoError(t, d.SetLine(0, "first"))
	assert.Equal(t, "first   \n        \nthird   \n        ", dev.String())
	assert.Error(t, d.SetLine(4, "nope"))

	require.NoError(t, d.Clear())
	assert.Equal(t, 1, dev.Clears)
	assert.Equal(t, "\n\n\n", d.State().String())
}

func TestScrollTick(t *testing.T) {
	t.Parallel()

	d, dev := NewMockTextDisplay(&TextDisplayConfig{Width: 4, Rows: 1})
	require.NoError(t, d.SetLines("abcdef\x00"))
	assert.Equal(t, "abcd", dev.Row(0))
	d.Tick()
	assert.Equal(t, "bcde", dev.Row(0))
	d.Tick()
	d.Tick()
	assert.Equal(t, "def ", dev.Row(0))
}

func TestStopWaitsRun(t *testing.T) {
	t.Parallel()

	d, dev := NewMockTextDisplay(&TextDisplayConfig{Width: 4, Rows: 1, ScrollDelay: time.Millisecond})
	require.NoError(t, d.SetLines("abcdefgh\x00"))
	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()
	assert.Eventually(t, func() bool { return dev.Row(0) != "abcd" }, time.Second, time.Millisecond)

	d.Stop()
	select {
	case <-done:
	default:
		t.Fatal("Stop returned before Run")
	}
	row := dev.Row(0)
	d.Tick()
	require.NoError(t, d.SetLines("new"))
	assert.Equal(t, row, dev.Row(0))
	assert.Equal(t, "new ", d.State().String())

	// Run after Stop returns at once
	d.Run()
	d.Stop()
}

func TestTranslateConcurrent(t *testing.T) {
	t.Parallel()

	config := &TextDisplayConfig{Width: 16, Rows: 4, Codepage: "windows-1251"}
	d, _ := NewMockTextDisplay(config)
	ref, _ := NewMockTextDisplay(config)
	texts := []string{"Привет", "мир", "Съешь же ещё", "этих булок"}

	var wg sync.WaitGroup
	for row, text := range texts {
		wg.Add(1)
		go func(row int, text string) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				assert.NoError(t, d.SetLine(row, text))
			}
		}(row, text)
	}
	wg.Wait()

	state := d.State()
	for row, text := range texts {
		assert.Equal(t, ref.Translate(text), state.Lines[row], "row=%d", row)
	}
}

func TestDeviceError(t *testing.T) {
	t.Parallel()

	d, dev := NewMockTextDisplay(&TextDisplayConfig{Width: 8, Rows: 2})
	dev.Err = fmt.Errorf("bus")
	err := d.SetLines("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus")
}

func TestJustCenter(t *testing.T) {
	t.Parallel()

	d, err := NewTextDisplay(&TextDisplayConfig{Width: 8})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []byte("longlong"), d.JustCenter([]byte("longlong")))
	assert.Equal(t, []byte("longlon"), d.JustCenter([]byte("longlon")))
	assert.Equal(t, []byte("  long  "), d.JustCenter([]byte("long")))
	assert.Equal(t, []byte("   1    "), d.JustCenter([]byte("1")))
}

func TestNewTextDisplayValidate(t *testing.T) {
	t.Parallel()

	_, err := NewTextDisplay(nil)
	assert.Error(t, err)
	_, err = NewTextDisplay(&TextDisplayConfig{Width: 0})
	assert.Error(t, err)
	_, err = NewTextDisplay(&TextDisplayConfig{Width: 41})
	assert.Error(t, err)
	_, err = NewTextDisplay(&TextDisplayConfig{Width: 16, Codepage: "no-such-codepage"})
	assert.Error(t, err)
}

func TestCodepage(t *testing.T) {
	t.Parallel()

	d, err := NewTextDisplay(&TextDisplayConfig{Width: 8, Codepage: "windows-1251"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xcc, 0xe8, 0xf0}, d.Translate("Мир\x00"))
}

// Full stack: text display over controller over recording GPIO.
func TestOverController(t *testing.T) {
	t.Parallel()

	m := pinio.NewMock()
	c := hd44780.Config{
		RS: 1, E: 2, Data: []pinio.Pin{3, 4, 5, 6},
		Backlight: pinio.NoPin, Reset: pinio.NoPin,
		Cols: 8, Rows: 2,
	}
	lcd, err := hd44780.Open(m, c)
	require.NoError(t, err)
	d, err := NewTextDisplay(&TextDisplayConfig{Width: 8, Rows: 2, ScrollDelay: time.Second})
	require.NoError(t, err)
	d.SetDevice(lcd)
	m.Reset()
	require.NoError(t, d.SetLines("hi", "there"))
	// each row: address command + 8 data bytes, two nibbles each
	pulses := 0
	for _, ev := range m.Events() {
		if ev.Kind == pinio.EventSet && ev.Pin == 2 && ev.Level == pinio.High {
			pulses++
		}
	}
	assert.Equal(t, 2*(1+8)*2, pulses)
}

func TestStateBinary(t *testing.T) {
	t.Parallel()

	s := State{Lines: [][]byte{[]byte("first"), nil, []byte("\x00glyph")}}
	b, err := s.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte("first\n\n\x00glyph"), b)

	var s2 State
	require.NoError(t, s2.UnmarshalBinary(b))
	assert.Len(t, s2.Lines, 3)
	assert.Equal(t, s.String(), s2.String())
	assert.True(t, s.Equal(s2))

	assert.False(t, s.Equal(State{Lines: s.Lines[:2]}))
	assert.False(t, s.Equal(State{Lines: [][]byte{[]byte("first"), nil, []byte("other")}}))
}
