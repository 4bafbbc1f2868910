// Demo cycles sample text, custom glyphs and display attributes until stopped.
package demo

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/hd44780/cmd/hd44780/subcmd"
	"github.com/temoto/hd44780/hardware/hd44780"
	"github.com/temoto/hd44780/hardware/text_display"
	"github.com/temoto/hd44780/helpers"
	"github.com/temoto/hd44780/state"
)

const defaultScrollDelay = 300 * time.Millisecond

var Mod = subcmd.Mod{Name: "demo", Usage: "show sample text until interrupted", Main: Main}

// CGRAM 0-3
var glyphs = [][]byte{
	{0b00000, 0b01010, 0b11111, 0b11111, 0b01110, 0b00100, 0b00000, 0b00000}, // heart
	{0b00100, 0b01110, 0b01110, 0b01110, 0b11111, 0b00000, 0b00100, 0b00000}, // bell
	{0b01110, 0b10001, 0b10001, 0b11111, 0b11011, 0b11011, 0b11111, 0b00000}, // lock
	{0b00000, 0b11011, 0b11011, 0b00000, 0b11111, 0b01110, 0b00000, 0b00000}, // smile
}

type step struct {
	name   string
	f      func(*hd44780.LCD, *text_display.TextDisplay) error
	wait   time.Duration
	scroll bool
}

var steps = []step{
	{"hello", func(_ *hd44780.LCD, d *text_display.TextDisplay) error {
		return d.SetLines("Hello, world!", "hd44780 demo")
	}, 3 * time.Second, false},
	{"glyphs", func(_ *hd44780.LCD, d *text_display.TextDisplay) error {
		return d.SetLinesBytes(d.JustCenter([]byte{0, ' ', 1, ' ', 2, ' ', 3}), d.PadRight([]byte("custom glyphs")))
	}, 3 * time.Second, false},
	{"scroll", func(_ *hd44780.LCD, d *text_display.TextDisplay) error {
		return d.SetLines("long lines scroll when wider than display", "")
	}, 8 * time.Second, true},
	{"cursor", func(lcd *hd44780.LCD, d *text_display.TextDisplay) error {
		if err := d.SetLines("cursor blink", ""); err != nil {
			return err
		}
		if err := lcd.SetBlink(true); err != nil {
			return err
		}
		if err := lcd.SetCursor(true); err != nil {
			return err
		}
		return lcd.MoveCursor(0, 1)
	}, 3 * time.Second, false},
	{"off", func(lcd *hd44780.LCD, _ *text_display.TextDisplay) error {
		if err := lcd.SetBlink(false); err != nil {
			return err
		}
		if err := lcd.SetCursor(false); err != nil {
			return err
		}
		return lcd.SetDisplay(false)
	}, 1 * time.Second, false},
	{"on", func(lcd *hd44780.LCD, _ *text_display.TextDisplay) error {
		return lcd.SetDisplay(true)
	}, 1 * time.Second, false},
}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(config)
	subcmd.StopOnSignal(g.Alive)

	err := Run(ctx, 0)
	return helpers.FoldErrors([]error{err, g.Close(true)})
}

// Run repeats demo steps `loops` times, 0 means until g.Alive is stopped.
func Run(ctx context.Context, loops int) error {
	g := state.GetGlobal(ctx)
	lcd, err := g.LCD()
	if err != nil {
		return errors.Annotate(err, "hd44780 init")
	}
	display := g.Hardware.HD44780.Display
	for i, glyph := range glyphs {
		if err := lcd.CreateChar(byte(i), glyph); err != nil {
			return errors.Annotatef(err, "glyph=%d", i)
		}
	}
	if err := lcd.SetBacklight(true); err != nil {
		return err
	}
	scrollDelay := time.Duration(g.Config.Hardware.HD44780.ScrollDelay) * time.Millisecond
	if scrollDelay == 0 {
		scrollDelay = defaultScrollDelay
	}

	for n := 0; loops == 0 || n < loops; n++ {
		for _, s := range steps {
			g.Log.Debugf("demo step=%s", s.name)
			if err := s.f(lcd, display); err != nil {
				return errors.Annotatef(err, "demo step=%s", s.name)
			}
			var tick func()
			if s.scroll {
				tick = display.Tick
			}
			if !pause(g.Alive, s.wait, scrollDelay, tick) {
				return nil
			}
		}
	}
	return nil
}

// pause returns false when stopped. Display scroll is driven from this goroutine
// because steps also talk to controller directly.
func pause(a *alive.Alive, d, tickEvery time.Duration, tick func()) bool {
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	var tickch <-chan time.Time
	if tick != nil {
		ticker := time.NewTicker(tickEvery)
		defer ticker.Stop()
		tickch = ticker.C
	}
	for {
		select {
		case <-tmr.C:
			return true
		case <-tickch:
			tick()
		case <-a.StopChan():
			return false
		}
	}
}
