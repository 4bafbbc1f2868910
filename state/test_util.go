package state

import (
	"context"
	"testing"

	"github.com/temoto/hd44780/hardware/pinio"
	"github.com/temoto/hd44780/log2"
)

// NewTestContext reads inline config and installs mock GPIO driver.
// Display is not opened, call g.LCD() or g.Display().
func NewTestContext(t testing.TB, confString string) (context.Context, *Global, *pinio.Mock) {
	fs := NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	log := log2.NewTest(t, log2.LDebug)
	// log := log2.NewStderr(log2.LDebug) // useful with panics
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log)
	g.MustInit(MustReadConfig(log, fs, "test-inline"))
	g.Log.SetLevel(log2.LDebug)

	mock := pinio.NewMock()
	g.Hardware.HD44780.Driver = mock
	return ctx, g, mock
}
