package log2

import (
	"bytes"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	t.Parallel()

	type Case struct {
		name   string
		level  Level
		fun    func(l *Log)
		expect string
	}
	cases := []Case{
		{"debug/enabled", LDebug, func(l *Log) { l.Debugf("nibble=%x", 0xc) }, "debug: nibble=c\n"},
		{"debug/skip", LInfo, func(l *Log) { l.Debugf("nibble=%x", 0xc) }, ""},
		{"info", LInfo, func(l *Log) { l.Infof("lcd ready cols=%d", 16) }, "lcd ready cols=16\n"},
		{"info/skip", LError, func(l *Log) { l.Info("lcd ready") }, ""},
		{"error", LError, func(l *Log) { l.Errorf("pin=%d", 24) }, "error: pin=24\n"},
		{"printf", LDebug, func(l *Log) { l.Printf("[client] %s", "connected") }, "debug: [client] connected\n"},
		{"println", LDebug, func(l *Log) { l.Println("[net]", "ping") }, "debug: [net] ping\n"},
		{"println/skip", LInfo, func(l *Log) { l.Println("[net]", "ping") }, ""},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			buf := bytes.NewBuffer(nil)
			l := NewWriter(buf, c.level)
			l.SetFlags(0)
			c.fun(l)
			assert.Equal(t, c.expect, buf.String())
		})
		t.Run(c.name+"/nil", func(t *testing.T) {
			c.fun(nil)
		})
	}
}

func TestCaller(t *testing.T) {
	t.Parallel()

	buf := bytes.NewBuffer(nil)
	l := NewWriter(buf, LInfo)
	l.SetFlags(log.Lshortfile)
	_, file, line, _ := runtime.Caller(0)
	l.Infof("here")
	assert.Equal(t, fmt.Sprintf("%s:%d: here\n", filepath.Base(file), line+1), buf.String())
}

func TestErrorFunc(t *testing.T) {
	t.Parallel()

	var got []error
	l := NewWriter(bytes.NewBuffer(nil), LError)
	l.SetErrorFunc(func(e error) { got = append(got, e) })
	exact := fmt.Errorf("bus write")
	l.Error(exact)
	l.Errorf("pin=%d", 7)
	require.Len(t, got, 2)
	assert.Equal(t, exact, got[0])
	assert.EqualError(t, got[1], "pin=7")

	var nilLog *Log
	nilLog.SetErrorFunc(func(e error) { t.Fail() })
	nilLog.Error(exact)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input  string
		expect Level
	}{
		{"", LInfo},
		{"error", LError},
		{"Info", LInfo},
		{"DEBUG", LDebug},
		{"all", LAll},
	}
	for _, c := range cases {
		l, err := ParseLevel(c.input)
		require.NoError(t, err, c.input)
		assert.Equal(t, c.expect, l, c.input)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestCloneKeepsHooks(t *testing.T) {
	t.Parallel()

	buf := bytes.NewBuffer(nil)
	var got error
	l := NewWriter(buf, LError)
	l.SetFlags(0)
	l.SetPrefix("lcd: ")
	l.SetErrorFunc(func(e error) { got = e })
	c := l.Clone(LDebug)
	c.Debugf("bus nibble=%x", 0xa)
	c.Errorf("gpio fail")
	assert.Equal(t, "lcd: debug: bus nibble=a\nlcd: error: gpio fail\n", buf.String())
	require.Error(t, got)
	assert.Equal(t, "gpio fail", got.Error())
	assert.False(t, l.Enabled(LDebug))
	assert.True(t, c.Enabled(LDebug))
}
