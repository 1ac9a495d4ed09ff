package log

import (
	"bytes"
	"strings"
	"testing"

	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
)

func TestEveryN(t *testing.T) {
	filter := &EveryN{N: 3}
	var passed []int
	for i := 1; i <= 9; i++ {
		if filter.check() {
			passed = append(passed, i)
		}
	}
	assert.Equal(t, []int{3, 6, 9}, passed)
}

func TestEveryNZero(t *testing.T) {
	var nilFilter *EveryN
	assert.True(t, nilFilter.check())
	assert.True(t, (&EveryN{}).check())
}

func TestWarnBy(t *testing.T) {
	var buf bytes.Buffer
	root := gethlog.Root()
	gethlog.SetDefault(gethlog.NewLogger(gethlog.NewTerminalHandler(&buf, false)))
	t.Cleanup(func() { gethlog.SetDefault(root) })

	filter := &EveryN{N: 2}
	for i := 0; i < 4; i++ {
		WarnBy(filter, "Dropping candidate", "n", i)
	}
	assert.Equal(t, 2, strings.Count(buf.String(), "Dropping candidate"))
	assert.Contains(t, buf.String(), "WARN")

	buf.Reset()
	DebugBy(nil, "Always")
	assert.Contains(t, buf.String(), "Always")
}
