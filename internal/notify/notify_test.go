package notify

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/BeerClicker/server/internal/platform/logger"
)

func TestRecorderAndMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, b, Discard}

	_, ok := a.Last()
	assert.False(t, ok)

	m.Notify(Notification{Kind: KindSuccess, Title: "Bought Bartender!"})
	m.Notify(Notification{Kind: KindInfo, Title: "Progress reset"})

	require.Len(t, a.All(), 2)
	require.Len(t, b.All(), 2)
	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, KindInfo, last.Kind)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	LogNotifier{Logger: logger.NewLoggerTo(&buf)}.Notify(Notification{Kind: KindError, Title: "Not enough beer", Description: "Need 10"})
	assert.Contains(t, buf.String(), "[EVENT:NOTIFY_error]")
	assert.Contains(t, buf.String(), "Not enough beer Need 10")
}

func TestAlways(t *testing.T) {
	ok, err := Always(true).Confirm(context.Background(), "reset?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Always(false).Confirm(context.Background(), "reset?")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPromptConfirmer(t *testing.T) {
	cases := map[string]bool{
		"y\n":     true,
		"YES\n":   true,
		" yes ":   true,
		"n\n":     false,
		"\n":      false,
		"":        false,
		"maybe\n": false,
	}
	for input, want := range cases {
		var out bytes.Buffer
		p := PromptConfirmer{In: strings.NewReader(input), Out: &out}
		got, err := p.Confirm(context.Background(), "Reset all progress?")
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", input)
		assert.Equal(t, "Reset all progress? [y/N]: ", out.String())
	}
}

func TestPromptConfirmerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := PromptConfirmer{In: strings.NewReader("y\n"), Out: &bytes.Buffer{}}.Confirm(ctx, "Reset?")
	assert.ErrorIs(t, err, context.Canceled)
}
