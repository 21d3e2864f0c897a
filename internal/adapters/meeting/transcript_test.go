package meeting

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/instructor-relay/internal/app/bot"
)

func collect(ch <-chan bot.Caption) []bot.Caption {
	var out []bot.Caption
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestTranscriptCaptions(t *testing.T) {
	in := strings.NewReader("# session 1\nSam: good morning\n\nwhat is a tourniquet?\nLee: how do I: pack a wound?\n")
	tr := NewTranscript(in, &bytes.Buffer{})

	require.NoError(t, tr.Join(context.Background(), "m-1"))
	ch, err := tr.Captions(context.Background())
	require.NoError(t, err)

	got := collect(ch)
	require.Len(t, got, 3)
	assert.Equal(t, "Sam", got[0].Speaker)
	assert.Equal(t, "good morning", got[0].Text)
	assert.Equal(t, "", got[1].Speaker)
	assert.Equal(t, "what is a tourniquet?", got[1].Text)
	assert.Equal(t, "Lee", got[2].Speaker)
	assert.Equal(t, "how do I: pack a wound?", got[2].Text)
	assert.False(t, got[0].At.IsZero())
}

func TestTranscriptRequiresJoin(t *testing.T) {
	tr := NewTranscript(strings.NewReader(""), &bytes.Buffer{})

	_, err := tr.Captions(context.Background())
	assert.Error(t, err)
	assert.Error(t, tr.SendChatMessage(context.Background(), "hi"))
}

func TestTranscriptCaptionsOnce(t *testing.T) {
	tr := NewTranscript(strings.NewReader("a\n"), &bytes.Buffer{})
	require.NoError(t, tr.Join(context.Background(), "m"))

	ch, err := tr.Captions(context.Background())
	require.NoError(t, err)
	_, err = tr.Captions(context.Background())
	assert.Error(t, err)
	collect(ch)
}

func TestTranscriptChatOutput(t *testing.T) {
	var out bytes.Buffer
	tr := NewTranscript(strings.NewReader(""), &out)
	require.NoError(t, tr.Join(context.Background(), "m-7"))

	require.NoError(t, tr.SendChatMessage(context.Background(), "Apply pressure."))
	assert.Equal(t, "[m-7] Apply pressure.\n", out.String())

	require.NoError(t, tr.Leave(context.Background()))
	assert.Error(t, tr.SendChatMessage(context.Background(), "after leave"))
}

func TestTranscriptCancelClosesChannel(t *testing.T) {
	tr := NewTranscript(strings.NewReader("one\ntwo\nthree\n"), &bytes.Buffer{})
	require.NoError(t, tr.Join(context.Background(), "m"))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := tr.Captions(ctx)
	require.NoError(t, err)

	<-ch
	cancel()
	// drains at most what was already in flight, then closes
	for range ch {
	}
}
