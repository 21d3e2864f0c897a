// Package meeting provides Meeting implementations for the bot.
package meeting

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PabloGalante/instructor-relay/internal/app/bot"
)

// Transcript replays a caption file as if it were a live meeting: one caption
// per line, optionally prefixed with "Speaker: ". Blank lines and lines
// starting with '#' are skipped. Chat messages are written to out.
type Transcript struct {
	in  io.Reader
	out io.Writer
	// Pace is the delay between captions; zero replays as fast as possible.
	Pace time.Duration

	mu      sync.Mutex
	joined  string
	started bool
}

func NewTranscript(in io.Reader, out io.Writer) *Transcript {
	return &Transcript{in: in, out: out}
}

func (t *Transcript) Join(_ context.Context, meetingID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.joined != "" {
		return fmt.Errorf("meeting: already joined %s", t.joined)
	}
	t.joined = meetingID
	return nil
}

// Captions may be called once; the channel closes at end of input or when ctx ends.
func (t *Transcript) Captions(ctx context.Context) (<-chan bot.Caption, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.joined == "" {
		return nil, errors.New("meeting: not joined")
	}
	if t.started {
		return nil, errors.New("meeting: captions already streaming")
	}
	t.started = true

	ch := make(chan bot.Caption)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(t.in)
		first := true
		for sc.Scan() {
			c, ok := parseLine(sc.Text())
			if !ok {
				continue
			}
			if !first && t.Pace > 0 {
				select {
				case <-time.After(t.Pace):
				case <-ctx.Done():
					return
				}
			}
			first = false
			c.At = time.Now()
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func parseLine(line string) (bot.Caption, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return bot.Caption{}, false
	}
	if speaker, text, ok := strings.Cut(line, ": "); ok && speaker != "" && !strings.ContainsAny(speaker, " ?") {
		return bot.Caption{Speaker: speaker, Text: strings.TrimSpace(text)}, true
	}
	return bot.Caption{Text: line}, true
}

func (t *Transcript) SendChatMessage(_ context.Context, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.joined == "" {
		return errors.New("meeting: not joined")
	}
	_, err := fmt.Fprintf(t.out, "[%s] %s\n", t.joined, text)
	return err
}

func (t *Transcript) Leave(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.joined = ""
	return nil
}
