package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	ErrOutputClosed   = errors.New("audio output is closed")
	ErrNothingPlaying = errors.New("no playback on this output")
)

type Playback struct {
	Buffer    *Buffer
	StartedAt time.Time
}

// Output is a session's audio output context. It accepts buffers at one fixed
// sample rate and keeps at most one active playback: starting a new one stops
// the previous. Clients fetch the active playback as WAV.
type Output struct {
	sampleRate int
	channels   int

	mu      sync.Mutex
	current *Playback
	closed  bool
	now     func() time.Time
}

func NewOutput(sampleRate, channels int) *Output {
	return &Output{
		sampleRate: sampleRate,
		channels:   channels,
		now:        time.Now,
	}
}

func (o *Output) SampleRate() int {
	return o.sampleRate
}

func (o *Output) Play(buf *Buffer) error {
	if buf.SampleRate != o.sampleRate || len(buf.Channels) != o.channels {
		return fmt.Errorf("buffer format %dHz/%dch does not match output %dHz/%dch",
			buf.SampleRate, len(buf.Channels), o.sampleRate, o.channels)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrOutputClosed
	}
	o.current = &Playback{Buffer: buf, StartedAt: o.now()}
	return nil
}

func (o *Output) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = nil
}

// Current returns the active playback, if any.
func (o *Output) Current() (*Playback, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return nil, false
	}
	return o.current, true
}

// WriteWAV encodes the active playback.
func (o *Output) WriteWAV(w io.Writer) error {
	p, ok := o.Current()
	if !ok {
		return ErrNothingPlaying
	}
	return EncodeWAV(w, p.Buffer)
}

// Close releases the output. It is safe to call more than once.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.current = nil
	return nil
}
