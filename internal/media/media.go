// Package media holds the stand-ins for media processing: clip probing and
// caption generation are simulated, and uploaded bytes are kept in a
// per-session registry of local references.
package media

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"video-wizard/internal/models"
)

// Metadata is what a probe reports about an uploaded clip.
type Metadata struct {
	Thumbnail  string
	Duration   int
	Resolution string
}

type Prober interface {
	Probe(name string) Metadata
}

// SimulatedProber invents metadata: a placeholder thumbnail, a duration of
// 5-14 seconds and a fixed "4K" label. Nothing is read from the file.
type SimulatedProber struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSimulatedProber(seed uint64) *SimulatedProber {
	return &SimulatedProber{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *SimulatedProber) Probe(name string) Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Metadata{
		Thumbnail:  fmt.Sprintf("https://picsum.photos/seed/%d/320/180", p.rnd.Uint32()),
		Duration:   p.rnd.IntN(10) + 5,
		Resolution: "4K",
	}
}

type CaptionGenerator interface {
	Captions(lines func(id string) string) []models.Caption
}

// FixedCaptions returns the two illustrative lines shown after "generating"
// captions. They are not derived from any audio.
type FixedCaptions struct{}

func (FixedCaptions) Captions(lines func(id string) string) []models.Caption {
	return []models.Caption{
		{At: 1 * time.Second, Text: lines("caption_line_1")},
		{At: 5 * time.Second, Text: lines("caption_line_2")},
	}
}
