package effects

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/common"
)

// Kind is the visual category selected for a weather condition.
type Kind string

const (
	KindStorm Kind = "storm"
	KindRain  Kind = "rain"
	KindSnow  Kind = "snow"
	KindCloud Kind = "cloud"
	KindClear Kind = "clear"
)

// ParticleKind doubles as the CSS class of the rendered node.
type ParticleKind string

const (
	ParticleRain  ParticleKind = "rain-drop"
	ParticleSnow  ParticleKind = "snow"
	ParticleFlash ParticleKind = "lightning"
)

// ShapeKind doubles as the CSS class of a fixed decorative shape.
type ShapeKind string

const (
	ShapeCloud ShapeKind = "bg-cloud"
	ShapeSun   ShapeKind = "bg-sun"
)

// Particle counts and maximum start delays per particle kind.
const (
	RainCount      = 30
	SnowCount      = 20
	LightningCount = 15

	RainMaxDelay      = 2 * time.Second
	SnowMaxDelay      = 3 * time.Second
	LightningMaxDelay = 4 * time.Second
)

// Particle is one randomized animated node. Left and Top are percentages of
// the container, Size is in pixels.
type Particle struct {
	Kind     ParticleKind  `json:"kind"`
	Left     float64       `json:"left"`
	Top      float64       `json:"top"`
	Size     float64       `json:"size"`
	Opacity  float64       `json:"opacity"`
	Delay    time.Duration `json:"delay"`
	Duration time.Duration `json:"duration"`
}

// Shape is a fixed, non-random decorative node.
type Shape struct {
	Kind    ShapeKind `json:"kind"`
	Top     float64   `json:"top"`
	Left    float64   `json:"left"`
	Height  float64   `json:"height,omitempty"`
	Opacity float64   `json:"opacity"`
	Blur    float64   `json:"blur,omitempty"`
}

// Bundle is everything needed to draw the background for one condition.
type Bundle struct {
	Kind      Kind       `json:"kind"`
	IsDay     bool       `json:"isDay"`
	Gradient  string     `json:"gradient"`
	Icon      string     `json:"icon"`
	Shapes    []Shape    `json:"shapes"`
	Particles []Particle `json:"particles"`
}

// Classify maps a free-text condition to its Kind. Rules are checked in
// order and the first match wins.
func Classify(condition string) Kind {
	switch {
	case common.HasAny(condition, "thunder"):
		return KindStorm
	case common.HasAny(condition, "rain", "drizzle"):
		return KindRain
	case common.HasAny(condition, "snow"):
		return KindSnow
	case common.HasAny(condition, "cloud"):
		return KindCloud
	default:
		return KindClear
	}
}

// Selector builds bundles from an injectable random source.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a Selector drawing from rng. A nil rng uses a
// time-seeded PCG source.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>17|1))
	}
	return &Selector{rng: rng}
}

var defaultSelector = NewSelector(nil)

// SelectEffectBundle selects the bundle for condition using the package
// random source.
func SelectEffectBundle(condition string, isDay bool) Bundle {
	return defaultSelector.Select(condition, isDay)
}

// Select returns exactly one bundle for condition.
func (s *Selector) Select(condition string, isDay bool) Bundle {
	kind := Classify(condition)
	b := Bundle{
		Kind:     kind,
		IsDay:    isDay,
		Gradient: gradientFor(kind, isDay),
		Icon:     iconFor(kind, isDay),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case KindStorm:
		b.Shapes = []Shape{{Kind: ShapeCloud, Top: 4, Left: -10, Opacity: 0.9}}
		b.Particles = append(s.rain(RainCount), s.lightning(LightningCount)...)
	case KindRain:
		b.Shapes = []Shape{{Kind: ShapeCloud, Top: 6, Left: -10, Opacity: 0.85}}
		b.Particles = s.rain(RainCount)
	case KindSnow:
		b.Shapes = []Shape{{Kind: ShapeCloud, Top: 6, Left: -5, Opacity: 0.8}}
		b.Particles = s.snow(SnowCount)
	case KindCloud:
		front, back := 0.95, 0.75
		if !isDay {
			front, back = 0.55, 0.4
		}
		b.Shapes = []Shape{
			{Kind: ShapeCloud, Top: 8, Left: -8, Opacity: front, Blur: 12},
			{Kind: ShapeCloud, Top: 26, Left: -18, Height: 100, Opacity: back},
		}
	case KindClear:
		if isDay {
			b.Shapes = []Shape{
				{Kind: ShapeSun, Opacity: 1},
				{Kind: ShapeCloud, Top: 18, Left: -6, Height: 110, Opacity: 0.22, Blur: 20},
			}
		}
	}

	return b
}

func (s *Selector) rain(n int) []Particle {
	out := make([]Particle, n)
	for i := range out {
		out[i] = Particle{
			Kind:     ParticleRain,
			Left:     s.rng.Float64() * 100,
			Top:      -s.rng.Float64() * 60,
			Size:     8 + s.rng.Float64()*12,
			Opacity:  0.3 + s.rng.Float64()*0.7,
			Delay:    s.delay(RainMaxDelay),
			Duration: 900*time.Millisecond + time.Duration(s.rng.Float64()*float64(800*time.Millisecond)),
		}
	}
	return out
}

func (s *Selector) snow(n int) []Particle {
	out := make([]Particle, n)
	for i := range out {
		out[i] = Particle{
			Kind:     ParticleSnow,
			Left:     s.rng.Float64() * 100,
			Top:      -s.rng.Float64() * 40,
			Size:     4 + s.rng.Float64()*8,
			Opacity:  0.5 + s.rng.Float64()*0.5,
			Delay:    s.delay(SnowMaxDelay),
			Duration: 6*time.Second + time.Duration(s.rng.Float64()*float64(8*time.Second)),
		}
	}
	return out
}

func (s *Selector) lightning(n int) []Particle {
	out := make([]Particle, n)
	for i := range out {
		out[i] = Particle{
			Kind:     ParticleFlash,
			Left:     s.rng.Float64() * 100,
			Top:      s.rng.Float64() * 30,
			Size:     40 + s.rng.Float64()*80,
			Opacity:  0.6 + s.rng.Float64()*0.4,
			Delay:    s.delay(LightningMaxDelay),
			Duration: 200*time.Millisecond + time.Duration(s.rng.Float64()*float64(300*time.Millisecond)),
		}
	}
	return out
}

// delay returns a start delay in [0, limit).
func (s *Selector) delay(limit time.Duration) time.Duration {
	return time.Duration(s.rng.Int64N(int64(limit)))
}
