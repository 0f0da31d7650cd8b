package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayer_RenderDoesNotAccumulate(t *testing.T) {
	s := seeded()
	l := NewLayer()

	first := s.Select("rain", true)
	l.Render(first)
	want := len(first.Shapes) + len(first.Particles)
	require.Equal(t, want, l.Len())

	for i := 0; i < 10; i++ {
		l.Render(s.Select("rain", true))
		assert.Equal(t, want, l.Len())
	}
}

func TestLayer_RenderReplacesPreviousBundle(t *testing.T) {
	s := seeded()
	l := NewLayer()

	l.Render(s.Select("thunderstorm", true))
	l.Render(s.Select("snow", true))

	for _, n := range l.Nodes() {
		assert.NotEqual(t, string(ParticleRain), n.Class)
		assert.NotEqual(t, string(ParticleFlash), n.Class)
	}
}

func TestLayer_Clear(t *testing.T) {
	l := NewLayer()
	l.Render(seeded().Select("snow", true))
	require.NotZero(t, l.Len())

	l.Clear()
	assert.Zero(t, l.Len())
	assert.Empty(t, l.Nodes())
}

func TestLayer_NodeStyles(t *testing.T) {
	l := NewLayer()
	l.Render(Bundle{
		Shapes:    []Shape{{Kind: ShapeCloud, Top: 8, Left: -8, Opacity: 0.95, Blur: 12}},
		Particles: []Particle{{Kind: ParticleSnow, Left: 12.5, Top: -3, Size: 6, Opacity: 0.8}},
	})

	nodes := l.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "bg-cloud", nodes[0].Class)
	assert.Equal(t, "top:8%;left:-8%;opacity:0.95;filter:blur(12px);", nodes[0].Style)
	assert.Equal(t, "snow", nodes[1].Class)
	assert.Contains(t, nodes[1].Style, "left:12.50%;")
	assert.Contains(t, nodes[1].Style, "width:6.0px;height:6.0px;")
}
