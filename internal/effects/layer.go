package effects

import (
	"fmt"
	"strings"
	"sync"
)

// Node is one materialized element of the effects layer.
type Node struct {
	Class string
	Style string
}

// Layer holds the nodes of the currently drawn bundle.
type Layer struct {
	mu    sync.RWMutex
	nodes []Node
}

func NewLayer() *Layer {
	return &Layer{}
}

// Render replaces everything in the layer with the nodes of b.
func (l *Layer) Render(b Bundle) {
	nodes := make([]Node, 0, len(b.Shapes)+len(b.Particles))
	for _, s := range b.Shapes {
		nodes = append(nodes, shapeNode(s))
	}
	for _, p := range b.Particles {
		nodes = append(nodes, particleNode(p))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.nodes = nodes
}

// Clear removes every node.
func (l *Layer) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nodes = nil
}

func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.nodes)
}

// Nodes returns a copy of the current nodes.
func (l *Layer) Nodes() []Node {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Node, len(l.nodes))
	copy(out, l.nodes)
	return out
}

func shapeNode(s Shape) Node {
	var b strings.Builder
	fmt.Fprintf(&b, "top:%.0f%%;left:%.0f%%;opacity:%.2f;", s.Top, s.Left, s.Opacity)
	if s.Height > 0 {
		fmt.Fprintf(&b, "height:%.0fpx;", s.Height)
	}
	if s.Blur > 0 {
		fmt.Fprintf(&b, "filter:blur(%.0fpx);", s.Blur)
	}
	return Node{Class: string(s.Kind), Style: b.String()}
}

func particleNode(p Particle) Node {
	var b strings.Builder
	fmt.Fprintf(&b, "left:%.2f%%;top:%.2f%%;opacity:%.2f;", p.Left, p.Top, p.Opacity)
	switch p.Kind {
	case ParticleSnow:
		fmt.Fprintf(&b, "width:%.1fpx;height:%.1fpx;", p.Size, p.Size)
	default:
		fmt.Fprintf(&b, "height:%.1fpx;", p.Size)
	}
	fmt.Fprintf(&b, "animation-delay:%.2fs;animation-duration:%.2fs;", p.Delay.Seconds(), p.Duration.Seconds())
	return Node{Class: string(p.Kind), Style: b.String()}
}
