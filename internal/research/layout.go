package research

import (
	"context"
	"math"
)

// Layout tuning. The force constants mirror the product's visualization:
// springs along edges with a fixed rest length, pairwise repulsion between
// all nodes, a centering pull toward the viewport midpoint, and a collision
// constraint keeping node cards apart.
const (
	linkDistance   = 80.0
	chargeStrength = -800.0
	collidePadding = 40.0

	alphaMin       = 0.001
	velocityKeep   = 0.6 // fraction of velocity retained each tick
	maxTicks       = 300
	settleVelocity = 0.01

	initialRadius = 10.0
)

// golden-angle spiral keeps the initial placement deterministic
var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Simulation is an iterative force-directed layout over a fixed node/edge
// set. It advances in discrete ticks via Step until it settles or hits the
// tick cap. A changed tree means a fresh Simulation; there is no incremental
// re-layout.
type Simulation struct {
	nodes  []Node
	edges  []edgeIndexes
	width  float64
	height float64

	vx []float64
	vy []float64

	alpha      float64
	alphaDecay float64
	ticks      int
	settled    bool
}

type edgeIndexes struct {
	source int
	target int
}

// NewSimulation seeds a simulation for the given graph inside a
// width x height viewport. Edges referencing unknown node ids are dropped.
func NewSimulation(nodes []Node, edges []Edge, width, height float64) *Simulation {
	s := &Simulation{
		nodes:      append([]Node(nil), nodes...),
		width:      width,
		height:     height,
		vx:         make([]float64, len(nodes)),
		vy:         make([]float64, len(nodes)),
		alpha:      1,
		alphaDecay: 1 - math.Pow(alphaMin, 1.0/maxTicks),
	}

	index := make(map[string]int, len(nodes))
	for i := range s.nodes {
		index[s.nodes[i].ID] = i
		// Deterministic golden-angle spiral around the viewport center.
		r := initialRadius * math.Sqrt(0.5+float64(i))
		a := float64(i) * initialAngle
		s.nodes[i].X = width/2 + r*math.Cos(a)
		s.nodes[i].Y = height/2 + r*math.Sin(a)
	}

	for _, e := range edges {
		si, ok1 := index[e.Source]
		ti, ok2 := index[e.Target]
		if !ok1 || !ok2 || si == ti {
			continue
		}
		s.edges = append(s.edges, edgeIndexes{source: si, target: ti})
	}

	return s
}

// Step advances the simulation one tick and reports whether it has settled.
func (s *Simulation) Step() bool {
	if s.settled {
		return true
	}
	if len(s.nodes) == 0 {
		s.settled = true
		return true
	}

	s.alpha += (0 - s.alpha) * s.alphaDecay
	s.ticks++

	s.applyLinks()
	s.applyCharge()
	s.applyCenter()

	// Integrate velocities, then resolve overlaps and clamp to the viewport.
	maxSpeed := 0.0
	for i := range s.nodes {
		s.vx[i] *= velocityKeep
		s.vy[i] *= velocityKeep
		s.nodes[i].X += s.vx[i]
		s.nodes[i].Y += s.vy[i]
		if speed := math.Hypot(s.vx[i], s.vy[i]); speed > maxSpeed {
			maxSpeed = speed
		}
	}
	s.applyCollide()
	s.clamp()

	if s.alpha < alphaMin || s.ticks >= maxTicks || maxSpeed < settleVelocity {
		s.settled = true
	}
	return s.settled
}

// Run steps the simulation until it settles, checking for cancellation
// between ticks so an abandoned layout releases immediately.
func (s *Simulation) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if s.Step() {
			return nil
		}
	}
}

// Positions returns the node set with current coordinates.
func (s *Simulation) Positions() []Node {
	return append([]Node(nil), s.nodes...)
}

// applyLinks pulls edge endpoints toward the rest length.
func (s *Simulation) applyLinks() {
	for _, e := range s.edges {
		src, tgt := &s.nodes[e.source], &s.nodes[e.target]
		dx := tgt.X + s.vx[e.target] - src.X - s.vx[e.source]
		dy := tgt.Y + s.vy[e.target] - src.Y - s.vy[e.source]
		dist := math.Hypot(dx, dy)
		if dist == 0 {
			dx, dist = 1e-6, 1e-6
		}
		f := (dist - linkDistance) / dist * s.alpha * 0.5
		s.vx[e.target] -= dx * f
		s.vy[e.target] -= dy * f
		s.vx[e.source] += dx * f
		s.vy[e.source] += dy * f
	}
}

// applyCharge repels every node pair. O(n^2) is fine at research-tree sizes.
func (s *Simulation) applyCharge() {
	for i := range s.nodes {
		for j := i + 1; j < len(s.nodes); j++ {
			dx := s.nodes[j].X - s.nodes[i].X
			dy := s.nodes[j].Y - s.nodes[i].Y
			distSq := dx*dx + dy*dy
			if distSq == 0 {
				dx, distSq = 1e-6, 1e-12
			}
			f := chargeStrength * s.alpha / distSq
			s.vx[j] += dx * f
			s.vy[j] += dy * f
			s.vx[i] -= dx * f
			s.vy[i] -= dy * f
		}
	}
}

// applyCenter translates the whole layout so its centroid sits on the
// viewport midpoint.
func (s *Simulation) applyCenter() {
	var cx, cy float64
	for i := range s.nodes {
		cx += s.nodes[i].X
		cy += s.nodes[i].Y
	}
	cx = cx/float64(len(s.nodes)) - s.width/2
	cy = cy/float64(len(s.nodes)) - s.height/2
	for i := range s.nodes {
		s.nodes[i].X -= cx
		s.nodes[i].Y -= cy
	}
}

// applyCollide separates overlapping node cards by half-diagonal radius plus
// padding.
func (s *Simulation) applyCollide() {
	for i := range s.nodes {
		ri := collideRadius(&s.nodes[i])
		for j := i + 1; j < len(s.nodes); j++ {
			rj := collideRadius(&s.nodes[j])
			dx := s.nodes[j].X - s.nodes[i].X
			dy := s.nodes[j].Y - s.nodes[i].Y
			dist := math.Hypot(dx, dy)
			minDist := ri + rj
			if dist >= minDist {
				continue
			}
			if dist == 0 {
				dx, dist = 1e-6, 1e-6
			}
			push := (minDist - dist) / dist / 2
			s.nodes[j].X += dx * push
			s.nodes[j].Y += dy * push
			s.nodes[i].X -= dx * push
			s.nodes[i].Y -= dy * push
		}
	}
}

func collideRadius(n *Node) float64 {
	return math.Max(n.Width, n.Height)/2 + collidePadding
}

// clamp keeps every node's bounding box inside the viewport.
func (s *Simulation) clamp() {
	for i := range s.nodes {
		halfW := s.nodes[i].Width / 2
		halfH := s.nodes[i].Height / 2
		s.nodes[i].X = math.Max(halfW, math.Min(s.nodes[i].X, s.width-halfW))
		s.nodes[i].Y = math.Max(halfH, math.Min(s.nodes[i].Y, s.height-halfH))
	}
}
