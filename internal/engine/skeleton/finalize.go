package skeleton

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/skelanim/internal/engine/meshbuf"
	"github.com/Faultbox/skelanim/internal/logger"
	"github.com/Faultbox/skelanim/pkg/math"
)

// bindTolerance bounds the element error accepted between a preset inverse
// bind matrix and the inverse of the joint's bind pose.
const bindTolerance = 1e-3

func log() *zap.Logger { return logger.Named("skeleton") }

// Finalize prepares the skeleton for playback against buffers. It must be
// called exactly once, after every joint, key and weight has been added.
func (s *Skeleton) Finalize(buffers []*meshbuf.Buffer) error {
	if s.finalized {
		return ErrFinalized
	}

	if !s.explicitRoots {
		s.roots = s.deriveRoots()
	}
	order, err := s.walk()
	if err != nil {
		return err
	}
	s.order = order

	s.computeBindMatrices()

	var dropped int
	for i := range s.joints {
		j := &s.joints[i]
		if j.HasKeys() || len(j.Weights) > 0 {
			s.hasAnimation = true
		}
		dropped += j.Positions.prune()
		dropped += j.Scales.prune()
		dropped += j.Rotations.prune()

		s.frameCount = max(s.frameCount,
			j.Positions.LastFrame(), j.Scales.LastFrame(), j.Rotations.LastFrame())
	}
	if dropped > 0 {
		log().Debug("pruned redundant keys", zap.Int("count", dropped))
	}

	s.checkWeights(buffers)
	s.applyAttachments(buffers)
	s.snapshotBindPose(buffers)
	s.normalizeWeights(buffers)

	s.finalized = true
	return nil
}

// deriveRoots returns every joint that is not listed as anybody's child.
func (s *Skeleton) deriveRoots() []int {
	child := make([]bool, len(s.joints))
	for i := range s.joints {
		for _, c := range s.joints[i].Children {
			child[c] = true
		}
	}
	var roots []int
	for i := range s.joints {
		if !child[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// walk visits the hierarchy iteratively from the roots and returns the
// preorder. Every joint must be reached exactly once.
func (s *Skeleton) walk() ([]int, error) {
	seen := make([]bool, len(s.joints))
	order := make([]int, 0, len(s.joints))

	stack := make([]int, 0, len(s.joints))
	for i := len(s.roots) - 1; i >= 0; i-- {
		stack = append(stack, s.roots[i])
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[id] {
			return nil, fmt.Errorf("joint %q reached twice: %w", s.joints[id].Name, ErrCyclicHierarchy)
		}
		seen[id] = true
		order = append(order, id)

		children := s.joints[id].Children
		for i := len(children) - 1; i >= 0; i-- {
			c := children[i]
			if s.joints[c].Parent != id {
				return nil, fmt.Errorf("joint %q has parent %d, listed under %d: %w",
					s.joints[c].Name, s.joints[c].Parent, id, ErrCyclicHierarchy)
			}
			stack = append(stack, c)
		}
	}

	if len(order) != len(s.joints) {
		for i, ok := range seen {
			if !ok {
				return nil, fmt.Errorf("joint %q unreachable from any root: %w", s.joints[i].Name, ErrCyclicHierarchy)
			}
		}
	}
	return order, nil
}

func (s *Skeleton) computeBindMatrices() {
	for _, id := range s.order {
		j := &s.joints[id]
		if j.Parent == NoJoint {
			j.GlobalMatrix = j.LocalMatrix
		} else {
			j.GlobalMatrix = s.joints[j.Parent].GlobalMatrix.Mul(j.LocalMatrix)
		}
		if !j.presetInverse {
			j.InverseGlobalMatrix = j.GlobalMatrix.Inverse()
		} else if !j.GlobalMatrix.Mul(j.InverseGlobalMatrix).ApproxEqual(math.Identity(), bindTolerance) {
			log().Debug("inverse bind matrix differs from bind pose", zap.String("joint", j.Name))
		}
	}
}

// checkWeights clamps weights that point outside the buffers to vertex 0 of
// buffer 0, or drops them when there is no such vertex.
func (s *Skeleton) checkWeights(buffers []*meshbuf.Buffer) {
	fallback := len(buffers) > 0 && buffers[0].Len() > 0

	for i := range s.joints {
		j := &s.joints[i]
		kept := j.Weights[:0]
		for _, w := range j.Weights {
			if w.Buffer >= 0 && w.Buffer < len(buffers) &&
				w.Vertex >= 0 && w.Vertex < buffers[w.Buffer].Len() {
				kept = append(kept, w)
				continue
			}
			log().Warn("skinning weight out of range",
				zap.String("joint", j.Name),
				zap.Int("buffer", w.Buffer),
				zap.Int("vertex", w.Vertex),
				zap.Bool("clamped", fallback))
			if !fallback {
				continue
			}
			w.Buffer, w.Vertex = 0, 0
			kept = append(kept, w)
		}
		j.Weights = kept
	}
}

func (s *Skeleton) snapshotBindPose(buffers []*meshbuf.Buffer) {
	for i := range s.joints {
		for k := range s.joints[i].Weights {
			w := &s.joints[i].Weights[k]
			v := buffers[w.Buffer].Vertices
			w.bindPosition = v.Position(w.Vertex)
			w.bindNormal = v.Normal(w.Vertex)
		}
	}
}

// normalizeWeights scales the strengths on each vertex so they sum to one.
func (s *Skeleton) normalizeWeights(buffers []*meshbuf.Buffer) {
	totals := make([][]float32, len(buffers))
	for b, buf := range buffers {
		totals[b] = make([]float32, buf.Len())
	}

	for i := range s.joints {
		for _, w := range s.joints[i].Weights {
			totals[w.Buffer][w.Vertex] += w.Strength
		}
	}

	for i := range s.joints {
		for k := range s.joints[i].Weights {
			w := &s.joints[i].Weights[k]
			if total := totals[w.Buffer][w.Vertex]; total != 0 && total != 1 {
				w.Strength /= total
			}
		}
	}
}

func (s *Skeleton) applyAttachments(buffers []*meshbuf.Buffer) {
	for i := range s.joints {
		j := &s.joints[i]
		for _, b := range j.attached {
			if b < 0 || b >= len(buffers) {
				log().Warn("attached buffer out of range",
					zap.String("joint", j.Name), zap.Int("buffer", b))
				continue
			}
			buffers[b].Transform(j.GlobalMatrix)
		}
	}
}
