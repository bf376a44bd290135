// Package animation drives skinned meshes over time: Mesh exposes a
// skeleton and its buffers at a requested frame, Scheduler turns a clock
// into frame numbers and Player combines both with caller-owned joint nodes.
package animation

import (
	"go.uber.org/zap"

	"github.com/Faultbox/skelanim/internal/engine/meshbuf"
	"github.com/Faultbox/skelanim/internal/engine/scene"
	"github.com/Faultbox/skelanim/internal/engine/skeleton"
	"github.com/Faultbox/skelanim/internal/logger"
	"github.com/Faultbox/skelanim/pkg/math"
)

// Unanimated requests the bind pose from GetMesh.
const Unanimated = -1

// DefaultFramesPerSecond is the playback rate of a new mesh.
const DefaultFramesPerSecond = 25

// Mesh is a skinned mesh: a finalized skeleton, its bind-pose buffers and
// one playback worth of pose and skinned buffers.
type Mesh struct {
	skel    *skeleton.Skeleton
	bind    []*meshbuf.Buffer
	skinned []*meshbuf.Buffer

	pose    *skeleton.Pose
	skinner *skeleton.Skinner

	fps float32
}

// NewMesh wraps a skeleton and the buffers its weights refer to. The
// skeleton is finalized here if the loader has not done so.
func NewMesh(s *skeleton.Skeleton, buffers []*meshbuf.Buffer) (*Mesh, error) {
	if !s.Finalized() {
		if err := s.Finalize(buffers); err != nil {
			return nil, err
		}
	}

	m := &Mesh{
		skel:    s,
		bind:    buffers,
		skinned: meshbuf.CloneAll(buffers),
		fps:     DefaultFramesPerSecond,
	}

	var err error
	if m.pose, err = skeleton.NewPose(s); err != nil {
		return nil, err
	}
	if m.skinner, err = skeleton.NewSkinner(s, m.skinned); err != nil {
		return nil, err
	}
	return m, nil
}

// GetMesh returns the buffers posed at frame. Unanimated returns the
// bind-pose buffers. detail selects a level of detail and is ignored, as
// meshes carry a single one.
func (m *Mesh) GetMesh(frame float32, detail int, startLoop, endLoop float32) []*meshbuf.Buffer {
	_ = detail
	if frame == Unanimated || !m.skel.HasAnimation() {
		return m.bind
	}

	if startLoop < endLoop {
		frame = min(max(frame, startLoop), endLoop)
	}
	frame = min(max(frame, 0), m.skel.FrameCount())

	m.pose.Animate(frame, 1)
	m.Skin()
	return m.skinned
}

// AnimateJoints moves the pose to frame without skinning.
func (m *Mesh) AnimateJoints(frame, blend float32) {
	m.pose.Animate(frame, blend)
}

// Skin deforms the skinned buffers with the current pose.
func (m *Mesh) Skin() {
	if err := m.skinner.Skin(m.pose, m.skinned); err != nil {
		logger.Error("skinning failed", zap.Error(err))
	}
}

// RecoverJoints copies the animated local transform of every joint into
// nodes, indexed by joint id, and refreshes their absolute transforms.
func (m *Mesh) RecoverJoints(nodes []*scene.JointNode) {
	n := min(len(nodes), m.skel.JointCount())
	for i := 0; i < n; i++ {
		node := nodes[i]
		if node == nil {
			continue
		}
		node.Position = scene.Vec3(m.pose.Position(i))
		node.Rotation = scene.Quat(m.pose.Rotation(i))
		node.Scale = scene.Vec3(m.pose.Scale(i))
	}
	for _, r := range m.skel.Roots() {
		if r < len(nodes) && nodes[r] != nil {
			nodes[r].UpdateAbsolute()
		}
	}
}

// TransferJoints writes node transforms back into the pose. The next
// Animate call samples the tracks again. Nodes that still match the pose
// are skipped, and when none differ the pose is left untouched so the
// following Skin call has nothing to redo.
func (m *Mesh) TransferJoints(nodes []*scene.JointNode) {
	changed := false
	n := min(len(nodes), m.skel.JointCount())
	for i := 0; i < n; i++ {
		node := nodes[i]
		if node == nil {
			continue
		}
		t := scene.EngineVec3(node.Position)
		r := scene.EngineQuat(node.Rotation)
		s := scene.EngineVec3(node.Scale)
		global := node.Space == scene.SpaceGlobal
		if !global && m.matchesPose(i, t, r, s) {
			continue
		}
		m.pose.SetJoint(i, t, r, s, global)
		changed = true
	}
	if !changed {
		return
	}
	m.pose.BuildGlobalMatrices()
	m.pose.Invalidate()
}

const transferEpsilon = 1e-6

func (m *Mesh) matchesPose(id int, t math.Vec3, r math.Quat, s math.Vec3) bool {
	return t.ApproxEqual(m.pose.Position(id), transferEpsilon) &&
		s.ApproxEqual(m.pose.Scale(id), transferEpsilon) &&
		r.SameRotation(m.pose.Rotation(id), transferEpsilon)
}

// JointCount returns the number of joints.
func (m *Mesh) JointCount() int { return m.skel.JointCount() }

// JointName returns the name of joint i, or "" when out of range.
func (m *Mesh) JointName(i int) string {
	if j := m.skel.Joint(i); j != nil {
		return j.Name
	}
	return ""
}

// JointNumber returns the id of the named joint, or -1.
func (m *Mesh) JointNumber(name string) int { return m.skel.JointByName(name) }

// FrameCount returns the last key frame.
func (m *Mesh) FrameCount() float32 { return m.skel.FrameCount() }

// AnimationSpeed returns the frames per second the source was authored at.
func (m *Mesh) AnimationSpeed() float32 { return m.fps }

// SetAnimationSpeed sets the authored frames per second.
func (m *Mesh) SetAnimationSpeed(fps float32) { m.fps = fps }

// SetInterpolationMode selects linear or constant key sampling.
func (m *Mesh) SetInterpolationMode(mode skeleton.Interpolation) {
	m.pose.SetInterpolation(mode)
}

// SetAnimateNormals toggles normal skinning.
func (m *Mesh) SetAnimateNormals(on bool) { m.skinner.SetAnimateNormals(on) }

// Bounds returns the box around the skinned buffers.
func (m *Mesh) Bounds() meshbuf.Bounds { return meshbuf.MergeBounds(m.skinned) }

// HasAnimation reports whether the skeleton has keys or weights.
func (m *Mesh) HasAnimation() bool { return m.skel.HasAnimation() }

// Skeleton returns the underlying skeleton.
func (m *Mesh) Skeleton() *skeleton.Skeleton { return m.skel }

// Pose returns the mesh's playback pose.
func (m *Mesh) Pose() *skeleton.Pose { return m.pose }

// Buffers returns the skinned buffers. They change on the next GetMesh.
func (m *Mesh) Buffers() []*meshbuf.Buffer { return m.skinned }

// BindBuffers returns the bind-pose buffers.
func (m *Mesh) BindBuffers() []*meshbuf.Buffer { return m.bind }
