package animation

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/skelanim/internal/engine/meshbuf"
	"github.com/Faultbox/skelanim/internal/engine/scene"
)

// JointMode controls how a Player exchanges joint transforms with its
// joint nodes.
type JointMode int

const (
	// JointsNone skins the mesh and leaves joint nodes alone.
	JointsNone JointMode = iota
	// JointsRead copies the animated joints into the nodes after skinning.
	JointsRead
	// JointsControl lets the caller edit the nodes before they are written
	// back into the mesh and skinned.
	JointsControl
)

var jointModeNames = [...]string{"none", "read", "control"}

func (m JointMode) String() string {
	if m < 0 || int(m) >= len(jointModeNames) {
		return "unknown"
	}
	return jointModeNames[m]
}

// ParseJointMode maps "none", "read" and "control" to a mode.
func ParseJointMode(s string) (JointMode, bool) {
	for i, name := range jointModeNames {
		if name == s {
			return JointMode(i), true
		}
	}
	return JointsNone, false
}

type nodeSnapshot struct {
	position mgl32.Vec3
	rotation mgl32.Quat
}

// Player plays a Mesh on a Scheduler's clock.
type Player struct {
	mesh  *Mesh
	sched *Scheduler
	mode  JointMode

	nodes    []*scene.JointNode
	snapshot []nodeSnapshot

	// OnJoints runs in JointsControl mode between recovering the animated
	// joints and writing the nodes back into the mesh.
	OnJoints func(nodes []*scene.JointNode)

	frame float32
}

// NewPlayer returns a player for mesh driven by sched.
func NewPlayer(mesh *Mesh, sched *Scheduler) *Player {
	return &Player{mesh: mesh, sched: sched}
}

// Mesh returns the played mesh.
func (p *Player) Mesh() *Mesh { return p.mesh }

// Scheduler returns the frame scheduler.
func (p *Player) Scheduler() *Scheduler { return p.sched }

// JointMode returns the current joint mode.
func (p *Player) JointMode() JointMode { return p.mode }

// SetJointMode switches the joint mode, creating joint nodes when needed.
func (p *Player) SetJointMode(mode JointMode) {
	if mode != JointsNone {
		p.ensureNodes()
	}
	p.mode = mode
}

// JointNodes returns the joint nodes indexed by joint id, creating them and
// switching to JointsRead if no mode that uses them is active.
func (p *Player) JointNodes() []*scene.JointNode {
	if p.mode == JointsNone {
		p.SetJointMode(JointsRead)
	}
	return p.nodes
}

// JointNode returns the node of the named joint, or nil.
func (p *Player) JointNode(name string) *scene.JointNode {
	id := p.mesh.JointNumber(name)
	if id < 0 {
		return nil
	}
	return p.JointNodes()[id]
}

func (p *Player) ensureNodes() {
	if p.nodes == nil {
		p.nodes = scene.BuildJointNodes(p.mesh.Skeleton())
	}
}

// SetTransitionTime sets the blend time used by SetCurrentFrame. Joint
// nodes are needed for transitions, so a player without a joint mode
// switches to JointsRead.
func (p *Player) SetTransitionTime(d time.Duration) {
	p.sched.SetTransitionTime(d)
	if d > 0 && p.mode == JointsNone {
		p.SetJointMode(JointsRead)
	}
}

// SetCurrentFrame jumps to frame at now, starting a transition from the
// current joint node transforms when a transition time is set.
func (p *Player) SetCurrentFrame(frame float32, now time.Duration) {
	if p.sched.TransitionTime() > 0 && p.nodes != nil {
		p.snapshot = p.snapshot[:0]
		for _, n := range p.nodes {
			p.snapshot = append(p.snapshot, nodeSnapshot{position: n.Position, rotation: n.Rotation})
		}
	}
	p.sched.SetCurrentFrame(frame, now)
}

// Frame returns the frame of the last Update.
func (p *Player) Frame() float32 { return p.frame }

// Update advances playback to now and returns the skinned buffers.
func (p *Player) Update(now time.Duration) []*meshbuf.Buffer {
	p.frame = p.sched.BuildFrameNumber(now)
	start, end := p.sched.StartFrame(), p.sched.EndFrame()

	switch p.mode {
	case JointsRead:
		buffers := p.mesh.GetMesh(p.frame, 0, start, end)
		p.mesh.RecoverJoints(p.nodes)
		p.applyTransition(now)
		return buffers

	case JointsControl:
		frame := p.frame
		if start < end {
			frame = min(max(frame, start), end)
		}
		p.mesh.AnimateJoints(min(max(frame, 0), p.mesh.FrameCount()), 1)
		p.mesh.RecoverJoints(p.nodes)
		p.applyTransition(now)
		if p.OnJoints != nil {
			p.OnJoints(p.nodes)
		}
		p.mesh.TransferJoints(p.nodes)
		p.mesh.Skin()
		return p.mesh.Buffers()

	default:
		return p.mesh.GetMesh(p.frame, 0, start, end)
	}
}

// applyTransition blends the joint nodes from the snapshot taken at the
// last SetCurrentFrame towards the animated pose.
func (p *Player) applyTransition(now time.Duration) {
	ramp, active := p.sched.TransitionRamp(now)
	if !active || len(p.snapshot) != len(p.nodes) {
		return
	}
	for i, n := range p.nodes {
		from := p.snapshot[i]
		n.Position = from.position.Add(n.Position.Sub(from.position).Mul(ramp))
		n.Rotation = mgl32.QuatSlerp(from.rotation, n.Rotation, ramp)
	}
	for _, r := range p.mesh.Skeleton().Roots() {
		p.nodes[r].UpdateAbsolute()
	}
}
