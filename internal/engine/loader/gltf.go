// Package loader builds skeletons and mesh buffers from glTF files.
package loader

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/skelanim/internal/engine/meshbuf"
	"github.com/Faultbox/skelanim/internal/engine/skeleton"
	"github.com/Faultbox/skelanim/internal/logger"
	"github.com/Faultbox/skelanim/pkg/math"
)

// DefaultFramesPerSecond converts glTF key times, given in seconds, into
// frames when Options leaves it unset.
const DefaultFramesPerSecond = 25

// stepEpsilon is the frame gap used to hold a value until the next key of a
// STEP sampler.
const stepEpsilon = 1e-3

// Options controls what Decode extracts.
type Options struct {
	// Animation selects a clip by name or index. Empty selects the first.
	Animation string
	// FramesPerSecond converts key times to frames.
	FramesPerSecond float32
	// Finalize finalizes the skeleton against the buffers before returning.
	Finalize bool
}

// Result is a decoded skinned mesh.
type Result struct {
	Skeleton        *skeleton.Skeleton
	Buffers         []*meshbuf.Buffer
	FramesPerSecond float32
	Animation       string
}

// Open reads a .gltf or .glb file and decodes it.
func Open(path string, opts Options) (*Result, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	res, err := Decode(doc, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	logger.Named("loader").Info("loaded glTF",
		zap.String("path", path),
		zap.Int("joints", res.Skeleton.JointCount()),
		zap.Int("buffers", len(res.Buffers)),
		zap.String("animation", res.Animation))
	return res, nil
}

// Decode converts a glTF document. Every node becomes a joint with the
// node index as joint id. Skinned primitives are bound through their
// JOINTS_0 and WEIGHTS_0 attributes; other primitives are attached rigidly
// to their node.
func Decode(doc *gltf.Document, opts Options) (*Result, error) {
	if opts.FramesPerSecond <= 0 {
		opts.FramesPerSecond = DefaultFramesPerSecond
	}

	s := skeleton.New()
	if err := buildJoints(doc, s); err != nil {
		return nil, err
	}
	if err := applySkins(doc, s); err != nil {
		return nil, err
	}

	res := &Result{Skeleton: s, FramesPerSecond: opts.FramesPerSecond}

	for i, node := range doc.Nodes {
		if node.Mesh == nil {
			continue
		}
		if err := decodeMesh(doc, s, i, node, res); err != nil {
			return nil, errors.Wrapf(err, "node %d", i)
		}
	}

	anim, err := selectAnimation(doc, opts.Animation)
	if err != nil {
		return nil, err
	}
	if anim != nil {
		res.Animation = anim.Name
		if err := decodeAnimation(doc, s, anim, opts.FramesPerSecond); err != nil {
			return nil, errors.Wrapf(err, "animation %q", anim.Name)
		}
	}

	if opts.Finalize {
		if err := s.Finalize(res.Buffers); err != nil {
			return nil, errors.Wrap(err, "finalize skeleton")
		}
	}
	return res, nil
}

func buildJoints(doc *gltf.Document, s *skeleton.Skeleton) error {
	for i, node := range doc.Nodes {
		name := node.Name
		if name == "" {
			name = fmt.Sprintf("node%d", i)
		}
		id, err := s.CreateJoint(name, skeleton.NoJoint)
		if err != nil {
			return err
		}
		if err := s.SetLocalMatrix(id, nodeMatrix(node)); err != nil {
			return err
		}
	}
	for i, node := range doc.Nodes {
		for _, c := range node.Children {
			if err := s.Link(i, int(c)); err != nil {
				return errors.Wrapf(err, "node %d child %d", i, c)
			}
		}
	}
	return nil
}

// nodeMatrix returns the local transform of a node. Nodes built in code
// carry zero values where a parsed file carries defaults.
func nodeMatrix(n *gltf.Node) math.Mat4 {
	m := math.Mat4(n.Matrix)
	if m != (math.Mat4{}) && !m.IsIdentity() {
		return m
	}

	t := math.V3(n.Translation)
	r := math.Quat{X: n.Rotation[0], Y: n.Rotation[1], Z: n.Rotation[2], W: n.Rotation[3]}
	if r == (math.Quat{}) {
		r = math.QuatIdentity()
	}
	sc := math.V3(n.Scale)
	if sc == (math.Vec3{}) {
		sc = math.Vec3{X: 1, Y: 1, Z: 1}
	}
	return math.FromTRS(t, r, sc)
}

func applySkins(doc *gltf.Document, s *skeleton.Skeleton) error {
	for si, skin := range doc.Skins {
		if skin.InverseBindMatrices == nil {
			continue
		}
		data, err := modeler.ReadAccessor(doc, doc.Accessors[int(*skin.InverseBindMatrices)], nil)
		if err != nil {
			return errors.Wrapf(err, "skin %d inverse bind matrices", si)
		}
		mats, ok := data.([][4][4]float32)
		if !ok {
			return errors.Errorf("skin %d: inverse bind matrices are %T, want MAT4 floats", si, data)
		}
		for k, node := range skin.Joints {
			if k >= len(mats) {
				break
			}
			if err := s.SetInverseBindMatrix(int(node), flattenMat4(mats[k])); err != nil {
				return errors.Wrapf(err, "skin %d joint %d", si, k)
			}
		}
	}
	return nil
}

func flattenMat4(m [4][4]float32) math.Mat4 {
	var out math.Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[c*4+r] = m[c][r]
		}
	}
	return out
}

func decodeMesh(doc *gltf.Document, s *skeleton.Skeleton, nodeIdx int, node *gltf.Node, res *Result) error {
	mesh := doc.Meshes[int(*node.Mesh)]

	var skin *gltf.Skin
	if node.Skin != nil {
		skin = doc.Skins[int(*node.Skin)]
	}

	for pi, prim := range mesh.Primitives {
		buf, err := decodePrimitive(doc, prim)
		if err != nil {
			return errors.Wrapf(err, "mesh %q primitive %d", mesh.Name, pi)
		}
		bufIdx := len(res.Buffers)
		res.Buffers = append(res.Buffers, buf)

		jointsIdx, hasJoints := prim.Attributes[gltf.JOINTS_0]
		weightsIdx, hasWeights := prim.Attributes[gltf.WEIGHTS_0]
		if skin == nil || !hasJoints || !hasWeights {
			if err := attachRigid(s, nodeIdx, bufIdx, buf.Len()); err != nil {
				return err
			}
			continue
		}

		joints, err := modeler.ReadJoints(doc, doc.Accessors[int(jointsIdx)], nil)
		if err != nil {
			return errors.Wrap(err, "read joints")
		}
		weights, err := modeler.ReadWeights(doc, doc.Accessors[int(weightsIdx)], nil)
		if err != nil {
			return errors.Wrap(err, "read weights")
		}
		if err := bindWeights(s, skin, bufIdx, joints, weights); err != nil {
			return err
		}
	}
	return nil
}

// attachRigid moves an unskinned buffer into mesh space at finalize and
// binds every vertex fully to the node so it follows the node's animation.
func attachRigid(s *skeleton.Skeleton, nodeIdx, bufIdx, n int) error {
	if err := s.AttachBuffer(nodeIdx, bufIdx); err != nil {
		return err
	}
	for v := 0; v < n; v++ {
		if err := s.AddWeight(nodeIdx, bufIdx, v, 1); err != nil {
			return err
		}
	}
	return nil
}

func bindWeights(s *skeleton.Skeleton, skin *gltf.Skin, bufIdx int, joints [][4]uint16, weights [][4]float32) error {
	n := min(len(joints), len(weights))
	for v := 0; v < n; v++ {
		for k := 0; k < 4; k++ {
			w := weights[v][k]
			if w == 0 {
				continue
			}
			ji := int(joints[v][k])
			if ji >= len(skin.Joints) {
				logger.Named("loader").Warn("skin joint index out of range",
					zap.String("skin", skin.Name), zap.Int("vertex", v), zap.Int("joint", ji))
				continue
			}
			if err := s.AddWeight(int(skin.Joints[ji]), bufIdx, v, w); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodePrimitive(doc *gltf.Document, prim *gltf.Primitive) (*meshbuf.Buffer, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, errors.New("primitive has no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[int(posIdx)], nil)
	if err != nil {
		return nil, errors.Wrap(err, "read positions")
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[int(idx)], nil); err != nil {
			return nil, errors.Wrap(err, "read normals")
		}
	}
	var uv0, uv1 [][2]float32
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if uv0, err = modeler.ReadTextureCoord(doc, doc.Accessors[int(idx)], nil); err != nil {
			return nil, errors.Wrap(err, "read texcoord 0")
		}
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_1]; ok {
		if uv1, err = modeler.ReadTextureCoord(doc, doc.Accessors[int(idx)], nil); err != nil {
			return nil, errors.Wrap(err, "read texcoord 1")
		}
	}
	var tangents [][4]float32
	if idx, ok := prim.Attributes[gltf.TANGENT]; ok {
		if tangents, err = modeler.ReadTangent(doc, doc.Accessors[int(idx)], nil); err != nil {
			return nil, errors.Wrap(err, "read tangents")
		}
	}

	base := make([]meshbuf.Vertex, len(positions))
	for i, p := range positions {
		base[i] = meshbuf.Vertex{Position: math.V3(p), Color: [4]uint8{255, 255, 255, 255}}
		if i < len(normals) {
			base[i].Normal = math.V3(normals[i])
		}
		if i < len(uv0) {
			base[i].TexCoord = uv0[i]
		}
	}

	var vertices meshbuf.Vertices
	switch {
	case tangents != nil:
		vs := make(meshbuf.TangentVertices, len(base))
		for i := range base {
			vs[i].Vertex = base[i]
			if i < len(tangents) {
				t := tangents[i]
				vs[i].Tangent = math.Vec3{X: t[0], Y: t[1], Z: t[2]}
				vs[i].Binormal = base[i].Normal.Cross(vs[i].Tangent).Scale(t[3])
			}
		}
		vertices = vs
	case uv1 != nil:
		vs := make(meshbuf.TwoTexCoordVertices, len(base))
		for i := range base {
			vs[i].Vertex = base[i]
			if i < len(uv1) {
				vs[i].TexCoord2 = uv1[i]
			}
		}
		vertices = vs
	default:
		vertices = meshbuf.StandardVertices(base)
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[int(*prim.Indices)], nil); err != nil {
			return nil, errors.Wrap(err, "read indices")
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	return meshbuf.New(vertices, indices), nil
}

func selectAnimation(doc *gltf.Document, sel string) (*gltf.Animation, error) {
	if len(doc.Animations) == 0 {
		if sel != "" {
			return nil, errors.Errorf("animation %q requested but the file has none", sel)
		}
		return nil, nil
	}
	if sel == "" {
		return doc.Animations[0], nil
	}
	for _, a := range doc.Animations {
		if a.Name == sel {
			return a, nil
		}
	}
	if i, err := strconv.Atoi(sel); err == nil && i >= 0 && i < len(doc.Animations) {
		return doc.Animations[i], nil
	}
	return nil, errors.Errorf("animation %q not found", sel)
}

func decodeAnimation(doc *gltf.Document, s *skeleton.Skeleton, anim *gltf.Animation, fps float32) error {
	for ci, ch := range anim.Channels {
		if ch.Sampler == nil || ch.Target.Node == nil {
			continue
		}
		node := int(*ch.Target.Node)
		sampler := anim.Samplers[int(*ch.Sampler)]

		times, err := readFloats(doc, sampler.Input)
		if err != nil {
			return errors.Wrapf(err, "channel %d input", ci)
		}
		out, err := modeler.ReadAccessor(doc, doc.Accessors[int(*sampler.Output)], nil)
		if err != nil {
			return errors.Wrapf(err, "channel %d output", ci)
		}

		frames := make([]float32, len(times))
		for i, t := range times {
			frames[i] = t * fps
		}

		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSScale:
			vals, ok := out.([][3]float32)
			if !ok {
				return errors.Errorf("channel %d: %s output is %T", ci, ch.Target.Path, out)
			}
			add := s.AddPositionKey
			if ch.Target.Path == gltf.TRSScale {
				add = s.AddScaleKey
			}
			err = addKeys(frames, pick(vals, sampler.Interpolation), sampler.Interpolation,
				func(f float32, v [3]float32) error { return add(node, f, math.V3(v)) })
		case gltf.TRSRotation:
			vals, ok := out.([][4]float32)
			if !ok {
				return errors.Errorf("channel %d: rotation output is %T", ci, out)
			}
			err = addKeys(frames, pick(vals, sampler.Interpolation), sampler.Interpolation,
				func(f float32, v [4]float32) error {
					return s.AddRotationKey(node, f, math.Quat{X: v[0], Y: v[1], Z: v[2], W: v[3]})
				})
		default:
			logger.Named("loader").Debug("skipping animation channel", zap.Int("channel", ci), zap.Any("path", ch.Target.Path))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "channel %d", ci)
		}
	}
	return nil
}

func readFloats(doc *gltf.Document, idx *uint32) ([]float32, error) {
	if idx == nil {
		return nil, errors.New("missing accessor")
	}
	data, err := modeler.ReadAccessor(doc, doc.Accessors[int(*idx)], nil)
	if err != nil {
		return nil, err
	}
	f, ok := data.([]float32)
	if !ok {
		return nil, errors.Errorf("accessor is %T, want scalar floats", data)
	}
	return f, nil
}

// pick drops the tangents of CUBICSPLINE output, which stores
// in-tangent, value and out-tangent per key.
func pick[T any](vals []T, interp gltf.Interpolation) []T {
	if interp != gltf.InterpolationCubicSpline {
		return vals
	}
	out := make([]T, 0, len(vals)/3)
	for i := 1; i < len(vals); i += 3 {
		out = append(out, vals[i])
	}
	return out
}

// addKeys emits one key per input time. STEP samplers get an extra key
// just before each following key so linear sampling holds the value.
func addKeys[T any](frames []float32, vals []T, interp gltf.Interpolation, add func(float32, T) error) error {
	n := min(len(frames), len(vals))
	for i := 0; i < n; i++ {
		if err := add(frames[i], vals[i]); err != nil {
			return err
		}
		if interp == gltf.InterpolationStep && i+1 < n && frames[i+1]-frames[i] > 2*stepEpsilon {
			if err := add(frames[i+1]-stepEpsilon, vals[i]); err != nil {
				return err
			}
		}
	}
	return nil
}
