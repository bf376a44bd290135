// skintool is a CLI utility for inspecting skinned glTF meshes and their
// animation playback.
package main

import (
	"flag"
	"fmt"
	stdmath "math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/Faultbox/skelanim/internal/config"
	"github.com/Faultbox/skelanim/internal/engine/animation"
	"github.com/Faultbox/skelanim/internal/engine/loader"
	"github.com/Faultbox/skelanim/internal/engine/scene"
	"github.com/Faultbox/skelanim/internal/engine/skeleton"
	"github.com/Faultbox/skelanim/internal/logger"
	"github.com/Faultbox/skelanim/pkg/math"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		cmdInfo(cfg, args)
	case "frames", "play":
		cmdFrames(cfg, args)
	case "dump":
		cmdDump(cfg, args)
	case "config":
		cmdConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`skintool - skeletal animation inspection utility

Usage:
  skintool [flags] <command> [options]

Commands:
  info <file.glb>                      Show skeleton, buffer and clip information
  frames <file.glb> [-for 2s] [-step 100ms] [-jump N] [-bend joint=deg]
                                       Play the clip and print frame numbers and bounds.
                                       -jump moves to frame N half way through, blending
                                       over -transition; -bend turns a joint about Z on
                                       top of the clip (control joint mode)
  dump <file.glb> [-frame N] [-joint name]
                                       Dump animated joint state at a frame
  config [-save]                       Print the effective configuration

Flags:
  -config path   Config file
  -debug         Debug logging
  -fps N         Playback speed (negative plays backwards)
  -once          Play once instead of looping
  -clip name     Animation clip name or index
  -joints mode   Joint mode: none, read or control
  -transition d  Transition time for frame jumps

Examples:
  skintool info character.glb
  skintool -clip walk -fps 30 frames character.glb -for 1s -step 50ms
  skintool -transition 200ms frames character.glb -jump 0
  skintool frames character.glb -bend spine=30
  skintool dump character.glb -frame 12 -joint spine`)
}

func fail(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func load(cfg *config.Config, path string) *loader.Result {
	res, err := loader.Open(path, loader.Options{
		Animation:       cfg.Loader.Animation,
		FramesPerSecond: cfg.Loader.FramesPerSecond,
	})
	if err != nil {
		fail("Error: %v", err)
	}
	return res
}

// newPlayer builds a mesh and player configured from cfg.
func newPlayer(cfg *config.Config, res *loader.Result) *animation.Player {
	mesh, err := animation.NewMesh(res.Skeleton, res.Buffers)
	if err != nil {
		fail("Error: %v", err)
	}
	mesh.SetAnimationSpeed(res.FramesPerSecond)
	mesh.SetAnimateNormals(cfg.Animation.AnimateNormals)
	if mode, ok := skeleton.ParseInterpolation(cfg.Animation.Interpolation); ok {
		mesh.SetInterpolationMode(mode)
	}

	end := float32(cfg.Animation.EndFrame)
	if end < 0 {
		end = mesh.FrameCount()
	}
	sched := animation.NewScheduler(float32(cfg.Animation.StartFrame), end, cfg.Animation.FPS, cfg.Animation.Loop)
	sched.SetEndCallback(func() {
		logger.Info("animation finished", zap.Float32("frame", sched.CurrentFrame()))
	})

	p := animation.NewPlayer(mesh, sched)
	if mode, ok := animation.ParseJointMode(cfg.Animation.JointMode); ok {
		p.SetJointMode(mode)
	}
	p.SetTransitionTime(cfg.Animation.TransitionTime)
	return p
}

func cmdInfo(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fail("Usage: skintool info <file.glb>")
	}
	res := load(cfg, args[0])
	mesh, err := animation.NewMesh(res.Skeleton, res.Buffers)
	if err != nil {
		fail("Error: %v", err)
	}

	vertices := 0
	for _, b := range res.Buffers {
		vertices += b.Len()
	}
	weights := 0
	s := res.Skeleton
	for i := 0; i < s.JointCount(); i++ {
		weights += len(s.Joint(i).Weights)
	}

	fmt.Printf("File:       %s\n", args[0])
	fmt.Printf("Joints:     %d (%d roots)\n", s.JointCount(), len(s.Roots()))
	fmt.Printf("Buffers:    %d (%d vertices, %d weights)\n", len(res.Buffers), vertices, weights)
	fmt.Printf("Clip:       %q\n", res.Animation)
	fmt.Printf("Frames:     %.2f at %.0f fps\n", mesh.FrameCount(), res.FramesPerSecond)
	fmt.Printf("Animated:   %v\n", mesh.HasAnimation())
	b := mesh.Bounds()
	fmt.Printf("Bounds:     (%.3f %.3f %.3f) - (%.3f %.3f %.3f)\n",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	fmt.Println()
	fmt.Println("Joints:")

	var walk func(id, depth int)
	walk = func(id, depth int) {
		j := s.Joint(id)
		keys := j.Positions.Len() + j.Rotations.Len() + j.Scales.Len()
		fmt.Printf("  %*s%-*s keys=%-4d weights=%d\n", depth*2, "", 24-depth*2, j.Name, keys, len(j.Weights))
		for _, c := range j.Children {
			walk(c, depth+1)
		}
	}
	for _, r := range s.Roots() {
		walk(r, 0)
	}
}

func cmdFrames(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("frames", flag.ExitOnError)
	total := fs.Duration("for", 2*time.Second, "Playback time to simulate")
	step := fs.Duration("step", 100*time.Millisecond, "Clock step")
	jump := fs.Float64("jump", -1, "Jump to this frame half way through")
	bend := fs.String("bend", "", "Turn a joint about Z on top of the clip, as joint=degrees")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("Usage: skintool frames <file.glb> [-for 2s] [-step 100ms] [-jump N] [-bend joint=deg]")
	}
	if *step <= 0 {
		fail("step must be positive")
	}

	p := newPlayer(cfg, load(cfg, fs.Arg(0)))
	if *bend != "" {
		if err := bendJoint(p, *bend); err != nil {
			fail("Error: %v", err)
		}
	}
	p.Scheduler().Reset(0)

	fmt.Printf("%10s %10s  %s\n", "time", "frame", "bounds center")
	for now := time.Duration(0); now <= *total; now += *step {
		if *jump >= 0 && now >= *total/2 && now-*step < *total/2 {
			p.SetCurrentFrame(float32(*jump), now)
		}
		p.Update(now)
		c := p.Mesh().Bounds().Center()
		fmt.Printf("%10s %10.3f  (%.3f %.3f %.3f)\n", now, p.Frame(), c.X, c.Y, c.Z)
	}
}

// bendJoint switches p to control mode and adds a fixed rotation about Z
// to one joint every update.
func bendJoint(p *animation.Player, spec string) error {
	name, value, ok := strings.Cut(spec, "=")
	if !ok {
		return fmt.Errorf("bend %q: want joint=degrees", spec)
	}
	deg, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return fmt.Errorf("bend %q: %w", spec, err)
	}
	node := p.JointNode(name)
	if node == nil {
		return fmt.Errorf("bend: no joint named %q", name)
	}

	extra := scene.Quat(math.QuatFromAxisAngle(math.Vec3{Z: 1}, float32(deg*stdmath.Pi/180)))
	p.SetJointMode(animation.JointsControl)
	p.OnJoints = func(nodes []*scene.JointNode) {
		n := nodes[node.Index]
		n.Rotation = n.Rotation.Mul(extra)
	}
	return nil
}

func cmdDump(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	frame := fs.Float64("frame", 0, "Frame to evaluate")
	joint := fs.String("joint", "", "Only dump this joint")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("Usage: skintool dump <file.glb> [-frame N] [-joint name]")
	}

	p := newPlayer(cfg, load(cfg, fs.Arg(0)))
	mesh := p.Mesh()
	mesh.GetMesh(float32(*frame), 0, 0, 0)

	nodes := p.JointNodes()
	mesh.RecoverJoints(nodes)

	dumper := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, MaxDepth: 2}
	for i, n := range nodes {
		if *joint != "" && n.Name != *joint {
			continue
		}
		fmt.Printf("joint %d %q\n", i, n.Name)
		dumper.Fdump(os.Stdout, struct {
			Position, Scale, AbsolutePosition any
			Rotation                          any
			Global                            any
		}{
			Position:         n.Position,
			Scale:            n.Scale,
			AbsolutePosition: n.AbsolutePosition(),
			Rotation:         n.Rotation,
			Global:           mesh.Pose().GlobalMatrix(i),
		})
	}
}

func cmdConfig(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.Bool("save", false, "Write the configuration to the user config directory")
	fs.Parse(args)

	if *save {
		if err := cfg.Save(); err != nil {
			fail("Error: %v", err)
		}
		fmt.Printf("Saved to %s\n", config.ConfigDir())
		return
	}

	data, err := cfg.Marshal()
	if err != nil {
		fail("Error: %v", err)
	}
	os.Stdout.Write(data)
}
