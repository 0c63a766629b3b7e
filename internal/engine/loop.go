package engine

import (
	"math"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"

	"github.com/johnpgr/vkengine/internal/camera"
	"github.com/johnpgr/vkengine/internal/gpubuf"
	"github.com/johnpgr/vkengine/internal/lanes"
	"github.com/johnpgr/vkengine/internal/recorder"
	"github.com/johnpgr/vkengine/internal/scheduler"
	"github.com/johnpgr/vkengine/internal/verr"
)

// Run dispatches to the windowed lane-parallel main loop or the
// headless frame exporter, per the branch selected by
// --headless.
func (e *Engine) Run() error {
	if e.cfg.Headless {
		return e.runHeadless()
	}
	return e.runWindowed()
}

// runWindowed drives lane 0's per-iteration phase: poll window events,
// measure dt, poll for a module hot reload, call update, run one
// scheduler frame, reset the draw-command accumulator, barrier. Only
// lane 0 touches Vulkan, the window, or the module.
func (e *Engine) runWindowed() error {
	var runErr error
	e.lanes.Run(func(rt *lanes.Runtime) {
		last := time.Now()
		for {
			e.scopes.Frame.Reset()
			glfw.PollEvents()
			if e.window.ShouldClose() {
				rt.RequestQuit()
				rt.Sync()
				return
			}

			now := time.Now()
			dt := float32(now.Sub(last).Seconds())
			last = now
			e.state.SetDT(dt)

			e.host.PollReload(apiPointer(e.api), func() { vk.DeviceWaitIdle(e.ctx.Device) })
			e.host.Update(apiPointer(e.api))

			extent := e.sc.Extent
			err := e.sched.RunFrame(scheduler.FrameInput{
				Clear:        e.state.Clear,
				Quads:        e.state.Quads,
				MeshCommands: e.state.Meshes,
				View:         e.cam.View(),
				Proj:         camera.Projection(extent.Width, extent.Height),
			})
			e.state.Reset()

			if err != nil {
				if verr.Is(err, verr.DeviceLost) || verr.Is(err, verr.RecordFailure) {
					runErr = err
					rt.RequestQuit()
					rt.Sync()
					return
				}
				e.log.Warn("frame error", zap.Error(err))
			}

			rt.Sync()
		}
	})
	return runErr
}

// runHeadless drives the capture branch: no lanes, no hot
// reload, no input, a simulated fixed timestep.
func (e *Engine) runHeadless() error {
	for i := 0; i < e.cfg.Frames; i++ {
		e.scopes.Frame.Reset()
		e.state.SetDT(float32(1.0 / 60.0))
		e.host.Update(apiPointer(e.api))

		n := len(e.state.Quads)
		if n > scheduler.MaxQuads {
			n = scheduler.MaxQuads
		}
		for idx := 0; idx < n; idx++ {
			writeQuadCommand(e.frames[0].SSBO, idx, e.state.Quads[idx])
		}

		extent := e.sc.Extent
		in := recorder.Input{
			Quad:         e.pipelines.Quad,
			Mesh:         e.pipelines.Mesh,
			MeshTable:    e.meshTable,
			DescSet:      e.frames[0].DescSet,
			Clear:        e.state.Clear,
			QuadCount:    n,
			MeshCommands: e.state.Meshes,
		}
		view := e.cam.View()
		proj := camera.Projection(extent.Width, extent.Height)
		if err := e.headlessExp.Capture(i, e.cfg.OutputDir, in, view, proj); err != nil {
			return err
		}
		e.state.Reset()
	}
	e.log.Info("headless capture complete", zap.Int("frames", e.cfg.Frames), zap.String("output_dir", e.cfg.OutputDir))
	return nil
}

// writeQuadCommand packs one QuadCommand into the frame SSBO at index,
// mirroring scheduler.writeQuadCommand for the headless path, which
// shares the same SSBO layout but not the scheduler's frame-in-flight
// state machine.
func writeQuadCommand(ssbo *gpubuf.Buffer, index int, q recorder.QuadCommand) {
	const stride = 32
	buf := make([]byte, stride)
	for i, f := range q.Rect {
		putF32(buf[i*4:], f)
	}
	for i, f := range q.Color {
		putF32(buf[16+i*4:], f)
	}
	ssbo.WriteAt(index*stride, buf)
}

func putF32(b []byte, f float32) {
	bits := math.Float32bits(f)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}
