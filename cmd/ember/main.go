package main

import (
	"flag"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/emberline/ember/internal/app"
	"github.com/emberline/ember/internal/logging"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	debug := flag.Bool("debug", false, "Enable debug mode (particle log, CPU mirror validation, overlay stats)")
	strict := flag.Bool("strict", false, "Treat shader compile/link failures as fatal")
	capture := flag.Bool("capture", false, "Write one particle snapshot CSV after the first debug readback")
	font := flag.String("font", "", "TTF font path for the debug overlay (empty disables it)")
	flag.Parse()

	log := logging.NewDefaultLogger("ember", *debug)

	opts := app.Options{
		Debug:         *debug,
		StrictShaders: *strict,
		Capture:       *capture,
		FontPath:      *font,
	}
	if err := run(log, opts); err != nil {
		log.Errorf("setup failed: %v", err)
		os.Exit(-1)
	}
}

func run(log logging.Logger, opts app.Options) error {
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(640, 480, "Ember", nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()

	application := app.NewApp(window, log, opts)
	if err := application.Init(); err != nil {
		return err
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})

	// Pointer position feeds the emitter used next frame.
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		application.Input.CursorX = xpos
		application.Input.CursorY = ypos
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		application.Frame()
	}
	return nil
}
