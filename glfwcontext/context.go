package glfwcontext

import (
	"log"
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"

	"github.com/richinsley/gotopology/input"
	options "github.com/richinsley/gotopology/options"
)

// Context is a GLFW window with a 4.1 core context. Window events are
// forwarded to an attached input.State.
type Context struct {
	window *glfw.Window
	state  *input.State
	// pixels of scroll offset per wheel notch
	scrollStep float32
	// A map to store functions to be called on key presses.
	keyCallbacks map[glfw.Key]func()
}

// New creates the window. A hidden window still provides a context for
// offscreen rendering.
func New(options *options.Options, visible bool) (*Context, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	if visible {
		glfw.WindowHint(glfw.Resizable, glfw.True)
		glfw.WindowHint(glfw.Visible, glfw.True)
	} else {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}

	win, err := glfw.CreateWindow(*options.Width, *options.Height, "gotopology", nil, nil)
	if err != nil {
		return nil, err
	}

	c := &Context{
		window:       win,
		scrollStep:   float32(*options.ScrollStep),
		keyCallbacks: make(map[glfw.Key]func()),
	}
	win.SetKeyCallback(c.glfwKeyCallback)
	win.SetCursorPosCallback(c.glfwCursorPosCallback)
	win.SetScrollCallback(c.glfwScrollCallback)
	win.SetFramebufferSizeCallback(c.glfwFramebufferSizeCallback)

	c.MakeCurrent()
	if visible {
		glfw.SwapInterval(1)
	}
	return c, nil
}

// Attach routes pointer, wheel and framebuffer events into s and seeds it
// with the current framebuffer size.
func (c *Context) Attach(s *input.State) {
	c.state = s
	s.Resized(c.GetFramebufferSize())
}

// RegisterKeyCallback allows the main application to register a function to be
// called when a specific key is pressed.
func (c *Context) RegisterKeyCallback(key glfw.Key, f func()) {
	c.keyCallbacks[key] = f
}

func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
	if action == glfw.Press {
		if callback, ok := c.keyCallbacks[key]; ok {
			callback()
		}
	}
}

// Cursor positions are in window coordinates, so they are normalised by the
// window size rather than the framebuffer size.
func (c *Context) glfwCursorPosCallback(w *glfw.Window, x, y float64) {
	if c.state == nil {
		return
	}
	width, height := w.GetSize()
	c.state.PointerMoved(x, y, width, height)
}

// Wheel down scrolls the page down, which grows the offset.
func (c *Context) glfwScrollCallback(w *glfw.Window, xoff, yoff float64) {
	if c.state == nil {
		return
	}
	c.state.Scrolled(float32(-yoff) * c.scrollStep)
}

func (c *Context) glfwFramebufferSizeCallback(w *glfw.Window, width, height int) {
	if c.state == nil {
		return
	}
	c.state.Resized(width, height)
}

// MakeCurrent makes the context current for the calling goroutine.
func (c *Context) MakeCurrent() {
	c.window.MakeContextCurrent()
}

// Shutdown destroys the window.
func (c *Context) Shutdown() {
	c.window.Destroy()
}

func (c *Context) ShouldClose() bool {
	return c.window.ShouldClose()
}

func (c *Context) EndFrame() {
	c.window.SwapBuffers()
	glfw.PollEvents()
}

func (c *Context) GetFramebufferSize() (int, int) {
	return c.window.GetFramebufferSize()
}

func (c *Context) Time() float64 {
	return glfw.GetTime()
}

// InitGraphics initializes GLFW. Must be called from the main thread.
func InitGraphics() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return err
	}
	log.Printf("GLFW Initialized")
	return nil
}

// TerminateGraphics shuts down GLFW. Must be called from the main thread.
func TerminateGraphics() {
	glfw.Terminate()
	log.Printf("GLFW Terminated")
}
