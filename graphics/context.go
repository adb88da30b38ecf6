package graphics

// Context is an OpenGL context the renderer draws with. Calls must come from
// the thread that created it.
type Context interface {
	MakeCurrent()
	Shutdown()
	ShouldClose() bool
	// EndFrame swaps buffers and processes pending window events.
	EndFrame()
	GetFramebufferSize() (int, int)
	Time() float64
}
