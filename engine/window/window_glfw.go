package window

import (
	"fmt"
	"image"
	"runtime"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state and the GL objects used to present frames.
type glfwWindow struct {
	parent  *engineWindow
	window  *glfw.Window
	running bool

	// texture receives each presented frame; readFbo exposes it as a blit source.
	texture   uint32
	readFbo   uint32
	texWidth  int
	texHeight int
}

// newPlatformWindow creates the GLFW window with a GL 2.1 context and input callbacks,
// and stores it as the internal window.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %v", err)
	}

	// Frames are produced off-screen and only blitted, so a legacy context is enough.
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %v", err)
	}
	win.MakeContextCurrent()
	glfw.SwapInterval(1)
	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	if err := gl.Init(); err != nil {
		win.Destroy()
		glfw.Terminate()
		return fmt.Errorf("failed to initialize OpenGL: %v", err)
	}

	gw := &glfwWindow{
		parent:  w,
		window:  win,
		running: true,
	}
	gl.GenTextures(1, &gw.texture)
	gl.GenFramebuffers(1, &gw.readFbo)
	w.internalWindow = gw

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetKeyCallback
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.running = false
			win.SetShouldClose(true)
			return
		}
		switch action {
		case glfw.Press, glfw.Repeat:
			w.emit(InputEvent{Kind: InputKeyDown, Key: uint32(key)})
		case glfw.Release:
			w.emit(InputEvent{Kind: InputKeyUp, Key: uint32(key)})
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		w.emit(InputEvent{Kind: InputScroll, Delta: float32(yoff)})
	})

	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonMiddle {
			return
		}
		if action == glfw.Press {
			w.beginDrag(win.GetCursorPos())
		} else if action == glfw.Release {
			w.endDrag()
		}
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		w.cursorMoved(xpos, ypos)
	})

	// Framebuffer size differs from window size on high-DPI displays; frames are traced
	// at framebuffer resolution.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetFramebufferSizeCallback
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width = width
		w.height = height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width = fbWidth
	w.height = fbHeight

	return nil
}

// platformPresent uploads frame into the presentation texture and blits it over the
// default framebuffer, flipping rows so the image's first row lands at the top.
//
// Parameters:
//   - w: the engineWindow to present into
//   - frame: the frame to display
//
// Returns:
//   - error: error if the window is not initialized or the frame is empty
func platformPresent(w *engineWindow, frame *image.RGBA) error {
	if w.internalWindow == nil {
		return fmt.Errorf("window is not initialized")
	}
	gw := w.internalWindow.(*glfwWindow)
	fw, fh := frame.Rect.Dx(), frame.Rect.Dy()
	if fw == 0 || fh == 0 {
		return fmt.Errorf("window: empty frame")
	}

	gl.BindTexture(gl.TEXTURE_2D, gw.texture)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(frame.Stride/4))
	if fw != gw.texWidth || fh != gw.texHeight {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(fw), int32(fh), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(frame.Pix))
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, gw.readFbo)
		gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, gw.texture, 0)
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
		gw.texWidth, gw.texHeight = fw, fh
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(fw), int32(fh), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(frame.Pix))
	}
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)

	gl.Viewport(0, 0, int32(w.width), int32(w.height))
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, gw.readFbo)
	gl.BlitFramebuffer(0, 0, int32(fw), int32(fh), 0, int32(w.height), int32(w.width), 0, gl.COLOR_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	gw.window.SwapBuffers()
	return nil
}

// platformSetTitle updates the GLFW window title.
func platformSetTitle(w *engineWindow, title string) {
	if w.internalWindow == nil {
		return
	}
	w.internalWindow.(*glfwWindow).window.SetTitle(title)
}

// platformIsRunningCheck returns whether the GLFW window is still active.
// Returns false if the internal window is nil, the running flag is cleared, or GLFW reports ShouldClose.
//
// Parameters:
//   - w: the engineWindow to check
//
// Returns:
//   - bool: true if the window is still running
func platformIsRunningCheck(w *engineWindow) bool {
	if w.internalWindow == nil {
		return false
	}
	gw := w.internalWindow.(*glfwWindow)
	return gw.running && !gw.window.ShouldClose()
}

// platformCloseWindow releases the GL objects, destroys the GLFW window and terminates
// the GLFW library. Returns an error if the internal window has not been initialized.
//
// Parameters:
//   - w: the engineWindow to close
//
// Returns:
//   - error: error if the window is not initialized
func platformCloseWindow(w *engineWindow) error {
	if w.internalWindow == nil {
		return fmt.Errorf("window is not initialized")
	}
	gw := w.internalWindow.(*glfwWindow)
	gw.running = false
	gl.DeleteFramebuffers(1, &gw.readFbo)
	gl.DeleteTextures(1, &gw.texture)
	gw.window.SetShouldClose(true)
	gw.window.Destroy()
	glfw.Terminate()
	w.internalWindow = nil
	return nil
}

// platformProcessMessages polls GLFW for pending events without blocking.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#PollEvents
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}
