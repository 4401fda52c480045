package corepipeline

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	KeySpace int = iota
	KeyEscape
	KeyH
	KeyM
	keyCount
)

// InputModule tracks the keyboard of the primary window. Install it after WindowModule.
type InputModule struct{}

type Input struct {
	Pressed [keyCount]bool

	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool
}

func (mod InputModule) Install(app *App, cmd *Commands) {
	requireResource(app, typeOfWindowState, "InputModule")
	cmd.AddResources(&Input{})
	app.UseSystem(System(inputSystem).InStage(PreUpdate))
}

func inputSystem(s *WindowState, input *Input) {
	input.update(func(key int) bool {
		return s.windowGlfw.GetKey(keyToGlfw[key]) == glfw.Press
	})
}

// update refreshes every key from down, which reports whether a key is held.
func (input *Input) update(down func(key int) bool) {
	for key := range keyCount {
		pressed := down(key)
		input.JustPressed[key] = pressed && !input.Pressed[key]
		input.JustReleased[key] = !pressed && input.Pressed[key]
		input.Pressed[key] = pressed
	}
}

var keyToGlfw = [keyCount]glfw.Key{
	KeySpace:  glfw.KeySpace,
	KeyEscape: glfw.KeyEscape,
	KeyH:      glfw.KeyH,
	KeyM:      glfw.KeyM,
}
