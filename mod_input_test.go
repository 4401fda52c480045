package corepipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInput_Update(t *testing.T) {
	var input Input
	held := map[int]bool{KeySpace: true}
	down := func(key int) bool { return held[key] }

	input.update(down)
	assert.True(t, input.Pressed[KeySpace])
	assert.True(t, input.JustPressed[KeySpace])
	assert.False(t, input.Pressed[KeyEscape])

	input.update(down)
	assert.True(t, input.Pressed[KeySpace])
	assert.False(t, input.JustPressed[KeySpace], "held keys are only just-pressed once")

	held[KeySpace] = false
	input.update(down)
	assert.False(t, input.Pressed[KeySpace])
	assert.True(t, input.JustReleased[KeySpace])

	input.update(down)
	assert.False(t, input.JustReleased[KeySpace])
}

func TestInputModule_RequiresWindow(t *testing.T) {
	assert.Panics(t, func() {
		NewAppBuilder().UseModule(HeadlessModule{}, InputModule{}).Build()
	})
}
