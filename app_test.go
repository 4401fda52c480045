package corepipeline

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")
}

func TestApp_addResources_RequiresPointer(t *testing.T) {
	app := &App{resources: make(map[reflect.Type]any)}
	assert.Panics(t, func() { app.addResources(MockResource1{}) })
}

func TestApp_SystemInjection(t *testing.T) {
	app := NewAppBuilder().Build()
	app.addResources(NewMockResource1("injected"))

	var got string
	var sawCommands bool
	app.UseSystem(System(func(cmd *Commands, r *MockResource1) {
		sawCommands = cmd != nil
		got = r.name
	}).InStage(Update))

	app.Update()
	assert.True(t, sawCommands)
	assert.Equal(t, "injected", got)
}

func TestApp_SystemInjection_PanicsOnMissingResource(t *testing.T) {
	app := NewAppBuilder().Build()
	app.UseSystem(System(func(r *MockResource2) {}).InStage(Update))
	assert.Panics(t, func() { app.Update() })
}

func TestApp_StagesRunInOrder(t *testing.T) {
	app := NewAppBuilder().Build()

	var order []string
	for _, s := range []Stage{Cleanup, Render, Extract, Prepare, Prelude} {
		app.UseSystem(System(func() { order = append(order, s.Name) }).InStage(s))
	}
	app.Update()

	assert.Equal(t, []string{"Prelude", "Extract", "Prepare", "Render", "Cleanup"}, order)
}

func TestApp_UseStage(t *testing.T) {
	app := NewAppBuilder().Build()
	custom := Stage{Name: "AfterRender"}
	app.UseStage(custom, AfterStage(Render))

	var order []string
	app.UseSystem(System(func() { order = append(order, "cleanup") }).InStage(Cleanup))
	app.UseSystem(System(func() { order = append(order, "custom") }).InStage(custom))
	app.UseSystem(System(func() { order = append(order, "render") }).InStage(Render))
	app.Update()

	assert.Equal(t, []string{"render", "custom", "cleanup"}, order)
	assert.Panics(t, func() { app.UseStage(custom, BeforeStage(Update)) })
	assert.Panics(t, func() { app.UseStage(Stage{Name: "x"}, BeforeStage(Stage{Name: "missing"})) })
}

func TestApp_CommandsFlushBetweenStages(t *testing.T) {
	app := NewAppBuilder().Build()

	var spawned EntityId
	var seenInSameStage, seenInNextStage bool
	app.UseSystem(System(func(cmd *Commands) {
		spawned = cmd.AddEntity(testPosition{X: 1})
		seenInSameStage = Has[testPosition](cmd, spawned)
	}).InStage(Extract))
	app.UseSystem(System(func(cmd *Commands) {
		seenInNextStage = Has[testPosition](cmd, spawned)
	}).InStage(Prepare))
	app.Update()

	assert.False(t, seenInSameStage)
	assert.True(t, seenInNextStage)
}

func TestApp_CommandsApplyInOrder(t *testing.T) {
	app := NewAppBuilder().Build()
	cmd := app.Commands()

	id := cmd.AddEntity(testPosition{X: 1})
	cmd.AddComponents(id, testVelocity{X: 2})
	cmd.AddComponents(id, testPosition{X: 3})
	app.FlushCommands()

	pos, ok := Get[testPosition](cmd, id)
	require.True(t, ok)
	assert.Equal(t, float32(3), pos.X)
	vel, ok := Get[testVelocity](cmd, id)
	require.True(t, ok)
	assert.Equal(t, float32(2), vel.X)

	cmd.RemoveComponents(id, testVelocity{})
	app.FlushCommands()
	assert.False(t, Has[testVelocity](cmd, id))
	assert.True(t, Has[testPosition](cmd, id))

	cmd.RemoveEntity(id)
	app.FlushCommands()
	assert.False(t, Has[testPosition](cmd, id))
}

func TestApp_RunStopsOnExit(t *testing.T) {
	app := NewAppBuilder().UseModule(TimeModule{}).Build()
	app.UseSystem(System(func(cmd *Commands, tm *Time) {
		if tm.Frame == 3 {
			cmd.Exit()
		}
	}).InStage(Update))

	app.Run()

	tm, ok := Resource[Time](app.Commands())
	require.True(t, ok)
	assert.Equal(t, uint64(3), tm.Frame)
	assert.True(t, app.ShouldExit())
}
