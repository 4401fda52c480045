package corepipeline

import "reflect"

type commandKind int

const (
	cmdAddEntity commandKind = iota
	cmdRemoveEntity
	cmdAddComponents
	cmdRemoveComponents
)

type pendingCommand struct {
	kind       commandKind
	eid        EntityId
	components []any
}

// Commands is handed to systems. Structural ECS changes are buffered and applied
// in order when the current stage ends; resources are added immediately.
type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// AddEntity reserves an id now; the entity becomes visible after the flush.
func (cmd *Commands) AddEntity(components ...any) EntityId {
	eid := cmd.app.ecs.nextEntityId()
	cmd.app.pending = append(cmd.app.pending, pendingCommand{kind: cmdAddEntity, eid: eid, components: components})
	return eid
}

func (cmd *Commands) AddComponents(entityId EntityId, components ...any) {
	cmd.app.pending = append(cmd.app.pending, pendingCommand{kind: cmdAddComponents, eid: entityId, components: components})
}

func (cmd *Commands) RemoveComponents(entityId EntityId, components ...any) {
	cmd.app.pending = append(cmd.app.pending, pendingCommand{kind: cmdRemoveComponents, eid: entityId, components: components})
}

func (cmd *Commands) RemoveEntity(entityId EntityId) {
	cmd.app.pending = append(cmd.app.pending, pendingCommand{kind: cmdRemoveEntity, eid: entityId})
}

// Exit stops App.Run after the current frame.
func (cmd *Commands) Exit() {
	cmd.app.Exit()
}

func (cmd *Commands) Logger() Logger {
	return cmd.app.Logger()
}

// Resource returns the resource of type T registered as a *T.
func Resource[T any](cmd *Commands) (*T, bool) {
	var zero T
	res, ok := cmd.app.resources[reflect.TypeOf(zero)]
	if !ok {
		return nil, false
	}
	typed, ok := res.(*T)
	return typed, ok
}
