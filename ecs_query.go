package corepipeline

import (
	"reflect"
)

// Queries iterate every entity that has all the type parameters as components.
// Types passed as optionals (zero values are fine) may be absent; their pointer is nil.
type Query1[A any] struct{ ecs *Ecs }
type Query2[A, B any] struct{ ecs *Ecs }
type Query3[A, B, C any] struct{ ecs *Ecs }
type Query4[A, B, C, D any] struct{ ecs *Ecs }

func MakeQuery1[A any](cmd *Commands) Query1[A]             { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B]       { return Query2[A, B]{ecs: cmd.app.ecs} }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] { return Query3[A, B, C]{ecs: cmd.app.ecs} }
func MakeQuery4[A, B, C, D any](cmd *Commands) Query4[A, B, C, D] {
	return Query4[A, B, C, D]{ecs: cmd.app.ecs}
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	idA := identifyComponent[A](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		a, hasA, ok := column[A](arch, idA, opt)
		if !ok {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, at(a, hasA, r)) {
				return
			}
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	idA, idB := identifyComponent[A](q.ecs), identifyComponent[B](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		a, hasA, okA := column[A](arch, idA, opt)
		b, hasB, okB := column[B](arch, idB, opt)
		if !okA || !okB {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, at(a, hasA, r), at(b, hasB, r)) {
				return
			}
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	idA, idB, idC := identifyComponent[A](q.ecs), identifyComponent[B](q.ecs), identifyComponent[C](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		a, hasA, okA := column[A](arch, idA, opt)
		b, hasB, okB := column[B](arch, idB, opt)
		c, hasC, okC := column[C](arch, idC, opt)
		if !okA || !okB || !okC {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, at(a, hasA, r), at(b, hasB, r), at(c, hasC, r)) {
				return
			}
		}
	}
}

func (q Query4[A, B, C, D]) Map(m func(EntityId, *A, *B, *C, *D) bool, optionals ...any) {
	idA, idB := identifyComponent[A](q.ecs), identifyComponent[B](q.ecs)
	idC, idD := identifyComponent[C](q.ecs), identifyComponent[D](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		a, hasA, okA := column[A](arch, idA, opt)
		b, hasB, okB := column[B](arch, idB, opt)
		c, hasC, okC := column[C](arch, idC, opt)
		d, hasD, okD := column[D](arch, idD, opt)
		if !okA || !okB || !okC || !okD {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, at(a, hasA, r), at(b, hasB, r), at(c, hasC, r), at(d, hasD, r)) {
				return
			}
		}
	}
}

// Get returns the entity's T component. The pointer is valid until the next command flush.
func Get[T any](cmd *Commands, entityId EntityId) (*T, bool) {
	var zero T
	ptr, ok := cmd.app.ecs.componentPtr(entityId, reflect.TypeOf(zero))
	if !ok {
		return nil, false
	}
	return ptr.(*T), true
}

func Has[T any](cmd *Commands, entityId EntityId) bool {
	_, ok := Get[T](cmd, entityId)
	return ok
}

// column returns the storage of component id in arch. present is false when the
// component is absent but optional; ok is false when the archetype does not match.
func column[T any](arch *archetype, id componentId, optionals set[componentId]) (data []T, present bool, ok bool) {
	if d, found := arch.componentData[id]; found {
		return d.([]T), true, true
	}
	if _, optional := optionals[id]; optional {
		return nil, false, true
	}
	return nil, false, false
}

func at[T any](data []T, present bool, r row) *T {
	if !present {
		return nil
	}
	return &data[r]
}

func identifyComponent[T any](ecs *Ecs) componentId {
	var zero T
	return ecs.getComponentId(reflect.TypeOf(zero))
}

func identifyOptionals(ecs *Ecs, optionals ...any) set[componentId] {
	res := make(set[componentId], len(optionals))
	for _, o := range optionals {
		res[ecs.getComponentId(componentType(o))] = struct{}{}
	}
	return res
}
