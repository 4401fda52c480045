package corepipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_Map(t *testing.T) {
	type Comp1 struct{ a int }
	type Comp2 struct{ b float32 }
	type Comp3 struct{}

	ecs := MakeEcs()
	ecs.addEntity(Comp1{a: 1})                                 // comp1 only                       -- shouldn't match
	id2 := ecs.addEntity(Comp1{a: 2}, Comp2{b: 1.37})          // comp1 & comp2                    -- should match
	id3 := ecs.addEntity(Comp1{a: 3}, Comp2{b: 4.20}, Comp3{}) // comp1 & comp2 + something extra  -- should match
	ecs.addEntity(Comp1{a: 4}, Comp3{})                        // comp1 + something extra          -- shouldn't match
	ecs.addEntity(Comp2{b: 3.14})                              // comp2 only                       -- shouldn't match

	query := Query2[Comp1, Comp2]{ecs: &ecs}

	expected := map[EntityId]struct {
		a Comp1
		b Comp2
	}{
		id2: {Comp1{a: 2}, Comp2{b: 1.37}},
		id3: {Comp1{a: 3}, Comp2{b: 4.20}},
	}
	seen := map[EntityId]bool{}

	query.Map(func(entityId EntityId, comp1 *Comp1, comp2 *Comp2) bool {
		want, ok := expected[entityId]
		require.True(t, ok, "unexpected entity %d", entityId)
		assert.Equal(t, want.a, *comp1)
		assert.Equal(t, want.b, *comp2)
		seen[entityId] = true
		return true
	})

	assert.Len(t, seen, 2)
}

func TestQuery_MapWithOptional(t *testing.T) {
	type Comp1 struct{ a int }
	type Comp2 struct{ b int }

	ecs := MakeEcs()
	withBoth := ecs.addEntity(Comp1{a: 1}, Comp2{b: 2})
	onlyFirst := ecs.addEntity(Comp1{a: 3})

	got := map[EntityId]*Comp2{}
	Query2[Comp1, Comp2]{ecs: &ecs}.Map(func(eid EntityId, _ *Comp1, c2 *Comp2) bool {
		got[eid] = c2
		return true
	}, Comp2{})

	require.Len(t, got, 2)
	require.NotNil(t, got[withBoth])
	assert.Equal(t, 2, got[withBoth].b)
	assert.Nil(t, got[onlyFirst])
}

func TestQuery_MapStopsEarly(t *testing.T) {
	type Comp struct{}

	ecs := MakeEcs()
	for i := 0; i < 5; i++ {
		ecs.addEntity(Comp{})
	}

	calls := 0
	Query1[Comp]{ecs: &ecs}.Map(func(EntityId, *Comp) bool {
		calls++
		return false
	})
	assert.Equal(t, 1, calls)
}

func TestQuery_Map4(t *testing.T) {
	app := NewAppBuilder().Build()
	cmd := app.Commands()
	type A struct{ v int }
	type B struct{ v int }
	type C struct{ v int }
	type D struct{ v int }

	id := cmd.AddEntity(A{1}, B{2}, C{3}, D{4})
	cmd.AddEntity(A{1}, B{2}, C{3})
	app.FlushCommands()

	var matched []EntityId
	MakeQuery4[A, B, C, D](cmd).Map(func(eid EntityId, a *A, b *B, c *C, d *D) bool {
		matched = append(matched, eid)
		assert.Equal(t, 10, a.v+b.v+c.v+d.v)
		return true
	})
	assert.Equal(t, []EntityId{id}, matched)
}

func TestGet_MutatesInPlace(t *testing.T) {
	app := NewAppBuilder().Build()
	cmd := app.Commands()

	id := cmd.AddEntity(testPosition{X: 1})
	app.FlushCommands()

	pos, ok := Get[testPosition](cmd, id)
	require.True(t, ok)
	pos.X = 5

	again, ok := Get[testPosition](cmd, id)
	require.True(t, ok)
	assert.Equal(t, float32(5), again.X)

	_, ok = Get[testVelocity](cmd, id)
	assert.False(t, ok)
	_, ok = Get[testPosition](cmd, id+100)
	assert.False(t, ok)
}
