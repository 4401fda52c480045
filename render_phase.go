package corepipeline

import (
	"cmp"
	"slices"

	"github.com/gekko3d/corepipeline/render/gpu"
)

// DrawFunction records the draw commands of one phase item.
type DrawFunction func(pass *gpu.TrackedRenderPass, view EntityId, item EntityId, cmd *Commands) error

type PhaseItem interface {
	Entity() EntityId
	// SortKey orders items ascending.
	SortKey() float32
	Draw(pass *gpu.TrackedRenderPass, view EntityId, cmd *Commands) error
}

// Opaque3d items sort front to back.
type Opaque3d struct {
	Distance float32
	Item     EntityId
	DrawFunc DrawFunction
}

func (i Opaque3d) Entity() EntityId { return i.Item }
func (i Opaque3d) SortKey() float32 { return i.Distance }
func (i Opaque3d) Draw(pass *gpu.TrackedRenderPass, view EntityId, cmd *Commands) error {
	return drawItem(i.DrawFunc, pass, view, i.Item, cmd)
}

// AlphaMask3d items sort front to back.
type AlphaMask3d struct {
	Distance float32
	Item     EntityId
	DrawFunc DrawFunction
}

func (i AlphaMask3d) Entity() EntityId { return i.Item }
func (i AlphaMask3d) SortKey() float32 { return i.Distance }
func (i AlphaMask3d) Draw(pass *gpu.TrackedRenderPass, view EntityId, cmd *Commands) error {
	return drawItem(i.DrawFunc, pass, view, i.Item, cmd)
}

// Transparent3d items sort back to front.
type Transparent3d struct {
	Distance float32
	Item     EntityId
	DrawFunc DrawFunction
}

func (i Transparent3d) Entity() EntityId { return i.Item }
func (i Transparent3d) SortKey() float32 { return -i.Distance }
func (i Transparent3d) Draw(pass *gpu.TrackedRenderPass, view EntityId, cmd *Commands) error {
	return drawItem(i.DrawFunc, pass, view, i.Item, cmd)
}

func drawItem(fn DrawFunction, pass *gpu.TrackedRenderPass, view, item EntityId, cmd *Commands) error {
	if fn == nil {
		return nil
	}
	return fn(pass, view, item, cmd)
}

// RenderPhase is a view component holding the items of one pass category.
type RenderPhase[I PhaseItem] struct {
	items []I
}

func (p *RenderPhase[I]) Add(item I) {
	p.items = append(p.items, item)
}

func (p *RenderPhase[I]) Items() []I {
	return p.items
}

func (p *RenderPhase[I]) Len() int {
	return len(p.items)
}

// Sort is stable so equal keys keep their queue order.
func (p *RenderPhase[I]) Sort() {
	slices.SortStableFunc(p.items, func(a, b I) int {
		return cmp.Compare(a.SortKey(), b.SortKey())
	})
}

// Render draws every item in order. A failing item is logged and skipped.
func (p *RenderPhase[I]) Render(pass *gpu.TrackedRenderPass, view EntityId, cmd *Commands) {
	for _, item := range p.items {
		if err := item.Draw(pass, view, cmd); err != nil {
			cmd.Logger().Errorf("draw entity %d in view %d: %v", item.Entity(), view, err)
		}
	}
}

func sortPhaseSystem(cmd *Commands) {
	MakeQuery1[RenderPhase[Opaque3d]](cmd).Map(func(_ EntityId, p *RenderPhase[Opaque3d]) bool {
		p.Sort()
		return true
	})
	MakeQuery1[RenderPhase[AlphaMask3d]](cmd).Map(func(_ EntityId, p *RenderPhase[AlphaMask3d]) bool {
		p.Sort()
		return true
	})
	MakeQuery1[RenderPhase[Transparent3d]](cmd).Map(func(_ EntityId, p *RenderPhase[Transparent3d]) bool {
		p.Sort()
		return true
	})
}
