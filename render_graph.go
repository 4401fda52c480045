package corepipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gekko3d/corepipeline/render/gpu"
)

var (
	// ErrMissingGraphInput means a node asked for an input slot that is not declared or was not provided.
	ErrMissingGraphInput = errors.New("render graph: missing input")
	// ErrSlotTypeMismatch means a slot holds a value of a different type than declared.
	ErrSlotTypeMismatch = errors.New("render graph: slot type mismatch")
	ErrUnknownNode      = errors.New("render graph: unknown node")
	ErrUnknownSlot      = errors.New("render graph: unknown slot")
	ErrGraphCycle       = errors.New("render graph: cycle")
)

// GraphInputNode is the name used in slot edges to refer to the graph's own inputs.
const GraphInputNode = "GraphInput"

type SlotType int

const (
	SlotEntity SlotType = iota
	SlotTextureView
)

func (t SlotType) String() string {
	switch t {
	case SlotEntity:
		return "Entity"
	case SlotTextureView:
		return "TextureView"
	default:
		return fmt.Sprintf("SlotType(%d)", int(t))
	}
}

type SlotInfo struct {
	Name string
	Type SlotType
}

type SlotValue struct {
	Type        SlotType
	Entity      EntityId
	TextureView *gpu.TextureView
}

func EntitySlot(e EntityId) SlotValue {
	return SlotValue{Type: SlotEntity, Entity: e}
}

func TextureViewSlot(v *gpu.TextureView) SlotValue {
	return SlotValue{Type: SlotTextureView, TextureView: v}
}

// Node is one unit of GPU work in the render graph.
type Node interface {
	Input() []SlotInfo
	Output() []SlotInfo
	// Update runs once per frame before any Run.
	Update(cmd *Commands)
	Run(graph *GraphContext, rc *gpu.RenderContext, cmd *Commands) error
}

type nodeEdge struct {
	from, to string
}

type slotEdge struct {
	outputNode, outputSlot string
	inputNode, inputSlot   string
}

type RenderGraph struct {
	input     []SlotInfo
	nodes     map[string]Node
	names     []string
	nodeEdges []nodeEdge
	slotEdges []slotEdge

	order []string
}

func NewRenderGraph() *RenderGraph {
	return &RenderGraph{nodes: make(map[string]Node)}
}

// SetInput declares the values every Run must provide, in order.
func (g *RenderGraph) SetInput(slots ...SlotInfo) {
	g.input = slots
}

func (g *RenderGraph) AddNode(name string, node Node) {
	if name == GraphInputNode {
		panic(fmt.Sprintf("render graph: %q is reserved", name))
	}
	if _, ok := g.nodes[name]; ok {
		panic(fmt.Sprintf("render graph: node %q already exists", name))
	}
	g.nodes[name] = node
	g.names = append(g.names, name)
	g.order = nil
}

func (g *RenderGraph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// AddNodeEdge makes to run after from.
func (g *RenderGraph) AddNodeEdge(from, to string) error {
	for _, n := range []string{from, to} {
		if !g.HasNode(n) {
			return fmt.Errorf("%w: %q", ErrUnknownNode, n)
		}
	}
	g.nodeEdges = append(g.nodeEdges, nodeEdge{from: from, to: to})
	g.order = nil
	return nil
}

// AddSlotEdge feeds an output slot (or a graph input when outputNode is GraphInputNode)
// into an input slot of another node.
func (g *RenderGraph) AddSlotEdge(outputNode, outputSlot, inputNode, inputSlot string) error {
	var outputs []SlotInfo
	if outputNode == GraphInputNode {
		outputs = g.input
	} else {
		node, ok := g.nodes[outputNode]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownNode, outputNode)
		}
		outputs = node.Output()
	}
	node, ok := g.nodes[inputNode]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, inputNode)
	}

	out, ok := findSlot(outputs, outputSlot)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownSlot, outputNode, outputSlot)
	}
	in, ok := findSlot(node.Input(), inputSlot)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownSlot, inputNode, inputSlot)
	}
	if out.Type != in.Type {
		return fmt.Errorf("%w: %s.%s is %s, %s.%s is %s", ErrSlotTypeMismatch,
			outputNode, outputSlot, out.Type, inputNode, inputSlot, in.Type)
	}

	g.slotEdges = append(g.slotEdges, slotEdge{
		outputNode: outputNode, outputSlot: outputSlot,
		inputNode: inputNode, inputSlot: inputSlot,
	})
	g.order = nil
	return nil
}

// Update calls Update on every node once.
func (g *RenderGraph) Update(cmd *Commands) {
	for _, name := range g.names {
		g.nodes[name].Update(cmd)
	}
}

// Run runs every node in dependency order. The first node error aborts the run
// and is returned wrapped with the node name.
func (g *RenderGraph) Run(rc *gpu.RenderContext, cmd *Commands, inputs ...SlotValue) error {
	order, err := g.sortedNodes()
	if err != nil {
		return err
	}

	graphInputs := make(map[string]SlotValue, len(inputs))
	for i, value := range inputs {
		if i >= len(g.input) {
			break
		}
		if value.Type != g.input[i].Type {
			return fmt.Errorf("%w: graph input %q expects %s, got %s", ErrSlotTypeMismatch, g.input[i].Name, g.input[i].Type, value.Type)
		}
		graphInputs[g.input[i].Name] = value
	}

	outputs := make(map[string]map[string]SlotValue, len(order))
	for _, name := range order {
		node := g.nodes[name]
		ctx := &GraphContext{
			inputSlots:  node.Input(),
			inputs:      make(map[string]SlotValue),
			outputSlots: node.Output(),
			outputs:     make(map[string]SlotValue),
		}
		for _, e := range g.slotEdges {
			if e.inputNode != name {
				continue
			}
			var value SlotValue
			var ok bool
			if e.outputNode == GraphInputNode {
				value, ok = graphInputs[e.outputSlot]
			} else {
				value, ok = outputs[e.outputNode][e.outputSlot]
			}
			if ok {
				ctx.inputs[e.inputSlot] = value
			}
		}

		if err := node.Run(ctx, rc, cmd); err != nil {
			return fmt.Errorf("node %q: %w", name, err)
		}
		outputs[name] = ctx.outputs
	}
	return nil
}

// sortedNodes orders nodes topologically, breaking ties by insertion order.
func (g *RenderGraph) sortedNodes() ([]string, error) {
	if g.order != nil {
		return g.order, nil
	}

	indegree := make(map[string]int, len(g.names))
	next := make(map[string][]string, len(g.names))
	addEdge := func(from, to string) {
		if from == GraphInputNode || slices.Contains(next[from], to) {
			return
		}
		next[from] = append(next[from], to)
		indegree[to]++
	}
	for _, e := range g.nodeEdges {
		addEdge(e.from, e.to)
	}
	for _, e := range g.slotEdges {
		addEdge(e.outputNode, e.inputNode)
	}

	order := make([]string, 0, len(g.names))
	done := make(map[string]bool, len(g.names))
	for len(order) < len(g.names) {
		progressed := false
		for _, name := range g.names {
			if done[name] || indegree[name] > 0 {
				continue
			}
			done[name] = true
			order = append(order, name)
			for _, to := range next[name] {
				indegree[to]--
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, ErrGraphCycle
		}
	}

	g.order = order
	return order, nil
}

func findSlot(slots []SlotInfo, name string) (SlotInfo, bool) {
	for _, s := range slots {
		if s.Name == name {
			return s, true
		}
	}
	return SlotInfo{}, false
}

// GraphContext carries a node's resolved inputs and collects its outputs.
type GraphContext struct {
	inputSlots  []SlotInfo
	inputs      map[string]SlotValue
	outputSlots []SlotInfo
	outputs     map[string]SlotValue
}

func (c *GraphContext) GetInputEntity(name string) (EntityId, error) {
	slot, ok := findSlot(c.inputSlots, name)
	if !ok {
		return 0, fmt.Errorf("%w: slot %q is not declared", ErrMissingGraphInput, name)
	}
	value, ok := c.inputs[name]
	if !ok {
		return 0, fmt.Errorf("%w: slot %q", ErrMissingGraphInput, name)
	}
	if slot.Type != SlotEntity || value.Type != SlotEntity {
		return 0, fmt.Errorf("%w: slot %q holds %s, want Entity", ErrSlotTypeMismatch, name, value.Type)
	}
	return value.Entity, nil
}

func (c *GraphContext) GetInputTextureView(name string) (*gpu.TextureView, error) {
	slot, ok := findSlot(c.inputSlots, name)
	if !ok {
		return nil, fmt.Errorf("%w: slot %q is not declared", ErrMissingGraphInput, name)
	}
	value, ok := c.inputs[name]
	if !ok {
		return nil, fmt.Errorf("%w: slot %q", ErrMissingGraphInput, name)
	}
	if slot.Type != SlotTextureView || value.Type != SlotTextureView {
		return nil, fmt.Errorf("%w: slot %q holds %s, want TextureView", ErrSlotTypeMismatch, name, value.Type)
	}
	return value.TextureView, nil
}

func (c *GraphContext) SetOutput(name string, value SlotValue) error {
	slot, ok := findSlot(c.outputSlots, name)
	if !ok {
		return fmt.Errorf("%w: output %q", ErrUnknownSlot, name)
	}
	if slot.Type != value.Type {
		return fmt.Errorf("%w: output %q is %s, got %s", ErrSlotTypeMismatch, name, slot.Type, value.Type)
	}
	c.outputs[name] = value
	return nil
}
