package gpu

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gekko3d/corepipeline/render/shaders"
)

var (
	// ErrShaderCompile is returned (wrapped) when a shader module fails to build.
	ErrShaderCompile = errors.New("gpu: shader module creation failed")

	// ErrPipelineCompile is returned (wrapped) when the backend rejects a pipeline.
	ErrPipelineCompile = errors.New("gpu: render pipeline creation failed")
)

// CachedRenderPipelineID is an index into the pipeline cache. It is valid forever.
type CachedRenderPipelineID uint64

type PipelineState int

const (
	// PipelineQueued is waiting for ProcessQueue, or for its shader sources to be registered.
	PipelineQueued PipelineState = iota
	PipelineCreating
	PipelineOk
	PipelineErr
)

func (s PipelineState) String() string {
	switch s {
	case PipelineQueued:
		return "Queued"
	case PipelineCreating:
		return "Creating"
	case PipelineOk:
		return "Ok"
	case PipelineErr:
		return "Err"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

type cachedPipeline struct {
	descriptor RenderPipelineDescriptor
	state      PipelineState
	pipeline   *RenderPipeline
	err        error
}

// PipelineCache owns every render pipeline. Queueing returns an id immediately;
// compilation runs on background goroutines started by ProcessQueue.
//
// All methods are safe for concurrent use.
type PipelineCache struct {
	device Device
	logger Logger

	mu        sync.Mutex
	pipelines []*cachedPipeline
	waiting   []CachedRenderPipelineID
	sources   map[shaders.Handle]string

	modulesMu sync.Mutex
	modules   map[shaders.Handle]*ShaderModule
	compiles  singleflight.Group

	jobs errgroup.Group
}

func NewPipelineCache(device Device, maxConcurrentCompiles int, logger Logger) *PipelineCache {
	if maxConcurrentCompiles <= 0 {
		maxConcurrentCompiles = 4
	}
	if logger == nil {
		logger = nopLogger{}
	}
	c := &PipelineCache{
		device:  device,
		logger:  logger,
		sources: make(map[shaders.Handle]string),
		modules: make(map[shaders.Handle]*ShaderModule),
	}
	c.jobs.SetLimit(maxConcurrentCompiles)
	return c
}

// SetShader registers the source for a handle. Replacing a source drops the compiled module
// so later compilations pick up the new text.
func (c *PipelineCache) SetShader(handle shaders.Handle, source string) {
	c.mu.Lock()
	old, existed := c.sources[handle]
	c.sources[handle] = source
	c.mu.Unlock()

	if existed && old != source {
		c.modulesMu.Lock()
		delete(c.modules, handle)
		c.modulesMu.Unlock()
	}
}

func (c *PipelineCache) QueueRenderPipeline(desc RenderPipelineDescriptor) CachedRenderPipelineID {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := CachedRenderPipelineID(len(c.pipelines))
	c.pipelines = append(c.pipelines, &cachedPipeline{descriptor: desc, state: PipelineQueued})
	c.waiting = append(c.waiting, id)
	return id
}

func (c *PipelineCache) GetRenderPipelineState(id CachedRenderPipelineID) PipelineState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if int(id) >= len(c.pipelines) {
		return PipelineErr
	}
	return c.pipelines[id].state
}

// GetRenderPipeline returns the compiled pipeline, or false while it is pending or failed.
func (c *PipelineCache) GetRenderPipeline(id CachedRenderPipelineID) (*RenderPipeline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if int(id) >= len(c.pipelines) {
		return nil, false
	}
	p := c.pipelines[id]
	if p.state != PipelineOk {
		return nil, false
	}
	return p.pipeline, true
}

// PipelineError returns the compilation error of a failed pipeline.
func (c *PipelineCache) PipelineError(id CachedRenderPipelineID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if int(id) >= len(c.pipelines) {
		return nil
	}
	return c.pipelines[id].err
}

func (c *PipelineCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pipelines)
}

// ProcessQueue starts compilation for queued pipelines without waiting for it.
// Pipelines whose shaders are unknown, or that exceed the concurrent compile
// limit, stay queued for the next call.
func (c *PipelineCache) ProcessQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()

	waiting := c.waiting
	c.waiting = nil

	for _, id := range waiting {
		p := c.pipelines[id]
		desc := p.descriptor

		vertexSource, ok := c.sources[desc.Vertex.Shader]
		if !ok {
			c.waiting = append(c.waiting, id)
			continue
		}
		var fragmentSource string
		if desc.Fragment != nil {
			fragmentSource, ok = c.sources[desc.Fragment.Shader]
			if !ok {
				c.waiting = append(c.waiting, id)
				continue
			}
		}

		started := c.jobs.TryGo(func() error {
			c.compile(id, desc, vertexSource, fragmentSource)
			return nil
		})
		if !started {
			c.waiting = append(c.waiting, id)
			continue
		}
		p.state = PipelineCreating
	}
}

// Wait blocks until every started compilation has finished.
func (c *PipelineCache) Wait() {
	_ = c.jobs.Wait()
}

func (c *PipelineCache) compile(id CachedRenderPipelineID, desc RenderPipelineDescriptor, vertexSource, fragmentSource string) {
	pipeline, err := c.createPipeline(&desc, vertexSource, fragmentSource)

	c.mu.Lock()
	p := c.pipelines[id]
	if err != nil {
		p.state = PipelineErr
		p.err = err
	} else {
		p.state = PipelineOk
		p.pipeline = pipeline
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Errorf("render pipeline %q (id %d): %v", desc.Label, id, err)
		return
	}
	c.logger.Debugf("render pipeline %q (id %d) ready", desc.Label, id)
}

func (c *PipelineCache) createPipeline(desc *RenderPipelineDescriptor, vertexSource, fragmentSource string) (*RenderPipeline, error) {
	vertex, err := c.shaderModule(desc.Vertex.Shader, vertexSource)
	if err != nil {
		return nil, err
	}

	var fragment *ShaderModule
	if desc.Fragment != nil {
		fragment, err = c.shaderModule(desc.Fragment.Shader, fragmentSource)
		if err != nil {
			return nil, err
		}
	}

	pipeline, err := c.device.CreateRenderPipeline(desc, vertex, fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPipelineCompile, err)
	}
	return pipeline, nil
}

// shaderModule compiles each handle once, even when several pipelines sharing it
// compile at the same time.
func (c *PipelineCache) shaderModule(handle shaders.Handle, source string) (*ShaderModule, error) {
	if m, ok := c.cachedModule(handle); ok {
		return m, nil
	}

	v, err, _ := c.compiles.Do(strconv.FormatUint(uint64(handle), 10), func() (any, error) {
		if m, ok := c.cachedModule(handle); ok {
			return m, nil
		}
		m, err := c.device.CreateShaderModule(fmt.Sprintf("shader_%d", handle), source)
		if err != nil {
			return nil, fmt.Errorf("%w: handle %d: %v", ErrShaderCompile, handle, err)
		}
		c.modulesMu.Lock()
		c.modules[handle] = m
		c.modulesMu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ShaderModule), nil
}

func (c *PipelineCache) cachedModule(handle shaders.Handle) (*ShaderModule, bool) {
	c.modulesMu.Lock()
	defer c.modulesMu.Unlock()
	m, ok := c.modules[handle]
	return m, ok
}
