package gpu

import "sync"

// Specializer builds a pipeline descriptor for one variant key.
type Specializer[K comparable] interface {
	Specialize(key K) RenderPipelineDescriptor
}

// SpecializedRenderPipelines memoizes one cached pipeline id per key. A key is
// queued on the pipeline cache at most once until Clear.
type SpecializedRenderPipelines[K comparable] struct {
	mu    sync.Mutex
	cache map[K]CachedRenderPipelineID
}

func NewSpecializedRenderPipelines[K comparable]() *SpecializedRenderPipelines[K] {
	return &SpecializedRenderPipelines[K]{cache: make(map[K]CachedRenderPipelineID)}
}

func (s *SpecializedRenderPipelines[K]) Specialize(cache *PipelineCache, specializer Specializer[K], key K) CachedRenderPipelineID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.cache[key]; ok {
		return id
	}
	id := cache.QueueRenderPipeline(specializer.Specialize(key))
	s.cache[key] = id
	return id
}

func (s *SpecializedRenderPipelines[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// Clear forgets every memoized id; the next Specialize for a key queues a new pipeline.
func (s *SpecializedRenderPipelines[K]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}
