package gpu

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type variantKey struct {
	Hdr     bool
	Samples uint32
}

type countingSpecializer struct {
	calls atomic.Int64
}

func (s *countingSpecializer) Specialize(key variantKey) RenderPipelineDescriptor {
	s.calls.Add(1)
	desc := testDescriptor(fmt.Sprintf("variant_%v_%d", key.Hdr, key.Samples))
	desc.Multisample.Count = key.Samples
	return desc
}

func TestSpecializedRenderPipelines_EqualKeysShareHandle(t *testing.T) {
	cache := NewPipelineCache(NewRecordingDevice(), 1, nil)
	specialized := NewSpecializedRenderPipelines[variantKey]()
	spec := &countingSpecializer{}

	a := specialized.Specialize(cache, spec, variantKey{Samples: 4})
	b := specialized.Specialize(cache, spec, variantKey{Samples: 4})
	c := specialized.Specialize(cache, spec, variantKey{Samples: 1})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, int64(2), spec.calls.Load())
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, 2, specialized.Len())
}

func TestSpecializedRenderPipelines_ConcurrentCallers(t *testing.T) {
	cache := NewPipelineCache(NewRecordingDevice(), 1, nil)
	specialized := NewSpecializedRenderPipelines[variantKey]()
	spec := &countingSpecializer{}

	keys := []variantKey{{false, 1}, {false, 4}, {true, 1}, {true, 4}}
	ids := make([][]CachedRenderPipelineID, len(keys))
	for i := range ids {
		ids[i] = make([]CachedRenderPipelineID, 32)
	}

	var wg sync.WaitGroup
	for i, key := range keys {
		for j := range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ids[i][j] = specialized.Specialize(cache, spec, key)
			}()
		}
	}
	wg.Wait()

	for i := range keys {
		for j := range ids[i] {
			assert.Equal(t, ids[i][0], ids[i][j])
		}
	}
	assert.Equal(t, int64(len(keys)), spec.calls.Load())
	assert.Equal(t, len(keys), cache.Len())
}

func TestSpecializedRenderPipelines_ClearQueuesAgain(t *testing.T) {
	cache := NewPipelineCache(NewRecordingDevice(), 1, nil)
	specialized := NewSpecializedRenderPipelines[variantKey]()
	spec := &countingSpecializer{}

	first := specialized.Specialize(cache, spec, variantKey{Samples: 4})
	specialized.Clear()
	second := specialized.Specialize(cache, spec, variantKey{Samples: 4})

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, cache.Len())
}

func TestSpecializedRenderPipelines_PendingHandleNotReady(t *testing.T) {
	device := NewRecordingDevice()
	cache := NewPipelineCache(device, 1, nil)
	cache.SetShader(testShader, "shader")
	specialized := NewSpecializedRenderPipelines[variantKey]()

	id := specialized.Specialize(cache, &countingSpecializer{}, variantKey{Samples: 1})
	_, ok := cache.GetRenderPipeline(id)
	assert.False(t, ok)

	cache.ProcessQueue()
	cache.Wait()
	_, ok = cache.GetRenderPipeline(id)
	assert.True(t, ok)
}
