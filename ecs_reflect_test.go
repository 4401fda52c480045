package corepipeline

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEcsReflect_SliceMake(t *testing.T) {
	type myStruct struct{ A int }
	structSlice := reflectSliceMake(reflect.TypeOf(myStruct{}))

	assert.Equal(t, reflect.Slice, reflect.TypeOf(structSlice).Kind())
	assert.Equal(t, reflect.TypeOf(myStruct{}), reflect.TypeOf(structSlice).Elem())
}

func TestEcsReflect_SliceGetSet(t *testing.T) {
	slice := []int{10, 20, 30}
	assert.Equal(t, int64(20), reflectSliceGet(slice, 1).Int())

	reflectSliceSet(slice, 0, reflect.ValueOf(99))
	assert.Equal(t, 99, slice[0])

	assert.Panics(t, func() { _ = reflectSliceGet(slice, 10) })
	assert.Panics(t, func() { reflectSliceSet(slice, 0, reflect.ValueOf("wrong type")) })
}

func TestEcsReflect_SliceAppend(t *testing.T) {
	slice := []int{}
	for i := 0; i < 5; i++ {
		slice = reflectSliceAppend(slice, reflect.ValueOf(i)).([]int)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, slice)

	assert.Panics(t, func() { _ = reflectSliceAppend([]int{}, reflect.ValueOf("string")) })
}
