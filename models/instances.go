package models

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// InstanceRenderer is the render side state the culling pipeline writes to
// in order to hide or show scene elements.
type InstanceRenderer interface {
	SetEmissiveMultiplier(h InstanceHandle, multiplier float32)
	SetInstanceTransform(h InstanceHandle, m mgl32.Mat4)
}

// InstanceState is the last state written for a render instance.
type InstanceState struct {
	EmissiveMultiplier float32    `json:"emissive_multiplier"`
	Transform          mgl32.Mat4 `json:"transform"`
}

// InstanceTable is an InstanceRenderer that records the state of every
// instance, to be sent to remote renderers.
type InstanceTable struct {
	mutex  sync.RWMutex
	states map[InstanceHandle]InstanceState
}

func NewInstanceTable() *InstanceTable {
	return &InstanceTable{
		states: make(map[InstanceHandle]InstanceState),
	}
}

func (t *InstanceTable) SetEmissiveMultiplier(h InstanceHandle, multiplier float32) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	s := t.states[h]
	s.EmissiveMultiplier = multiplier
	t.states[h] = s
}

func (t *InstanceTable) SetInstanceTransform(h InstanceHandle, m mgl32.Mat4) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	s := t.states[h]
	s.Transform = m
	t.states[h] = s
}

func (t *InstanceTable) State(h InstanceHandle) (InstanceState, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	s, ok := t.states[h]
	return s, ok
}

// States returns a copy of every recorded instance state.
func (t *InstanceTable) States() map[InstanceHandle]InstanceState {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	states := make(map[InstanceHandle]InstanceState, len(t.states))
	for h, s := range t.states {
		states[h] = s
	}
	return states
}

func (t *InstanceTable) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return len(t.states)
}
