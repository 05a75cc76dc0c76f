package models

import (
	"sort"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/vantage3d/vantage/geometry"
)

// Scene is the shared set of scene elements. Elements are read by viewers
// through snapshots so their visibility state stays private to each viewer.
type Scene struct {
	ids SequentialIDGenerator

	mutex    sync.RWMutex
	elements map[uint32]*SceneElement
	version  uint64
	nodes    int
}

func NewScene() *Scene {
	return &Scene{
		elements: make(map[uint32]*SceneElement),
	}
}

// Add stores the element and returns its id. Elements without an instance
// handle get one equal to their id.
func (s *Scene) Add(e *SceneElement) uint32 {
	e.ID = s.ids.New()
	if e.Instance == 0 {
		e.Instance = InstanceHandle(e.ID)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.elements[e.ID] = e
	s.nodes += e.NodeCount()
	s.version++
	instrumentSceneGauges(len(s.elements), s.nodes)
	return e.ID
}

// Get returns a copy of the element with the given id.
func (s *Scene) Get(id uint32) (*SceneElement, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	e, ok := s.elements[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Update replaces the transform of an element. Transforms with non finite
// values are rejected.
func (s *Scene) Update(id uint32, t Transform) error {
	if !geometry.IsFiniteMat4(t.Matrix()) {
		return errors.New("invalid transform").
			WithType(ErrTypeInvalidTransform).
			WithTag("element_id", id)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.elements[id]
	if !ok {
		return errors.New("element not found").
			WithType(ErrTypeElementNotFound).
			WithTag("element_id", id)
	}

	e.Transform = t
	s.version++
	return nil
}

// Remove deletes an element and reports whether it existed.
func (s *Scene) Remove(id uint32) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.elements[id]
	if !ok {
		return false
	}

	delete(s.elements, id)
	s.ids.Reuse(id)
	s.nodes -= e.NodeCount()
	s.version++
	instrumentSceneGauges(len(s.elements), s.nodes)
	return true
}

// Elements returns the stored elements ordered by id. They must not be
// modified.
func (s *Scene) Elements() []*SceneElement {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.sortedElements(false)
}

// Snapshot returns deep copies of the elements ordered by id, with the scene
// version they were taken at.
func (s *Scene) Snapshot() ([]*SceneElement, uint64) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.sortedElements(true), s.version
}

// Version is incremented on every change.
func (s *Scene) Version() uint64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.version
}

func (s *Scene) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.elements)
}

// NodeCount returns the number of independently culled objects.
func (s *Scene) NodeCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.nodes
}

func (s *Scene) sortedElements(clone bool) []*SceneElement {
	elements := make([]*SceneElement, 0, len(s.elements))
	for _, e := range s.elements {
		if clone {
			e = e.Clone()
		}
		elements = append(elements, e)
	}

	sort.Slice(elements, func(i, j int) bool {
		return elements[i].ID < elements[j].ID
	})
	return elements
}
