package models

import (
	"io"
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
	"github.com/vantage3d/vantage/geometry"
)

type sceneFile struct {
	Elements []elementFile `json:"elements"`
}

type elementFile struct {
	Name      string         `json:"name"`
	Source    string         `json:"source"`
	Instance  InstanceHandle `json:"instance"`
	Transform *Transform     `json:"transform"`
	Bounds    *geometry.Aabb `json:"bounds"`
	Nodes     []MeshNode     `json:"nodes"`
	Mesh      *Mesh          `json:"mesh"`
}

// LoadSceneFile loads a scene from a JSON file.
func LoadSceneFile(filename string) (*Scene, error) {
	f, err := os.Open(filename)
	if err != nil {
		err = errors.New("opening scene file failed").
			WithType(ErrTypeInvalidScene).
			WithTag("filename", filename).
			Wrap(err)
		instrumentSceneLoad(err)
		return nil, err
	}
	defer f.Close()

	s, err := LoadScene(f)
	if err != nil {
		return nil, errors.New("loading scene file failed").
			WithType(errors.Type(err)).
			WithTag("filename", filename).
			Wrap(err)
	}
	return s, nil
}

// LoadScene decodes a JSON scene description:
//
//	{"elements": [{"name", "source", "instance", "transform", "bounds", "nodes", "mesh"}]}
//
// Elements with nodes are compound. Elements and nodes without bounds use the
// bounds of their mesh when they have one.
func LoadScene(r io.Reader) (*Scene, error) {
	s, err := loadScene(r)
	instrumentSceneLoad(err)
	return s, err
}

func loadScene(r io.Reader) (*Scene, error) {
	var file sceneFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, errors.New("decoding scene failed").
			WithType(ErrTypeInvalidScene).
			Wrap(err)
	}

	scene := NewScene()
	for i, ef := range file.Elements {
		e, err := ef.toElement()
		if err != nil {
			return nil, errors.New("invalid scene element").
				WithType(ErrTypeInvalidScene).
				WithTag("index", i).
				WithTag("name", ef.Name).
				Wrap(err)
		}
		scene.Add(e)
	}

	logs.WithTag("elements", scene.Len()).
		WithTag("objects", scene.NodeCount()).
		Info("scene loaded")
	return scene, nil
}

func (ef elementFile) toElement() (*SceneElement, error) {
	e := &SceneElement{
		Name:      ef.Name,
		Source:    ef.Source,
		Instance:  ef.Instance,
		Transform: IdentityTransform(),
		Mesh:      ef.Mesh,
	}
	if ef.Transform != nil {
		e.Transform = *ef.Transform
	}

	if len(ef.Nodes) != 0 {
		for i, n := range ef.Nodes {
			if n.Bounds == nil {
				if n.Mesh != nil {
					if b, ok := n.Mesh.Bounds(); ok {
						ef.Nodes[i].Bounds = &b
					}
				}
				continue
			}
			b, err := geometry.NewAabb(n.Bounds.Min, n.Bounds.Max)
			if err != nil {
				return nil, errors.New("invalid mesh node bounds").
					WithType(errors.Type(err)).
					WithTag("node", i).
					Wrap(err)
			}
			ef.Nodes[i].Bounds = &b
		}

		c, err := NewCompound(ef.Nodes)
		if err != nil {
			return nil, err
		}
		e.Shape = c
		return e, nil
	}

	e.Shape = Simple{}
	switch {
	case ef.Bounds != nil:
		if err := e.SetBounds(ef.Bounds.Min, ef.Bounds.Max); err != nil {
			return nil, err
		}

	case ef.Mesh != nil:
		if b, ok := ef.Mesh.Bounds(); ok {
			e.Shape = Simple{Bounds: &b}
		}
	}
	return e, nil
}
