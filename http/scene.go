package http

import (
	"net/http"
	"strconv"

	"github.com/vantage3d/vantage/geometry"
	"github.com/vantage3d/vantage/models"
	"github.com/vantage3d/vantage/pipeline"
)

// ElementSummary describes a scene element without its meshes.
type ElementSummary struct {
	ID        uint32                `json:"id"`
	Name      string                `json:"name,omitempty"`
	Source    string                `json:"source,omitempty"`
	Instance  models.InstanceHandle `json:"instance"`
	Transform models.Transform      `json:"transform"`
	Compound  bool                  `json:"compound"`
	Nodes     int                   `json:"nodes"`
	Bounds    *geometry.Aabb        `json:"bounds,omitempty"`
}

type SceneSummary struct {
	Version  uint64           `json:"version"`
	Nodes    int              `json:"nodes"`
	Elements []ElementSummary `json:"elements"`
}

func summarizeElement(e *models.SceneElement) ElementSummary {
	return ElementSummary{
		ID:        e.ID,
		Name:      e.Name,
		Source:    e.Source,
		Instance:  e.Instance,
		Transform: e.Transform,
		Compound:  e.IsCompound(),
		Nodes:     e.NodeCount(),
		Bounds:    e.Bounds(),
	}
}

// HandleScene serves a JSON summary of the scene. The id query parameter
// restricts the response to a single element.
func HandleScene(scene *models.Scene) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if rawID := r.URL.Query().Get("id"); rawID != "" {
			id, err := strconv.ParseUint(rawID, 10, 32)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid element id")
				return
			}

			e, ok := scene.Get(uint32(id))
			if !ok {
				writeError(w, http.StatusNotFound, "element not found")
				return
			}
			writeJSON(w, http.StatusOK, summarizeElement(e))
			return
		}

		elements, version := scene.Snapshot()
		res := SceneSummary{
			Version:  version,
			Elements: make([]ElementSummary, len(elements)),
		}
		for i, e := range elements {
			res.Elements[i] = summarizeElement(e)
			res.Nodes += e.NodeCount()
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// HandleConfig serves the culling configuration viewers are served with.
func HandleConfig(c pipeline.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}
