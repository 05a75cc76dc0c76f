package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sceneElementCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scene_element_count",
		Help: "The number of elements in the scene.",
	})

	sceneMeshNodeCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scene_mesh_node_count",
		Help: "The number of independently culled objects in the scene.",
	})

	sceneLoadCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scene_load_count_total",
		Help: "The total number of scene loads.",
	}, []string{"status"})
)

func instrumentSceneGauges(elements, nodes int) {
	sceneElementCount.Set(float64(elements))
	sceneMeshNodeCount.Set(float64(nodes))
}

func instrumentSceneLoad(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	sceneLoadCountTotal.
		With(prometheus.Labels{"status": status}).
		Inc()
}
