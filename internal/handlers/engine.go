package handlers

import (
	"net/http"
	"sort"

	"thumbnailer/internal/backend"
	"thumbnailer/internal/startup"
)

// EngineStatus is the probe result of one image engine
type EngineStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Selected  bool   `json:"selected"`
	Error     string `json:"error,omitempty"`
}

// EngineResponse describes the active image engine
type EngineResponse struct {
	Engine  string            `json:"engine"`
	Reads   []string          `json:"reads"`
	Writes  []string          `json:"writes"`
	Engines []EngineStatus    `json:"engines"`
	Build   startup.BuildInfo `json:"build"`
}

// GetEngine reports the selected engine, its formats and why the other
// candidates were passed over.
func (h *Handlers) GetEngine(w http.ResponseWriter, _ *http.Request) {
	formats := h.engine.SupportedFormats()
	response := EngineResponse{
		Engine: h.engine.Name(),
		Reads:  formats.Names(backend.Read),
		Writes: formats.Names(backend.Write),
		Build:  startup.GetBuildInfo(),
	}

	for name, err := range h.probes {
		status := EngineStatus{
			Name:      name,
			Available: err == nil,
			Selected:  name == h.engine.Name(),
		}
		if err != nil {
			status.Error = err.Error()
		}
		response.Engines = append(response.Engines, status)
	}
	sort.Slice(response.Engines, func(i, j int) bool {
		return response.Engines[i].Name < response.Engines[j].Name
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, response)
}
