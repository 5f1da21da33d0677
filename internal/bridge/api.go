// Package bridge exposes an editor session over HTTP so that an external
// user interface can drive it, and streams engine output over websocket.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/iancoleman/orderedmap"

	"manimeditor/internal/editor"
	"manimeditor/internal/importer"
	"manimeditor/internal/metadata"
)

const maxBodyBytes = 1 << 20

type HandlerConfig struct {
	Logger *log.Logger
	// Detached context for engine jobs, which outlive their request.
	JobContext context.Context
}

type classSummary struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	IsElement bool   `json:"isElement"`
	IsEffect  bool   `json:"isEffect"`
}

type classDetail struct {
	classSummary
	Module string                   `json:"module"`
	Doc    string                   `json:"doc"`
	Params []metadata.ParameterSpec `json:"params"`
}

type handler struct {
	session *editor.Session
	hub     *LogHub
	logger  *log.Logger
	jobs    context.Context
}

func NewHandler(session *editor.Session, hub *LogHub, cfg HandlerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	jobs := cfg.JobContext
	if jobs == nil {
		jobs = context.Background()
	}

	h := &handler{session: session, hub: hub, logger: logger, jobs: jobs}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/catalog", h.catalog)
	mux.HandleFunc("GET /api/classes/{name}", h.class)
	mux.HandleFunc("GET /api/tree", h.tree)
	mux.HandleFunc("POST /api/elements", h.addElement)
	mux.HandleFunc("GET /api/elements/{name}/form", h.form)
	mux.HandleFunc("POST /api/elements/{name}/duplicate", h.duplicateElement)
	mux.HandleFunc("DELETE /api/elements/{name}", h.deleteElement)
	mux.HandleFunc("PUT /api/elements/{name}/properties", h.setProperties)
	mux.HandleFunc("GET /api/code", h.code)
	mux.HandleFunc("POST /api/import", h.importSource)
	mux.HandleFunc("DELETE /api/template", h.detachTemplate)
	mux.HandleFunc("POST /api/assist", h.assist)
	mux.HandleFunc("PUT /api/sound", h.sound)
	mux.HandleFunc("POST /api/preview", h.preview)
	mux.HandleFunc("POST /api/render", h.render)
	if hub != nil {
		mux.HandleFunc("GET /ws/logs", hub.Handle)
	}

	return mux
}

func (h *handler) catalog(w http.ResponseWriter, r *http.Request) {
	catalog := h.session.Catalog()
	query := r.URL.Query().Get("q")

	classes := make([]classSummary, 0, catalog.Len())
	for _, descriptor := range catalog.Descriptors() {
		classes = append(classes, summarize(catalog, descriptor))
	}

	payload := struct {
		EngineVersion string         `json:"engineVersion"`
		Classes       []classSummary `json:"classes"`
		Match         *int           `json:"match,omitempty"`
	}{
		EngineVersion: catalog.EngineVersion(),
		Classes:       classes,
	}
	if index, _, found := catalog.Search(query); found {
		payload.Match = &index
	}
	h.writeJSON(w, http.StatusOK, payload)
}

func (h *handler) class(w http.ResponseWriter, r *http.Request) {
	catalog := h.session.Catalog()
	descriptor, ok := catalog.Lookup(metadata.StripLabel(r.PathValue("name")))
	if !ok {
		httpError(w, "unknown class", http.StatusNotFound)
		return
	}

	params := descriptor.Params
	if params == nil {
		params = []metadata.ParameterSpec{}
	}
	h.writeJSON(w, http.StatusOK, classDetail{
		classSummary: summarize(catalog, descriptor),
		Module:       descriptor.Module,
		Doc:          descriptor.Doc,
		Params:       params,
	})
}

func (h *handler) tree(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, struct {
		Elements []editor.ElementView `json:"elements"`
		Template bool                 `json:"template"`
		Sound    string               `json:"sound"`
	}{
		Elements: h.session.Elements(),
		Template: h.session.Template() != "",
		Sound:    h.session.SoundPath(),
	})
}

func (h *handler) addElement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Class string `json:"class"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	// A failed save still leaves the element in the tree.
	view, err := h.session.Add(req.Class)
	if err != nil && view.Name == "" {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

func (h *handler) form(w http.ResponseWriter, r *http.Request) {
	fields, err := h.session.Form(r.PathValue("name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, fields)
}

func (h *handler) duplicateElement(w http.ResponseWriter, r *http.Request) {
	view, err := h.session.Duplicate(r.PathValue("name"))
	if err != nil && view.Name == "" {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

func (h *handler) deleteElement(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Delete(r.PathValue("name")); err != nil && errors.Is(err, editor.ErrUnknownElement) {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Body: {"key": "typed input", ...}. Keys are applied in body order.
func (h *handler) setProperties(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	keys, inputs, err := decodeInputs(body)
	if err != nil {
		httpError(w, "invalid payload", http.StatusBadRequest)
		return
	}

	name := r.PathValue("name")
	if err := h.session.ApplyForm(name, inputs, keys); err != nil && errors.Is(err, editor.ErrUnknownElement) {
		h.writeError(w, err)
		return
	}

	view, err := h.session.Element(name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *handler) code(w http.ResponseWriter, r *http.Request) {
	code, err := h.session.Code()
	if err != nil {
		h.logger.Printf("bridge: %v", err)
	}
	w.Header().Set("Content-Type", "text/x-python; charset=utf-8")
	w.Write([]byte(code))
}

// Body: scene source as plain text.
func (h *handler) importSource(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	count, err := h.session.Import(r.Context(), string(body))
	if err != nil && errors.Is(err, importer.ErrParse) {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"elements": count})
}

// Generated code stops following the imported source; its elements stay.
func (h *handler) detachTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ClearTemplate(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) assist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	count, err := h.session.Generate(r.Context(), req.Prompt)
	if err != nil && count == 0 {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"elements": count})
}

func (h *handler) sound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	info, err := h.session.SetSound(req.Path)
	if err != nil {
		httpError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"path":       info.Path,
		"format":     info.Format,
		"sampleRate": info.SampleRate,
		"channels":   info.Channels,
		"duration":   info.Duration.Seconds(),
	})
}

// Engine jobs run in the background; their output arrives on /ws/logs.
func (h *handler) preview(w http.ResponseWriter, r *http.Request) {
	go h.session.Preview(h.jobs)
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) render(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resolution string `json:"resolution"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	go h.session.Render(h.jobs, req.Resolution)
	w.WriteHeader(http.StatusAccepted)
}

func summarize(catalog *metadata.Catalog, descriptor metadata.ClassDescriptor) classSummary {
	return classSummary{
		Name:      descriptor.Name,
		Label:     catalog.Label(descriptor.Name),
		IsElement: descriptor.IsElement,
		IsEffect:  descriptor.IsEffect,
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Printf("bridge: failed to encode response: %v", err)
		httpError(w, "failed to encode", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, editor.ErrUnknownClass), errors.Is(err, editor.ErrUnknownElement):
		httpError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, importer.ErrParse):
		httpError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, editor.ErrNoAssistant):
		httpError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		httpError(w, err.Error(), http.StatusInternalServerError)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httpError(w, "invalid payload", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	body, ok := readBody(w, r)
	if !ok {
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, target); err != nil {
		httpError(w, "invalid payload", http.StatusBadRequest)
		return false
	}
	return true
}

// Decodes a flat object, keeping the key order. Non-string values are
// taken as their JSON text.
func decodeInputs(body []byte) ([]string, map[string]string, error) {
	object := orderedmap.New()
	if err := json.Unmarshal(body, object); err != nil {
		return nil, nil, err
	}

	keys := object.Keys()
	inputs := make(map[string]string, len(keys))
	for _, key := range keys {
		value, _ := object.Get(key)
		if text, ok := value.(string); ok {
			inputs[key] = text
			continue
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, nil, err
		}
		inputs[key] = string(data)
	}
	return keys, inputs, nil
}

func httpError(w http.ResponseWriter, msg string, code int) {
	http.Error(w, msg, code)
}
