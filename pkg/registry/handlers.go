package registry

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/condoplane/condoplane/pkg/httputil"
	"github.com/condoplane/condoplane/pkg/observability"
)

// Handlers exposes the registry over HTTP with the discovery wire
// format: register/heartbeat/query/apps/deregister keyed by method and
// logical sub-path.
type Handlers struct {
	service *Service
	logger  *observability.Logger
}

// NewHandlers creates HTTP handlers over service.
func NewHandlers(service *Service, logger *observability.Logger) *Handlers {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Handlers{service: service, logger: logger}
}

// RegisterRoutes mounts the discovery endpoints on r.
//
// Clients of the original wire protocol may put the logical sub-path in
// a "path" body field instead of the URL, so the root POST/PUT handlers
// dispatch on that field too.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/heartbeat", h.heartbeat).Methods(http.MethodPut)
	r.HandleFunc("/apps", h.apps).Methods(http.MethodGet)
	r.HandleFunc("", h.query).Methods(http.MethodGet).Queries("service", "{service}")
	r.HandleFunc("/", h.query).Methods(http.MethodGet).Queries("service", "{service}")
	r.HandleFunc("", h.deregister).Methods(http.MethodDelete).Queries("service", "{service}")
	r.HandleFunc("/", h.deregister).Methods(http.MethodDelete).Queries("service", "{service}")
	r.HandleFunc("", h.dispatchBodyPath).Methods(http.MethodPost, http.MethodPut)
	r.HandleFunc("/", h.dispatchBodyPath).Methods(http.MethodPost, http.MethodPut)
	r.NotFoundHandler = http.HandlerFunc(h.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.notFound)
}

type registerRequest struct {
	Path        string         `json:"path,omitempty"`
	ServiceName string         `json:"service_name"`
	ServiceURL  string         `json:"service_url"`
	Status      Status         `json:"status,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type heartbeatRequest struct {
	Path        string `json:"path,omitempty"`
	ServiceName string `json:"service_name"`
	Status      Status `json:"status,omitempty"`
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	h.handleRegister(w, r, req)
}

func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request, req registerRequest) {
	if req.ServiceName == "" || req.ServiceURL == "" {
		httputil.WriteBadRequest(w, "service_name and service_url are required")
		return
	}

	inst, err := h.service.Register(r.Context(), req.ServiceName, req.ServiceURL, req.Status, req.Metadata)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, map[string]interface{}{
		"message": "Service registered successfully",
		"service": inst,
	})
}

func (h *Handlers) heartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	h.handleHeartbeat(w, r, req)
}

func (h *Handlers) handleHeartbeat(w http.ResponseWriter, r *http.Request, req heartbeatRequest) {
	if req.ServiceName == "" {
		httputil.WriteBadRequest(w, "service_name is required")
		return
	}

	if err := h.service.Heartbeat(r.Context(), req.ServiceName, req.Status); err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{
		"message": "Heartbeat received",
	})
}

func (h *Handlers) query(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("service")

	inst, ok, err := h.service.Get(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !ok {
		httputil.WriteNotFound(w, "Service not found or not available")
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"service": inst,
	})
}

func (h *Handlers) apps(w http.ResponseWriter, r *http.Request) {
	instances, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	doc, err := ToLegacyDocument(instances)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, doc)
}

func (h *Handlers) deregister(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("service")
	if name == "" {
		httputil.WriteBadRequest(w, "service_name is required")
		return
	}

	if err := h.service.Deregister(r.Context(), name); err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{
		"message": "Service deregistered successfully",
	})
}

// dispatchBodyPath handles POST/PUT to the endpoint root where the
// logical sub-path arrives in the body's "path" field.
func (h *Handlers) dispatchBodyPath(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	switch {
	case r.Method == http.MethodPost && req.Path == "register":
		h.handleRegister(w, r, req)
	case r.Method == http.MethodPut && req.Path == "heartbeat":
		h.handleHeartbeat(w, r, heartbeatRequest{
			ServiceName: req.ServiceName,
			Status:      req.Status,
		})
	default:
		h.notFound(w, r)
	}
}

func (h *Handlers) notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteNotFound(w, "Not found")
}

// writeError maps a registry error onto the wire. Internal details are
// logged but never sent to the caller.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case IsValidation(err):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFound(w, "Service not found")
	default:
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("registry request failed")
		httputil.WriteInternalError(w)
	}
}
