package gateway

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/condoplane/condoplane/pkg/httputil"
	"github.com/condoplane/condoplane/pkg/observability"
)

// Handlers exposes the gateway's authorize endpoint. The target path
// arrives as the "path" query parameter, defaulting to "/", and the
// credential as an Authorization bearer header.
type Handlers struct {
	gateway *Gateway
	logger  *observability.Logger
}

// NewHandlers creates HTTP handlers over gw.
func NewHandlers(gw *Gateway, logger *observability.Logger) *Handlers {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Handlers{gateway: gw, logger: logger}
}

// RegisterRoutes mounts the authorize endpoint on r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.authorize).Methods(http.MethodGet)
	r.HandleFunc("/", h.authorize).Methods(http.MethodGet)
}

func (h *Handlers) authorize(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/"
	}

	// A missing or malformed header is indistinguishable from no
	// credential; the gateway renders the unauthenticated decision for
	// protected paths and ignores it for public ones.
	credential, _ := httputil.BearerToken(r)

	decision, err := h.gateway.Authorize(r.Context(), path, credential)
	if err != nil {
		h.logger.WithError(err).WithField("path", path).Error("authorization failed")
		var rsErr *RoleStoreError
		if errors.As(err, &rsErr) {
			httputil.WriteErrorMessage(w, http.StatusInternalServerError, "Error fetching user roles")
			return
		}
		httputil.WriteInternalError(w)
		return
	}

	switch decision.Outcome {
	case OutcomeAuthorized:
		h.writeAuthorized(w, decision)
	case OutcomeUnauthenticated:
		httputil.WriteUnauthorized(w, decision.Message)
	case OutcomeForbidden:
		httputil.WriteForbidden(w, decision.Message)
	default:
		httputil.WriteInternalError(w)
	}
}

func (h *Handlers) writeAuthorized(w http.ResponseWriter, decision *Decision) {
	payload := map[string]interface{}{
		"authorized": true,
		"path":       decision.Path,
	}
	if decision.Public {
		payload["message"] = decision.Message
	} else {
		payload["user_id"] = decision.UserID
		payload["user_role"] = decision.UserRole
		payload["required_role"] = decision.RequiredRole
	}
	httputil.WriteSuccess(w, payload)
}
