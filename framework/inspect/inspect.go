// Package inspect serves a read-only HTTP view of the compiled container:
// services, parameters, the YAML snapshot and metrics. It never builds a
// service.
package inspect

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/holder"
)

// Handler serves the inspection routes.
type Handler struct {
	holder  *holder.Holder
	metrics http.Handler
	logger  zerolog.Logger
}

// New creates a Handler. metrics may be nil, in which case /metrics is not
// mounted.
func New(h *holder.Holder, metrics http.Handler, logger zerolog.Logger) *Handler {
	return &Handler{
		holder:  h,
		metrics: metrics,
		logger:  logger.With().Str("component", "inspect").Logger(),
	}
}

// Router returns the chi router with every route mounted.
//
//	GET  /services           ?tag= filters by tag
//	GET  /services/{id}      id may be an alias
//	GET  /parameters
//	GET  /parameters/{name}
//	GET  /snapshot           YAML dump
//	POST /reload
//	GET  /metrics
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/services", h.listServices)
	r.Get("/services/{id}", h.showService)
	r.Get("/parameters", h.listParameters)
	r.Get("/parameters/{name}", h.showParameter)
	r.Get("/snapshot", h.snapshot)
	r.Post("/reload", h.reload)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics)
	}
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if r.URL.Path == "/metrics" {
			return
		}
		h.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// ── Views ─────────────────────────────────────────────────────────────────────

// ServiceView describes one service definition.
type ServiceView struct {
	ID         string   `json:"id"`
	Class      string   `json:"class"`
	Shared     bool     `json:"shared"`
	Arguments  []any    `json:"arguments"`
	Tags       []string `json:"tags,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
	Dependents []string `json:"dependents,omitempty"`
}

// NewServiceView builds the view of def. Arguments use the definition file
// text form: "%name%" for parameters and "@id" for services.
func NewServiceView(g *container.Graph, def *container.Definition) ServiceView {
	args := make([]any, 0, len(def.Arguments()))
	for _, arg := range def.Arguments() {
		args = append(args, arg.Text())
	}
	var aliases []string
	for alias, target := range g.Aliases() {
		if target == def.ID() {
			aliases = append(aliases, alias)
		}
	}
	slices.Sort(aliases)

	return ServiceView{
		ID:        def.ID(),
		Class:     def.Implementation(),
		Shared:    def.Shared(),
		Arguments: args,
		Tags:      def.Tags(),
		Aliases:   aliases,
	}
}

// ── Handlers ──────────────────────────────────────────────────────────────────

func (h *Handler) graph(w http.ResponseWriter) (*container.Graph, bool) {
	g, err := h.holder.Graph()
	if err != nil {
		h.logger.Error().Err(err).Msg("container unavailable")
		NewResponse(w).ServerError(err.Error())
		return nil, false
	}
	return g, true
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	g, ok := h.graph(w)
	if !ok {
		return
	}

	ids := g.ServiceIDs()
	if tag := r.URL.Query().Get("tag"); tag != "" {
		ids = g.Tagged(tag)
	}
	views := make([]ServiceView, 0, len(ids))
	for _, id := range ids {
		def, _ := g.Definition(id)
		views = append(views, NewServiceView(g, def))
	}
	NewResponse(w).Success(views)
}

func (h *Handler) showService(w http.ResponseWriter, r *http.Request) {
	g, ok := h.graph(w)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	def, found := g.Definition(id)
	if !found {
		NewResponse(w).NotFound(fmt.Sprintf("Service %q not found.", id))
		return
	}
	view := NewServiceView(g, def)
	view.Dependents = g.Dependents(def.ID())
	NewResponse(w).Success(view)
}

func (h *Handler) listParameters(w http.ResponseWriter, _ *http.Request) {
	g, ok := h.graph(w)
	if !ok {
		return
	}
	NewResponse(w).Success(g.Parameters())
}

func (h *Handler) showParameter(w http.ResponseWriter, r *http.Request) {
	g, ok := h.graph(w)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	v, found := g.Parameter(name)
	if !found {
		NewResponse(w).NotFound(fmt.Sprintf("Parameter %q not found.", name))
		return
	}
	NewResponse(w).Success(map[string]any{"name": name, "value": v})
}

func (h *Handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	g, ok := h.graph(w)
	if !ok {
		return
	}
	data, err := g.Dump()
	if err != nil {
		NewResponse(w).ServerError(err.Error())
		return
	}
	NewResponse(w).YAML(data)
}

func (h *Handler) reload(w http.ResponseWriter, _ *http.Request) {
	g, err := h.holder.Reload()
	if err != nil {
		NewResponse(w).Error(http.StatusUnprocessableEntity, err.Error())
		return
	}
	NewResponse(w).Success(map[string]any{
		"build":    g.ID(),
		"services": len(g.ServiceIDs()),
	})
}
