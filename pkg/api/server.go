package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teamplane/teamplane/pkg/audit"
	"github.com/teamplane/teamplane/pkg/auth"
	"github.com/teamplane/teamplane/pkg/middleware"
	"github.com/teamplane/teamplane/pkg/observability"
	"github.com/teamplane/teamplane/pkg/orgs"
	"github.com/teamplane/teamplane/pkg/rbac"
	"github.com/teamplane/teamplane/pkg/workspaces"
)

// AuditLister exposes read access to the audit trail. The database-backed
// audit logger satisfies it; the nop logger does not, which simply leaves
// the audit route unregistered.
type AuditLister interface {
	List(ctx context.Context, workspaceID string, limit int) ([]audit.Entry, error)
}

// Deps carries everything the API server needs.
type Deps struct {
	Tokens      *auth.TokenProvider
	Store       rbac.Store
	Resolver    *rbac.Resolver
	Roles       *rbac.Manager
	Orgs        orgs.Service
	Workspaces  workspaces.Service
	AuditLister AuditLister
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	Health      *observability.HealthHandler
}

// Server is the HTTP API server.
type Server struct {
	router *mux.Router
	logger *observability.Logger

	authHandlers      *AuthHandlers
	orgHandlers       *OrgHandlers
	workspaceHandlers *WorkspaceHandlers
	roleHandlers      *RoleHandlers
}

// NewServer creates the API server and wires all routes.
func NewServer(deps Deps) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: deps.Logger,

		authHandlers:      NewAuthHandlers(deps.Orgs, deps.Store, deps.Resolver, deps.Tokens, deps.Metrics, deps.Logger),
		orgHandlers:       NewOrgHandlers(deps.Orgs, deps.Store, deps.Logger),
		workspaceHandlers: NewWorkspaceHandlers(deps.Workspaces, deps.Store, deps.AuditLister, deps.Logger),
		roleHandlers:      NewRoleHandlers(deps.Roles, deps.Store, deps.Logger),
	}

	s.setupRoutes(deps)
	return s
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(deps Deps) {
	if deps.Metrics != nil {
		s.router.Use(requestMetrics(deps.Metrics))
		s.router.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}
	if deps.Health != nil {
		s.router.HandleFunc("/healthz", deps.Health.Liveness).Methods("GET")
		s.router.HandleFunc("/readyz", deps.Health.Readiness).Methods("GET")
	}

	// Public authentication routes.
	s.router.HandleFunc("/auth/register", s.authHandlers.Register).Methods("POST")
	s.router.HandleFunc("/auth/login", s.authHandlers.Login).Methods("POST")
	s.router.HandleFunc("/auth/refresh", s.authHandlers.Refresh).Methods("POST")
	s.router.HandleFunc("/auth/logout", s.authHandlers.Logout).Methods("POST")

	// Everything below requires a valid access credential.
	am := middleware.NewAuthMiddleware(deps.Tokens)
	pm := middleware.NewPermissionMiddleware(deps.Metrics)

	protected := s.router.NewRoute().Subrouter()
	protected.Use(am.Handler)

	protected.HandleFunc("/auth/me", s.authHandlers.Me).Methods("GET")

	s.orgHandlers.RegisterRoutes(protected, pm)
	s.workspaceHandlers.RegisterRoutes(protected, pm)
	s.roleHandlers.RegisterRoutes(protected, pm)
}

// requestMetrics instruments every matched route, labeled by its path
// template to keep cardinality bounded.
func requestMetrics(m *observability.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					path = tmpl
				}
			}
			m.InstrumentHandler(path, next).ServeHTTP(w, r)
		})
	}
}
