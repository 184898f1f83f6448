package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"homegrid.io/internal/auth"
	"homegrid.io/internal/listing"
	"homegrid.io/internal/obs"
	"homegrid.io/internal/stream"
)

// ReadyProbe checks the service dependencies, currently a DB ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config collects the collaborators the HTTP layer depends on.
type Config struct {
	Auth       *auth.Service
	Directory  *auth.Directory
	Listings   *listing.Service
	Stream     *stream.Stream
	ReadyProbe ReadyProbe
	UploadDir  string
	Version    string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	directory  *auth.Directory
	listings   *listing.Service
	stream     *stream.Stream
	readyProbe ReadyProbe
	uploadDir  string
	version    string
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       cfg.Auth,
		directory:  cfg.Directory,
		listings:   cfg.Listings,
		stream:     cfg.Stream,
		readyProbe: cfg.ReadyProbe,
		uploadDir:  cfg.UploadDir,
		version:    cfg.Version,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth + profile
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)
	a.mux.HandleFunc("/v1/users/me", a.handleSelfUpdate)

	// listings
	a.mux.HandleFunc("/v1/properties", a.handlePropertiesCollection)
	a.mux.HandleFunc("/v1/properties/mine", a.handleMyProperties)
	a.mux.HandleFunc("/v1/properties/published", a.handlePublishedProperties)
	a.mux.HandleFunc("/v1/properties/", a.handlePropertyResource)

	// admin
	a.mux.HandleFunc("/v1/admin/agents", a.handleAgentsCollection)
	a.mux.HandleFunc("/v1/admin/agents/", a.handleAgentResource)
	a.mux.HandleFunc("/v1/admin/properties", a.handleAllProperties)

	// live feed
	a.mux.HandleFunc("/v1/stream/listings", a.streamListings)

	// stored listing images
	if a.uploadDir != "" {
		a.mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.uploadDir))))
	}

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler composes the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, maxUploadBytes+1<<20)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = LoggingJSON(h)
	h = RateLimit(h, 50, 25)
	h = RequestID(h)
	return obs.Instrument(h)
}

// trimID extracts the resource id segment after the given prefix, or "" when
// the path has extra segments.
func trimID(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
