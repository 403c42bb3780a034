// Package api serves the emissions dashboard REST API over an
// emissions.Source.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/sells-group/emissions-dashboard/internal/emissions"
)

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	// RateLimit is requests per second per client. 0 disables limiting.
	RateLimit float64
	RateBurst int
	// PeerLimit is the peer count used when a request gives none.
	PeerLimit int
	// PeerSeed fixes peer sampling when a request gives no seed. 0 draws a
	// fresh seed per request.
	PeerSeed int64
	// Now supplies the current time for default years. Defaults to time.Now.
	Now func() time.Time
}

func (o *Options) defaults() {
	if len(o.AllowedOrigins) == 0 {
		o.AllowedOrigins = []string{"*"}
	}
	if o.PeerLimit <= 0 {
		o.PeerLimit = emissions.DefaultPeerLimit
	}
	if o.RateLimit > 0 && o.RateBurst < 1 {
		o.RateBurst = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// NewRouter returns the API handler. All /api routes are read-only GETs.
func NewRouter(src emissions.Source, opts Options) http.Handler {
	opts.defaults()
	h := &handler{src: src, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimit > 0 {
			r.Use(newClientLimiter(rate.Limit(opts.RateLimit), opts.RateBurst).middleware)
		}

		r.Get("/companies", h.listCompanies)
		r.Get("/companies/{name}", h.getCompany)
		r.Get("/companies/{name}/peers", h.getPeers)
		r.Get("/companies/{name}/trajectory", h.getTrajectory)
		r.Get("/sectors", h.sectorRollup)
		r.Get("/regions", h.regionRollup)
		r.Get("/search", h.search)
		r.Get("/years", h.listYears)
		r.Get("/stats", h.stats)
		r.Get("/overview", h.overview)
	})

	return r
}
