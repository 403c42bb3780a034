package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/emissions-dashboard/internal/emissions"
)

// nameParam returns the decoded {name} path segment. chi hands back the
// escaped form when the request path needed RawPath (names with "/").
func nameParam(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		if u, err := url.PathUnescape(name); err == nil {
			name = u
		}
	}
	return name
}

// yearParam parses ?year=, defaulting to the current calendar year.
func (h *handler) yearParam(r *http.Request) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get("year"))
	if s == "" {
		return h.opts.Now().Year(), nil
	}
	y, err := strconv.Atoi(s)
	if err != nil || y <= 0 {
		return 0, emissions.Validationf("invalid year %q", s)
	}
	return y, nil
}

// limitParam parses ?limit=, defaulting to the configured peer limit.
func (h *handler) limitParam(r *http.Request) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get("limit"))
	if s == "" {
		return h.opts.PeerLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, emissions.Validationf("invalid limit %q", s)
	}
	return n, nil
}

// seedParam parses ?seed=. Without one the configured seed applies, and a
// zero configured seed draws a fresh one.
func (h *handler) seedParam(r *http.Request) (int64, error) {
	s := strings.TrimSpace(r.URL.Query().Get("seed"))
	if s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, emissions.Validationf("invalid seed %q", s)
		}
		return seed, nil
	}
	if h.opts.PeerSeed != 0 {
		return h.opts.PeerSeed, nil
	}
	seed, err := emissions.NewSeed()
	if err != nil {
		return 0, emissions.Internal(err, "api: peer seed")
	}
	return seed, nil
}
