package api

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/emissions-dashboard/internal/emissions"
	"github.com/sells-group/emissions-dashboard/internal/model"
)

type handler struct {
	src  emissions.Source
	opts Options
}

// pinger is implemented by sources backed by a database connection.
type pinger interface {
	Ping(ctx context.Context) error
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.src.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			zap.L().Error("api: health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.src.ListCompanies(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companiesResponse{Success: true, Count: len(companies), Companies: companies})
}

func (h *handler) getCompany(w http.ResponseWriter, r *http.Request) {
	detail, err := h.src.GetCompany(r.Context(), nameParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companyResponse{Success: true, CompanyDetail: detail})
}

func (h *handler) getPeers(w http.ResponseWriter, r *http.Request) {
	q := emissions.PeerQuery{Name: nameParam(r)}

	var err error
	if q.Limit, err = h.limitParam(r); err != nil {
		writeError(w, r, err)
		return
	}
	if q.Year, err = h.yearParam(r); err != nil {
		writeError(w, r, err)
		return
	}
	if q.Seed, err = h.seedParam(r); err != nil {
		writeError(w, r, err)
		return
	}

	cmp, err := h.src.GetPeers(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, peersResponse{Success: true, PeerComparison: cmp})
}

func (h *handler) getTrajectory(w http.ResponseWriter, r *http.Request) {
	detail, err := h.src.GetCompany(r.Context(), nameParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trajectoryResponse{
		Success: true,
		Company: detail.Company,
		Points:  model.BuildTrajectory(detail.Company, detail.Emissions),
	})
}

func (h *handler) sectorRollup(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sectors, err := h.src.SectorRollup(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sectorsResponse{Success: true, Year: year, Sectors: sectors})
}

func (h *handler) regionRollup(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	regions, err := h.src.RegionRollup(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regionsResponse{Success: true, Year: year, Regions: regions})
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companies, err := h.src.Search(r.Context(), emissions.SearchFilter{
		Query:  q.Get("q"),
		Sector: q.Get("sector"),
		Region: q.Get("region"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Success: true, Count: len(companies), Companies: companies})
}

func (h *handler) listYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.src.ListYears(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, yearsResponse{Success: true, Years: years})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.src.GetStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Success: true, Stats: stats})
}

func (h *handler) overview(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ov, err := emissions.FetchOverview(r.Context(), h.src, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overviewResponse{Success: true, Overview: ov})
}
