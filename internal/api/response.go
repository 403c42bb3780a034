package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/emissions-dashboard/internal/emissions"
	"github.com/sells-group/emissions-dashboard/internal/model"
)

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type companiesResponse struct {
	Success   bool                   `json:"success"`
	Count     int                    `json:"count"`
	Companies []model.CompanyListing `json:"companies"`
}

type companyResponse struct {
	Success bool `json:"success"`
	*model.CompanyDetail
}

type peersResponse struct {
	Success bool `json:"success"`
	*emissions.PeerComparison
}

type trajectoryResponse struct {
	Success bool                    `json:"success"`
	Company model.Company           `json:"company"`
	Points  []model.TrajectoryPoint `json:"points"`
}

type sectorsResponse struct {
	Success bool                 `json:"success"`
	Year    int                  `json:"year"`
	Sectors []model.SectorRollup `json:"sectors"`
}

type regionsResponse struct {
	Success bool                 `json:"success"`
	Year    int                  `json:"year"`
	Regions []model.RegionRollup `json:"regions"`
}

type searchResponse struct {
	Success   bool            `json:"success"`
	Count     int             `json:"count"`
	Companies []model.Company `json:"companies"`
}

type yearsResponse struct {
	Success bool  `json:"success"`
	Years   []int `json:"years"`
}

type statsResponse struct {
	Success bool         `json:"success"`
	Stats   *model.Stats `json:"stats"`
}

type overviewResponse struct {
	Success bool `json:"success"`
	*emissions.Overview
}

// writeJSON encodes v before writing the header, so an unencodable value
// becomes a 500 envelope instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Int("status", status), zap.Error(err))
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(failure{Success: false, Error: "Internal server error"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, failure{Success: false, Error: msg})
}

// writeError maps a query failure to its status. Only NotFound is a 4xx;
// everything else, validation included, is a 500 carrying the raw message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if emissions.KindOf(err) == emissions.KindNotFound {
		writeFailure(w, http.StatusNotFound, emissions.MsgCompanyNotFound)
		return
	}
	zap.L().Error("api: query failed",
		zap.String("path", r.URL.Path),
		zap.String("kind", string(emissions.KindOf(err))),
		zap.Error(err),
	)
	writeFailure(w, http.StatusInternalServerError, err.Error())
}
