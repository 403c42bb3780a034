package emissions

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"

	"github.com/rotisserie/eris"

	"github.com/sells-group/emissions-dashboard/internal/model"
)

// Validate checks the query before any store access.
func (q PeerQuery) Validate() error {
	if q.Limit < 0 {
		return Validationf("invalid limit %d: must not be negative", q.Limit)
	}
	if q.Year <= 0 {
		return Validationf("invalid year %d", q.Year)
	}
	return nil
}

// NewSeed returns a high-entropy seed for peer sampling.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, eris.Wrap(err, "emissions: read random seed")
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// SamplePeers picks up to limit entries from candidates with a partial
// Fisher-Yates shuffle driven by seed. Candidates must arrive in a stable
// order (stores sort by name) for the sample to be reproducible.
func SamplePeers(candidates []model.PeerEntry, limit int, seed int64) []model.PeerEntry {
	pool := make([]model.PeerEntry, len(candidates))
	copy(pool, candidates)
	if limit > len(pool) {
		limit = len(pool)
	}
	if limit <= 0 {
		return []model.PeerEntry{}
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	for i := 0; i < limit; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:limit]
}

// ComparePeers assembles a peer comparison from every same-sector entry for
// the query year. The entry belonging to company, if any, is placed first
// and flagged; the others are sampled down to q.Limit.
func ComparePeers(company model.Company, rows []model.PeerEntry, q PeerQuery) *PeerComparison {
	var current *model.PeerEntry
	others := make([]model.PeerEntry, 0, len(rows))
	for _, r := range rows {
		r.Total = model.TotalOf(r.Scope1, r.Scope2, r.Scope3)
		if r.Name == company.Name {
			r.IsCurrentCompany = true
			current = &r
			continue
		}
		r.IsCurrentCompany = false
		others = append(others, r)
	}

	sampled := SamplePeers(others, q.Limit, q.Seed)
	out := make([]model.PeerEntry, 0, len(sampled)+1)
	if current != nil {
		out = append(out, *current)
	}
	out = append(out, sampled...)

	return &PeerComparison{
		Year:      q.Year,
		Sector:    company.Sector,
		Companies: out,
	}
}
