package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/emissions-dashboard/internal/emissions"
	"github.com/sells-group/emissions-dashboard/internal/model"
)

// MemoryStore implements Store over in-memory slices. Every query is a
// linear scan that mirrors the SQL of the database adapters.
type MemoryStore struct {
	mu        sync.RWMutex
	companies []model.Company
	records   []model.EmissionRecord
	nextID    int64
	now       func() time.Time
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// NewMemoryFromDataset returns a MemoryStore preloaded with ds.
func NewMemoryFromDataset(ctx context.Context, ds *model.Dataset) (*MemoryStore, error) {
	m := NewMemory()
	if _, err := m.Load(ctx, ds); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

// Load upserts ds with the same semantics as the SQL adapters: companies by
// name, emissions by (company, year).
func (m *MemoryStore) Load(_ context.Context, ds *model.Dataset) (*model.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate before mutating so a bad dataset leaves the store untouched.
	names := make(map[string]bool, len(ds.Companies))
	for _, c := range ds.Companies {
		names[c.Name] = true
	}
	for _, e := range ds.Emissions {
		if !names[e.Company] && m.indexOf(e.Company) < 0 {
			return nil, eris.Errorf("memory: load: emission for unknown company %q", e.Company)
		}
	}

	now := m.now().UTC()
	ids := make(map[string]int64, len(ds.Companies))
	for _, c := range ds.Companies {
		if i := m.indexOf(c.Name); i >= 0 {
			existing := m.companies[i]
			c.ID, c.CreatedAt = existing.ID, existing.CreatedAt
			m.companies[i] = c
		} else {
			c.ID, c.CreatedAt = m.id(), now
			m.companies = append(m.companies, c)
		}
		ids[c.Name] = c.ID
	}

	for _, e := range ds.Emissions {
		companyID, ok := ids[e.Company]
		if !ok {
			companyID = m.companies[m.indexOf(e.Company)].ID
		}
		rec := model.EmissionRecord{
			CompanyID: companyID,
			Year:      e.Year,
			Scope1:    e.Scope1,
			Scope2:    e.Scope2,
			Scope3:    e.Scope3,
		}
		if i := m.recordIndex(companyID, e.Year); i >= 0 {
			rec.ID, rec.CreatedAt = m.records[i].ID, m.records[i].CreatedAt
			m.records[i] = rec
		} else {
			rec.ID, rec.CreatedAt = m.id(), now
			m.records = append(m.records, rec)
		}
	}

	return &model.LoadResult{Companies: len(ids), Emissions: len(ds.Emissions)}, nil
}

func (m *MemoryStore) indexOf(name string) int {
	for i, c := range m.companies {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) recordIndex(companyID int64, year int) int {
	for i, r := range m.records {
		if r.CompanyID == companyID && r.Year == year {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) companyByID() map[int64]model.Company {
	out := make(map[int64]model.Company, len(m.companies))
	for _, c := range m.companies {
		out[c.ID] = c
	}
	return out
}

func sortCompanies(cs []model.Company) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
}

func (m *MemoryStore) ListCompanies(context.Context) ([]model.CompanyListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	listings := make([]model.CompanyListing, 0, len(m.companies))
	for _, c := range m.companies {
		l := model.CompanyListing{Company: c}
		for _, r := range m.records {
			if r.CompanyID != c.ID {
				continue
			}
			l.EmissionCount++
			if l.EarliestYear == nil || r.Year < *l.EarliestYear {
				l.EarliestYear = model.Int(r.Year)
			}
			if l.LatestYear == nil || r.Year > *l.LatestYear {
				l.LatestYear = model.Int(r.Year)
			}
		}
		listings = append(listings, l)
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].Name < listings[j].Name })
	return listings, nil
}

func (m *MemoryStore) GetCompany(_ context.Context, name string) (*model.CompanyDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(name)
	if i < 0 {
		return nil, emissions.CompanyNotFound()
	}
	c := m.companies[i]

	records := make([]model.EmissionRecord, 0)
	for _, r := range m.records {
		if r.CompanyID == c.ID {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Year < records[j].Year })
	return model.NewCompanyDetail(c, records), nil
}

func (m *MemoryStore) GetPeers(_ context.Context, q emissions.PeerQuery) (*emissions.PeerComparison, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(q.Name)
	if i < 0 {
		return nil, emissions.CompanyNotFound()
	}
	c := m.companies[i]

	byID := m.companyByID()
	rows := make([]model.PeerEntry, 0)
	for _, r := range m.records {
		peer := byID[r.CompanyID]
		if r.Year != q.Year || peer.Sector != c.Sector {
			continue
		}
		rows = append(rows, model.PeerEntry{
			Name:      peer.Name,
			Sector:    peer.Sector,
			Region:    peer.Region,
			Ownership: peer.Ownership,
			Year:      r.Year,
			Scope1:    r.Scope1,
			Scope2:    r.Scope2,
			Scope3:    r.Scope3,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return emissions.ComparePeers(c, rows, q), nil
}

// rollup groups one year of records by the key keyFn derives from the owning company.
func (m *MemoryStore) rollup(year int, keyFn func(model.Company) string) []groupTotals {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byID := m.companyByID()
	acc := make(map[string]*model.RollupAccumulator)
	var keys []string
	for _, r := range m.records {
		if r.Year != year {
			continue
		}
		key := keyFn(byID[r.CompanyID])
		a, ok := acc[key]
		if !ok {
			a = &model.RollupAccumulator{}
			acc[key] = a
			keys = append(keys, key)
		}
		a.Add(r)
	}

	groups := make([]groupTotals, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, groupTotals{key: k, RollupTotals: acc[k].Totals()})
	}
	return groups
}

func (m *MemoryStore) SectorRollup(_ context.Context, year int) ([]model.SectorRollup, error) {
	out := sectorRollups(m.rollup(year, func(c model.Company) string { return string(c.Sector) }))
	model.SortSectorRollups(out)
	return out, nil
}

func (m *MemoryStore) RegionRollup(_ context.Context, year int) ([]model.RegionRollup, error) {
	out := regionRollups(m.rollup(year, func(c model.Company) string { return string(c.Region) }))
	model.SortRegionRollups(out)
	return out, nil
}

func (m *MemoryStore) Search(_ context.Context, f emissions.SearchFilter) ([]model.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]model.Company, 0)
	for _, c := range m.companies {
		if f.Query != "" && !strings.Contains(c.Name, f.Query) {
			continue
		}
		if f.Sector != "" && string(c.Sector) != f.Sector {
			continue
		}
		if f.Region != "" && string(c.Region) != f.Region {
			continue
		}
		matches = append(matches, c)
	}
	sortCompanies(matches)
	if len(matches) > emissions.SearchLimit {
		matches = matches[:emissions.SearchLimit]
	}
	return matches, nil
}

func (m *MemoryStore) ListYears(context.Context) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, r := range m.records {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}

func (m *MemoryStore) GetStats(context.Context) (*model.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sectors := make(map[model.Sector]bool)
	regions := make(map[model.Region]bool)
	for _, c := range m.companies {
		sectors[c.Sector] = true
		regions[c.Region] = true
	}

	st := &model.Stats{
		TotalCompanies:       len(m.companies),
		TotalEmissionRecords: len(m.records),
		TotalSectors:         len(sectors),
		TotalRegions:         len(regions),
	}
	for _, r := range m.records {
		if st.MinYear == nil || r.Year < *st.MinYear {
			st.MinYear = model.Int(r.Year)
		}
		if st.MaxYear == nil || r.Year > *st.MaxYear {
			st.MaxYear = model.Int(r.Year)
		}
	}
	return st, nil
}
