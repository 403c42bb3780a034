package model

// EmissionInput is an emission record keyed by company name, as produced by
// the importer before company ids exist.
type EmissionInput struct {
	Company string
	Year    int
	Scope1  float64
	Scope2  *float64
	Scope3  float64
}

// Dataset is a batch of companies and emissions ready to load into a store.
// Every EmissionInput.Company names a company in Companies.
type Dataset struct {
	Companies []Company
	Emissions []EmissionInput
}

// LoadResult reports how many rows a store accepted from a Dataset.
type LoadResult struct {
	Companies int `json:"companies"`
	Emissions int `json:"emissions"`
}
