package store

import "github.com/sells-group/emissions-dashboard/internal/model"

// SampleDataset returns the demo data served by the memory driver when no
// seed file is configured. Figures are tCO2e.
func SampleDataset() *model.Dataset {
	company := func(name string, sector model.Sector, region model.Region, own model.Ownership, baseline, netZero int) model.Company {
		return model.Company{
			Name:         name,
			Sector:       sector,
			Region:       region,
			Ownership:    own,
			BaselineYear: baseline,
			NetZeroYear:  netZero,
		}
	}
	withInterim := func(c model.Company, year int, pct float64) model.Company {
		c.InterimTargetYear = model.Int(year)
		c.InterimReductionPercent = model.Float(pct)
		return c
	}
	rec := func(name string, year int, s1 float64, s2 *float64, s3 float64) model.EmissionInput {
		return model.EmissionInput{Company: name, Year: year, Scope1: s1, Scope2: s2, Scope3: s3}
	}
	f := model.Float

	return &model.Dataset{
		Companies: []model.Company{
			withInterim(company("Climate Corp", model.SectorEnergy, model.RegionNorthAmerica, model.OwnershipPublic, 2020, 2050), 2030, 50),
			company("Green Energy Co", model.SectorEnergy, model.RegionEurope, model.OwnershipPublic, 2019, 2045),
			company("Solar Dynamics", model.SectorEnergy, model.RegionAsiaPacific, model.OwnershipPrivate, 2020, 2040),
			company("PetroNorth", model.SectorEnergy, model.RegionNorthAmerica, model.OwnershipState, 2018, 2060),
			withInterim(company("Atlas Steel", model.SectorMaterials, model.RegionEurope, model.OwnershipPublic, 2020, 2050), 2030, 30),
			company("Cement Works Ltd", model.SectorMaterials, model.RegionAsiaPacific, model.OwnershipPrivate, 2021, 2055),
			company("Bright Grid Utilities", model.SectorUtilities, model.RegionNorthAmerica, model.OwnershipPublic, 2020, 2045),
			company("CloudScale Inc", model.SectorTechnology, model.RegionNorthAmerica, model.OwnershipPublic, 2020, 2030),
			company("Andes Logistics", model.SectorTransport, model.RegionLatinAmerica, model.OwnershipPrivate, 2020, 2050),
			company("Harbor Capital Corp", model.SectorFinancials, model.RegionEurope, model.OwnershipPublic, 2021, 2040),
		},
		Emissions: []model.EmissionInput{
			rec("Climate Corp", 2020, 100, f(50), 200),
			rec("Climate Corp", 2022, 80, f(40), 150),

			rec("Green Energy Co", 2019, 420, f(130), 900),
			rec("Green Energy Co", 2020, 400, f(120), 880),
			rec("Green Energy Co", 2021, 370, f(110), 860),
			rec("Green Energy Co", 2022, 330, f(95), 820),

			rec("Solar Dynamics", 2020, 35, nil, 140),
			rec("Solar Dynamics", 2021, 31, nil, 150),
			rec("Solar Dynamics", 2022, 28, f(6), 155),

			rec("PetroNorth", 2018, 5200, f(800), 41000),
			rec("PetroNorth", 2020, 5000, f(760), 39500),
			rec("PetroNorth", 2022, 4900, f(700), 38800),

			rec("Atlas Steel", 2020, 2600, f(900), 3100),
			rec("Atlas Steel", 2021, 2500, f(860), 3050),
			rec("Atlas Steel", 2022, 2350, f(800), 2990),

			rec("Cement Works Ltd", 2021, 3400, f(450), 1200),
			rec("Cement Works Ltd", 2022, 3350, nil, 1180),

			rec("Bright Grid Utilities", 2020, 7800, f(150), 2100),
			rec("Bright Grid Utilities", 2021, 7100, f(140), 2050),
			rec("Bright Grid Utilities", 2022, 6300, f(130), 1990),

			rec("CloudScale Inc", 2020, 12, f(310), 540),
			rec("CloudScale Inc", 2021, 11, f(250), 600),
			rec("CloudScale Inc", 2022, 10, f(180), 640),

			rec("Andes Logistics", 2020, 880, f(25), 310),
			rec("Andes Logistics", 2022, 910, nil, 330),

			rec("Harbor Capital Corp", 2021, 2, f(9), 15000),
			rec("Harbor Capital Corp", 2022, 2, f(8), 14200),
		},
	}
}
