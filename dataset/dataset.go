/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package dataset holds the country catalog that rules are evaluated
// against and that draw pools are built from.
//
// The figures are rounded and curated so that the mandatory rule tiers
// (population, GDP and continent) never claim the same country, and so that
// every board leaves enough neutral countries to fill a pool.
package dataset

type Country struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Capital    string `json:"capital"`
	Population int64  `json:"population"`
	GDPUSD     int64  `json:"gdp_usd"`
	Continent  string `json:"continent"`
}

const (
	Africa       = "Africa"
	Asia         = "Asia"
	Europe       = "Europe"
	NorthAmerica = "North America"
	Oceania      = "Oceania"
	SouthAmerica = "South America"
)

const (
	million int64 = 1_000_000
	billion int64 = 1_000_000_000
)

var countries = []Country{
	// Most populous
	{"US", "United States", "Washington", 335 * million, 27_360 * billion, NorthAmerica},
	{"CN", "China", "Beijing", 1_410 * million, 17_790 * billion, Asia},
	{"IN", "India", "New Delhi", 1_430 * million, 3_550 * billion, Asia},
	{"ID", "Indonesia", "Jakarta", 278 * million, 1_370 * billion, Asia},
	{"PK", "Pakistan", "Islamabad", 240 * million, 338 * billion, Asia},
	{"NG", "Nigeria", "Abuja", 224 * million, 363 * billion, Africa},
	{"BR", "Brazil", "Brasília", 216 * million, 2_170 * billion, SouthAmerica},

	// Smallest economies
	{"SL", "Sierra Leone", "Freetown", 8_600_000, 4 * billion, Africa},
	{"RW", "Rwanda", "Kigali", 14 * million, 14 * billion, Africa},
	{"MN", "Mongolia", "Ulaanbaatar", 3_400_000, 20 * billion, Asia},
	{"NA", "Namibia", "Windhoek", 2_600_000, 13 * billion, Africa},
	{"BT", "Bhutan", "Thimphu", 780_000, 3 * billion, Asia},
	{"FJ", "Fiji", "Suva", 930_000, 6 * billion, Oceania},
	{"JM", "Jamaica", "Kingston", 2_800_000, 19 * billion, NorthAmerica},

	// Europe
	{"FR", "France", "Paris", 68 * million, 3_030 * billion, Europe},
	{"DE", "Germany", "Berlin", 84 * million, 4_460 * billion, Europe},
	{"GB", "United Kingdom", "London", 68 * million, 3_340 * billion, Europe},
	{"IT", "Italy", "Rome", 59 * million, 2_250 * billion, Europe},
	{"ES", "Spain", "Madrid", 48 * million, 1_580 * billion, Europe},
	{"NL", "Netherlands", "Amsterdam", 18 * million, 1_120 * billion, Europe},
	{"PL", "Poland", "Warsaw", 37 * million, 811 * billion, Europe},
	{"SE", "Sweden", "Stockholm", 10_500_000, 593 * billion, Europe},
	{"PT", "Portugal", "Lisbon", 10_400_000, 287 * billion, Europe},
	{"GR", "Greece", "Athens", 10_400_000, 238 * billion, Europe},
	{"IE", "Ireland", "Dublin", 5_300_000, 545 * billion, Europe},
	{"NO", "Norway", "Oslo", 5_500_000, 485 * billion, Europe},

	// Americas
	{"CA", "Canada", "Ottawa", 40 * million, 2_140 * billion, NorthAmerica},
	{"MX", "Mexico", "Mexico City", 128 * million, 1_790 * billion, NorthAmerica},
	{"AR", "Argentina", "Buenos Aires", 46 * million, 640 * billion, SouthAmerica},
	{"CL", "Chile", "Santiago", 19_600_000, 335 * billion, SouthAmerica},
	{"CO", "Colombia", "Bogotá", 52 * million, 364 * billion, SouthAmerica},
	{"PE", "Peru", "Lima", 34 * million, 268 * billion, SouthAmerica},
	{"UY", "Uruguay", "Montevideo", 3_400_000, 77 * billion, SouthAmerica},
	{"EC", "Ecuador", "Quito", 18 * million, 119 * billion, SouthAmerica},

	// Oceania
	{"AU", "Australia", "Canberra", 26_600_000, 1_720 * billion, Oceania},
	{"NZ", "New Zealand", "Wellington", 5_200_000, 253 * billion, Oceania},

	// Asia
	{"JP", "Japan", "Tokyo", 124 * million, 4_210 * billion, Asia},
	{"KR", "South Korea", "Seoul", 51_700_000, 1_710 * billion, Asia},
	{"TH", "Thailand", "Bangkok", 71_800_000, 515 * billion, Asia},
	{"VN", "Vietnam", "Hanoi", 98_900_000, 430 * billion, Asia},
	{"PH", "Philippines", "Manila", 117 * million, 437 * billion, Asia},
	{"MY", "Malaysia", "Kuala Lumpur", 34 * million, 400 * billion, Asia},
	{"SG", "Singapore", "Singapore", 5_900_000, 501 * billion, Asia},
	{"BD", "Bangladesh", "Dhaka", 173 * million, 437 * billion, Asia},
	{"SA", "Saudi Arabia", "Riyadh", 36_900_000, 1_070 * billion, Asia},
	{"AE", "United Arab Emirates", "Abu Dhabi", 9_500_000, 504 * billion, Asia},
	{"IL", "Israel", "Jerusalem", 9_700_000, 510 * billion, Asia},
	{"IQ", "Iraq", "Baghdad", 45_500_000, 250 * billion, Asia},
	{"QA", "Qatar", "Doha", 2_700_000, 235 * billion, Asia},
	{"KZ", "Kazakhstan", "Astana", 19_800_000, 262 * billion, Asia},
	{"OM", "Oman", "Muscat", 4_600_000, 105 * billion, Asia},
	{"TR", "Türkiye", "Ankara", 85 * million, 1_110 * billion, Asia},

	// Africa
	{"EG", "Egypt", "Cairo", 112 * million, 396 * billion, Africa},
	{"MA", "Morocco", "Rabat", 37_800_000, 141 * billion, Africa},
	{"DZ", "Algeria", "Algiers", 45_600_000, 239 * billion, Africa},
	{"ZA", "South Africa", "Pretoria", 60 * million, 377 * billion, Africa},
	{"KE", "Kenya", "Nairobi", 55 * million, 108 * billion, Africa},
	{"ET", "Ethiopia", "Addis Ababa", 126 * million, 163 * billion, Africa},
	{"GH", "Ghana", "Accra", 34 * million, 76 * billion, Africa},
	{"TZ", "Tanzania", "Dodoma", 67 * million, 79 * billion, Africa},
	{"AO", "Angola", "Luanda", 36_700_000, 85 * billion, Africa},
	{"CI", "Côte d'Ivoire", "Yamoussoukro", 28_900_000, 79 * billion, Africa},
}

var byCode = func() map[string]int {
	m := make(map[string]int, len(countries))
	for i, c := range countries {
		m[c.Code] = i
	}
	return m
}()

// Countries returns a copy of the catalog in its canonical order.
func Countries() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)

	return out
}

// ByCode looks up a country by its ISO 3166-1 alpha-2 code.
func ByCode(code string) (Country, bool) {
	i, ok := byCode[code]
	if !ok {
		return Country{}, false
	}

	return countries[i], true
}

// Filter returns the countries of catalog satisfying keep, in catalog order.
func Filter(catalog []Country, keep func(Country) bool) []Country {
	var out []Country
	for _, c := range catalog {
		if keep(c) {
			out = append(out, c)
		}
	}

	return out
}
