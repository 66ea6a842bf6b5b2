package market

import (
	"errors"
	"strings"

	"golang.org/x/text/width"
)

// ErrNoLocations is returned when a market-data request names no location.
var ErrNoLocations = errors.New("at least one location is required")

// Category names, used for chain labels and metrics.
const (
	CategoryPopulation   = "population"
	CategoryConstruction = "construction"
	CategoryHousing      = "housing"
	CategoryLandPrice    = "land_price"
	CategoryHomePrices   = "home_prices"
	CategoryCompetition  = "competition"
)

// Location identifies a municipality by prefecture and city (or ward) name.
type Location struct {
	Prefecture string `json:"prefecture" yaml:"prefecture"`
	City       string `json:"city" yaml:"city"`
}

// AreaName is the display name used in reports.
func (l Location) AreaName() string {
	return l.Prefecture + " " + l.City
}

func (l Location) normalized() Location {
	return Location{
		Prefecture: normalizeName(l.Prefecture),
		City:       normalizeName(l.City),
	}
}

// normalizeName folds full-width and half-width forms and drops whitespace,
// so "名古屋市　天白区" and "名古屋市天白区" name the same place.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(width.Fold.String(s)), "")
}

// Population holds demographic figures. Absent values serialize as null.
type Population struct {
	TotalPopulation *int     `json:"total_population" yaml:"total_population"`
	Households      *int     `json:"households" yaml:"households"`
	Age3045Pct      *float64 `json:"age_30_45_pct" yaml:"age_30_45_pct"`
	ElderlyPct      *float64 `json:"elderly_pct" yaml:"elderly_pct"`
	WorkingAgePct   *float64 `json:"working_age_pct" yaml:"working_age_pct"`
	Source          string   `json:"source" yaml:"source"`
}

// Construction holds new residential construction starts.
type Construction struct {
	OwnerOccupied *int    `json:"owner_occupied" yaml:"owner_occupied"`
	Total         *int    `json:"total" yaml:"total"`
	YoYChange     *string `json:"yoy_change" yaml:"yoy_change"`
	Year          *string `json:"year" yaml:"year"`
	Source        string  `json:"source" yaml:"source"`
}

// Housing holds ownership and vacancy rates in percent.
type Housing struct {
	OwnershipRate *float64 `json:"ownership_rate" yaml:"ownership_rate"`
	VacancyRate   *float64 `json:"vacancy_rate" yaml:"vacancy_rate"`
	RentalVacancy *float64 `json:"rental_vacancy" yaml:"rental_vacancy"`
	Source        string   `json:"source" yaml:"source"`
}

// LandPrice holds land prices in yen.
type LandPrice struct {
	ResidentialTsubo *int    `json:"residential_tsubo" yaml:"residential_tsubo"`
	ResidentialSqm   *int    `json:"residential_sqm" yaml:"residential_sqm"`
	CommercialSqm    *int    `json:"commercial_sqm" yaml:"commercial_sqm"`
	YoYChange        *string `json:"yoy_change" yaml:"yoy_change"`
	Source           string  `json:"source" yaml:"source"`
}

// HomePrices holds new home prices. AvgPrice and RequiredIncome are in 万円.
type HomePrices struct {
	AvgPrice       *int    `json:"avg_price" yaml:"avg_price"`
	PriceRange     *string `json:"price_range" yaml:"price_range"`
	RequiredIncome *int    `json:"required_income" yaml:"required_income"`
	Source         string  `json:"source" yaml:"source"`
}

// Competition holds the number of home builders active in the area.
type Competition struct {
	TotalCompanies *int   `json:"total_companies" yaml:"total_companies"`
	LocalBuilders  *int   `json:"local_builders" yaml:"local_builders"`
	Source         string `json:"source" yaml:"source"`
}

// Potential is derived by Estimate from the other categories.
type Potential struct {
	TargetHouseholds *int     `json:"target_households"`
	RentalHouseholds *int     `json:"rental_households"`
	AnnualConverts   *int     `json:"annual_converts"`
	PerCompany       *float64 `json:"per_company"`
	Level            string   `json:"level"`
	Insight          string   `json:"ai_insight"`
}

// Report is the full market picture for one location.
type Report struct {
	AreaName     string       `json:"area_name"`
	Prefecture   string       `json:"prefecture"`
	City         string       `json:"city"`
	Population   Population   `json:"population"`
	Construction Construction `json:"construction"`
	Housing      Housing      `json:"housing"`
	LandPrice    LandPrice    `json:"land_price"`
	HomePrices   HomePrices   `json:"home_prices"`
	Competition  Competition  `json:"competition"`
	Potential    Potential    `json:"potential"`
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func stringPtr(v string) *string  { return &v }
