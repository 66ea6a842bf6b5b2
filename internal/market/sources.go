package market

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/JakeFAU/market-potential-crawler/internal/market/estat"
	"github.com/JakeFAU/market-potential-crawler/internal/market/reinfolib"
)

// Source names used in chains and metrics.
const (
	SourceRESAS     = "resas"
	SourceEStat     = "estat"
	SourceTochidai  = "tochidai"
	SourceReinfolib = "reinfolib"
	SourceDataset   = "dataset"
)

// Default e-Stat table IDs.
const (
	DefaultPopulationStatsID   = "0003448233"
	DefaultConstructionStatsID = "0003426741"
)

// personsPerHousehold converts a population into an estimated household count.
const personsPerHousehold = 2.1

// EStatTables names the statistics tables and cat01 codes read from e-Stat.
// A table with an empty ID or empty required code is skipped.
type EStatTables struct {
	PopulationID            string
	PopulationTotalCode     string
	PopulationHouseholdCode string

	ConstructionID        string
	ConstructionOwnerCode string
	ConstructionTotalCode string

	HousingID                string
	HousingOwnershipCode     string
	HousingVacancyCode       string
	HousingRentalVacancyCode string

	CompetitionID        string
	CompetitionCountCode string
}

// failed logs a source error and converts it into a Miss.
func failed[T any](logger *zap.Logger, category, source string, loc Location, err error) Outcome[T] {
	logger.Warn("market source failed",
		zap.String("category", category),
		zap.String("source", source),
		zap.String("area", loc.AreaName()),
		zap.Error(err),
	)
	return MissErr[T](err)
}

// datasetAttempt adapts one Dataset accessor into the last live-free tier.
func datasetAttempt[T any](get func(Location) (T, bool)) Attempt[T] {
	return Attempt[T]{
		Source: SourceDataset,
		Fetch: func(_ context.Context, loc Location) Outcome[T] {
			if v, ok := get(loc); ok {
				return Hit(v)
			}
			return Miss[T]("no entry for %s", loc.AreaName())
		},
	}
}

// estatValues fetches a configured table for the location's area code.
func (s *Service) estatValues(ctx context.Context, l *lookup, statsID string, codes ...string) ([]estat.Value, string, error) {
	if !s.src.EStat.Enabled() {
		return nil, "app id not configured", nil
	}
	if statsID == "" {
		return nil, "table not configured", nil
	}
	for _, c := range codes {
		if c == "" {
			return nil, "category code not configured", nil
		}
	}
	area, err := l.areaCodeFor(ctx)
	if err != nil {
		return nil, err.Error(), nil
	}
	values, err := s.src.EStat.StatsData(ctx, statsID, area)
	if err != nil {
		return nil, "", err
	}
	if len(values) == 0 {
		return nil, fmt.Sprintf("no data for area %s", area), nil
	}
	return values, "", nil
}

func (s *Service) populationChain(l *lookup) Chain[Population] {
	return Chain[Population]{
		Category: CategoryPopulation,
		Attempts: []Attempt[Population]{
			{Source: SourceRESAS, Fetch: func(ctx context.Context, loc Location) Outcome[Population] {
				return s.populationFromRESAS(ctx, l, loc)
			}},
			{Source: SourceEStat, Fetch: func(ctx context.Context, loc Location) Outcome[Population] {
				return s.populationFromEStat(ctx, l, loc)
			}},
			datasetAttempt(s.src.Dataset.Population),
		},
		Sentinel: func(source string) Population { return Population{Source: source} },
	}
}

func (s *Service) populationFromRESAS(ctx context.Context, l *lookup, loc Location) Outcome[Population] {
	if !s.src.RESAS.Enabled() {
		return Miss[Population]("api key not configured")
	}
	prefCode, err := l.prefCode()
	if err != nil {
		return MissErr[Population](err)
	}
	city, err := l.resasCity(ctx)
	if err != nil {
		return failed[Population](s.logger, CategoryPopulation, SourceRESAS, loc, err)
	}
	comp, err := s.src.RESAS.PopulationComposition(ctx, prefCode, city.CityCode)
	if err != nil {
		return failed[Population](s.logger, CategoryPopulation, SourceRESAS, loc, err)
	}
	total, ok := comp.Latest("総人口")
	if !ok || total.Value <= 0 {
		return Miss[Population]("no total population series")
	}
	t := float64(total.Value)
	pop := Population{
		TotalPopulation: intPtr(total.Value),
		Households:      intPtr(roundHalfEven(t / personsPerHousehold)),
		Source:          fmt.Sprintf("RESAS API (%d年)", total.Year),
	}
	if working, ok := comp.Latest("生産年齢人口"); ok {
		// Ages 30 to 45 are estimated as 30% of the working-age population.
		pop.Age3045Pct = floatPtr(round1(float64(working.Value) * 0.30 / t * 100))
		pop.WorkingAgePct = floatPtr(round1(float64(working.Value) / t * 100))
	}
	if elderly, ok := comp.Latest("老年人口"); ok {
		pop.ElderlyPct = floatPtr(round1(float64(elderly.Value) / t * 100))
	}
	return Hit(pop)
}

func (s *Service) populationFromEStat(ctx context.Context, l *lookup, loc Location) Outcome[Population] {
	t := s.src.Tables
	values, reason, err := s.estatValues(ctx, l, t.PopulationID, t.PopulationTotalCode)
	if err != nil {
		return failed[Population](s.logger, CategoryPopulation, SourceEStat, loc, err)
	}
	if reason != "" {
		return Miss[Population]("%s", reason)
	}
	cell, total, ok := estat.Latest(values, t.PopulationTotalCode)
	if !ok || total <= 0 {
		return Miss[Population]("no total population cell")
	}
	households := roundHalfEven(total / personsPerHousehold)
	if t.PopulationHouseholdCode != "" {
		if _, hh, ok := estat.Latest(values, t.PopulationHouseholdCode); ok && hh > 0 {
			households = roundHalfEven(hh)
		}
	}
	return Hit(Population{
		TotalPopulation: intPtr(roundHalfEven(total)),
		Households:      intPtr(households),
		Source:          fmt.Sprintf("e-Stat API (%s年)", estat.Year(cell.Time)),
	})
}

func (s *Service) constructionChain(l *lookup) Chain[Construction] {
	return Chain[Construction]{
		Category: CategoryConstruction,
		Attempts: []Attempt[Construction]{
			{Source: SourceEStat, Fetch: func(ctx context.Context, loc Location) Outcome[Construction] {
				return s.constructionFromEStat(ctx, l, loc)
			}},
			datasetAttempt(s.src.Dataset.Construction),
		},
		Sentinel: func(source string) Construction { return Construction{Source: source} },
	}
}

func (s *Service) constructionFromEStat(ctx context.Context, l *lookup, loc Location) Outcome[Construction] {
	t := s.src.Tables
	values, reason, err := s.estatValues(ctx, l, t.ConstructionID, t.ConstructionOwnerCode)
	if err != nil {
		return failed[Construction](s.logger, CategoryConstruction, SourceEStat, loc, err)
	}
	if reason != "" {
		return Miss[Construction]("%s", reason)
	}
	cell, owner, ok := estat.Latest(values, t.ConstructionOwnerCode)
	if !ok {
		return Miss[Construction]("no owner-occupied starts cell")
	}
	out := Construction{
		OwnerOccupied: intPtr(roundHalfEven(owner)),
		Year:          stringPtr(estat.Year(cell.Time) + "年"),
		Source:        "e-Stat 建築着工統計",
	}
	if t.ConstructionTotalCode != "" {
		series := estat.Series(values, t.ConstructionTotalCode)
		if n := len(series); n > 0 {
			latest, _ := series[n-1].Float()
			out.Total = intPtr(roundHalfEven(latest))
			if n > 1 {
				if prev, _ := series[n-2].Float(); prev > 0 {
					out.YoYChange = stringPtr(fmt.Sprintf("前年比 %+.1f%%", (latest-prev)/prev*100))
				}
			}
		}
	}
	return Hit(out)
}

func (s *Service) housingChain(l *lookup) Chain[Housing] {
	return Chain[Housing]{
		Category: CategoryHousing,
		Attempts: []Attempt[Housing]{
			{Source: SourceEStat, Fetch: func(ctx context.Context, loc Location) Outcome[Housing] {
				return s.housingFromEStat(ctx, l, loc)
			}},
			datasetAttempt(s.src.Dataset.Housing),
		},
		Sentinel: func(source string) Housing { return Housing{Source: source} },
	}
}

func (s *Service) housingFromEStat(ctx context.Context, l *lookup, loc Location) Outcome[Housing] {
	t := s.src.Tables
	values, reason, err := s.estatValues(ctx, l, t.HousingID, t.HousingOwnershipCode)
	if err != nil {
		return failed[Housing](s.logger, CategoryHousing, SourceEStat, loc, err)
	}
	if reason != "" {
		return Miss[Housing]("%s", reason)
	}
	cell, ownership, ok := estat.Latest(values, t.HousingOwnershipCode)
	if !ok {
		return Miss[Housing]("no ownership rate cell")
	}
	out := Housing{
		OwnershipRate: floatPtr(round1(ownership)),
		Source:        fmt.Sprintf("e-Stat 住宅・土地統計調査 (%s年)", estat.Year(cell.Time)),
	}
	if v, ok := optionalLatest(values, t.HousingVacancyCode); ok {
		out.VacancyRate = floatPtr(round1(v))
	}
	if v, ok := optionalLatest(values, t.HousingRentalVacancyCode); ok {
		out.RentalVacancy = floatPtr(round1(v))
	}
	return Hit(out)
}

func (s *Service) landPriceChain() Chain[LandPrice] {
	return Chain[LandPrice]{
		Category: CategoryLandPrice,
		Attempts: []Attempt[LandPrice]{
			{Source: SourceTochidai, Fetch: s.landPriceFromTochidai},
			datasetAttempt(s.src.Dataset.LandPrice),
		},
		Sentinel: func(source string) LandPrice { return LandPrice{Source: source} },
	}
}

func (s *Service) landPriceFromTochidai(ctx context.Context, loc Location) Outcome[LandPrice] {
	pref, ok := LookupPrefecture(loc.Prefecture)
	if !ok || pref.Slug == "" {
		return Miss[LandPrice]("unsupported region")
	}
	if s.src.LandPrice == nil {
		return Miss[LandPrice]("scraper not configured")
	}
	prices, err := s.src.LandPrice.Lookup(ctx, pref.Slug, CleanCityName(loc.City))
	if err != nil {
		return failed[LandPrice](s.logger, CategoryLandPrice, SourceTochidai, loc, err)
	}
	return Hit(LandPrice{
		ResidentialTsubo: prices.ResidentialTsubo,
		ResidentialSqm:   prices.ResidentialSqm,
		YoYChange:        prices.YoYChange,
		Source:           "tochidai.info",
	})
}

func (s *Service) homePricesChain(l *lookup) Chain[HomePrices] {
	return Chain[HomePrices]{
		Category: CategoryHomePrices,
		Attempts: []Attempt[HomePrices]{
			{Source: SourceReinfolib, Fetch: func(ctx context.Context, loc Location) Outcome[HomePrices] {
				return s.homePricesFromReinfolib(ctx, l, loc)
			}},
			datasetAttempt(s.src.Dataset.HomePrices),
		},
		Sentinel: func(source string) HomePrices { return HomePrices{Source: source} },
	}
}

func (s *Service) homePricesFromReinfolib(ctx context.Context, l *lookup, loc Location) Outcome[HomePrices] {
	if !s.src.Reinfolib.Enabled() {
		return Miss[HomePrices]("api key not configured")
	}
	if !l.prefOK {
		return Miss[HomePrices]("unknown prefecture %q", loc.Prefecture)
	}
	area, err := l.areaCodeFor(ctx)
	if err != nil {
		return MissErr[HomePrices](err)
	}
	// The previous calendar year is the latest complete one.
	year := s.src.Clock.Now().Year() - 1
	txs, err := s.src.Reinfolib.Transactions(ctx, year, l.pref.Code, area)
	if err != nil {
		return failed[HomePrices](s.logger, CategoryHomePrices, SourceReinfolib, loc, err)
	}
	summary, ok := reinfolib.Summarize(txs)
	if !ok {
		return Miss[HomePrices]("no land-and-building transactions in %d", year)
	}
	return Hit(HomePrices{
		AvgPrice:       intPtr(summary.AvgPrice),
		PriceRange:     stringPtr(summary.PriceRange()),
		RequiredIncome: intPtr(summary.RequiredIncome),
		Source:         fmt.Sprintf("不動産情報ライブラリ (%d年, %d件)", year, summary.Count),
	})
}

func (s *Service) competitionChain(l *lookup) Chain[Competition] {
	return Chain[Competition]{
		Category: CategoryCompetition,
		Attempts: []Attempt[Competition]{
			{Source: SourceEStat, Fetch: func(ctx context.Context, loc Location) Outcome[Competition] {
				return s.competitionFromEStat(ctx, l, loc)
			}},
			datasetAttempt(s.src.Dataset.Competition),
		},
		Sentinel: func(source string) Competition { return Competition{Source: source} },
	}
}

func (s *Service) competitionFromEStat(ctx context.Context, l *lookup, loc Location) Outcome[Competition] {
	t := s.src.Tables
	values, reason, err := s.estatValues(ctx, l, t.CompetitionID, t.CompetitionCountCode)
	if err != nil {
		return failed[Competition](s.logger, CategoryCompetition, SourceEStat, loc, err)
	}
	if reason != "" {
		return Miss[Competition]("%s", reason)
	}
	cell, count, ok := estat.Latest(values, t.CompetitionCountCode)
	if !ok || count <= 0 {
		return Miss[Competition]("no establishment count cell")
	}
	return Hit(Competition{
		TotalCompanies: intPtr(int(math.Round(count))),
		Source:         fmt.Sprintf("e-Stat 経済センサス (%s年)", estat.Year(cell.Time)),
	})
}

func optionalLatest(values []estat.Value, code string) (float64, bool) {
	if code == "" {
		return 0, false
	}
	_, v, ok := estat.Latest(values, code)
	return v, ok
}
