package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/market-potential-crawler/internal/clock/system"
	"github.com/JakeFAU/market-potential-crawler/internal/market/estat"
	"github.com/JakeFAU/market-potential-crawler/internal/market/landprice"
	"github.com/JakeFAU/market-potential-crawler/internal/market/reinfolib"
	"github.com/JakeFAU/market-potential-crawler/internal/market/resas"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Sources wires the live clients and the static dataset into a Service. Nil
// or disabled clients are skipped.
type Sources struct {
	RESAS     *resas.Client
	EStat     *estat.Client
	Tables    EStatTables
	LandPrice *landprice.Scraper
	Reinfolib *reinfolib.Client
	Dataset   Dataset
	Clock     Clock
}

// Service builds market reports.
type Service struct {
	src    Sources
	logger *zap.Logger
}

// NewService constructs a Service. A nil Dataset falls back to DemoDataset.
func NewService(src Sources, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if src.Dataset == nil {
		src.Dataset = DemoDataset()
	}
	if src.Clock == nil {
		src.Clock = system.New(system.JST)
	}
	return &Service{src: src, logger: logger}
}

// FetchAll resolves all six categories for loc and derives the potential
// estimate. Categories are resolved one after another; a failing source only
// moves its own chain to the next tier.
func (s *Service) FetchAll(ctx context.Context, loc Location) Report {
	loc = loc.normalized()
	l := newLookup(s, loc)

	report := Report{
		AreaName:     loc.AreaName(),
		Prefecture:   loc.Prefecture,
		City:         loc.City,
		Population:   s.populationChain(l).Resolve(ctx, loc, s.logger),
		Construction: s.constructionChain(l).Resolve(ctx, loc, s.logger),
		Housing:      s.housingChain(l).Resolve(ctx, loc, s.logger),
		LandPrice:    s.landPriceChain().Resolve(ctx, loc, s.logger),
		HomePrices:   s.homePricesChain(l).Resolve(ctx, loc, s.logger),
		Competition:  s.competitionChain(l).Resolve(ctx, loc, s.logger),
	}
	report.Potential = EstimateReport(report)

	s.logger.Info("market report built",
		zap.String("area", report.AreaName),
		zap.String("population_source", report.Population.Source),
		zap.String("level", report.Potential.Level),
	)
	return report
}

// FetchMany builds one report per location, in order.
func (s *Service) FetchMany(ctx context.Context, locs []Location) ([]Report, error) {
	if len(locs) == 0 {
		return nil, ErrNoLocations
	}
	reports := make([]Report, 0, len(locs))
	for _, loc := range locs {
		if err := ctx.Err(); err != nil {
			return reports, fmt.Errorf("market data canceled: %w", err)
		}
		reports = append(reports, s.FetchAll(ctx, loc))
	}
	return reports, nil
}

// lookup memoizes per-location identifiers shared by several sources within a
// single FetchAll call.
type lookup struct {
	s   *Service
	loc Location

	pref   Prefecture
	prefOK bool

	cityDone bool
	city     resas.City
	cityErr  error

	areaDone bool
	areaCode string
	areaErr  error
}

func newLookup(s *Service, loc Location) *lookup {
	p, ok := LookupPrefecture(loc.Prefecture)
	return &lookup{s: s, loc: loc, pref: p, prefOK: ok}
}

func (l *lookup) prefCode() (int, error) {
	if !l.prefOK {
		return 0, fmt.Errorf("unknown prefecture %q", l.loc.Prefecture)
	}
	code, err := strconv.Atoi(l.pref.Code)
	if err != nil {
		return 0, fmt.Errorf("prefecture code %q: %w", l.pref.Code, err)
	}
	return code, nil
}

// resasCity finds the municipality in the RESAS city list.
func (l *lookup) resasCity(ctx context.Context) (resas.City, error) {
	if l.cityDone {
		return l.city, l.cityErr
	}
	l.cityDone = true
	code, err := l.prefCode()
	if err != nil {
		l.cityErr = err
		return resas.City{}, err
	}
	cities, err := l.s.src.RESAS.Cities(ctx, code)
	if err != nil {
		l.cityErr = err
		return resas.City{}, err
	}
	l.city, l.cityErr = resas.FindCity(cities, CleanCityName(l.loc.City))
	return l.city, l.cityErr
}

// areaCodeFor resolves the five-digit municipal code, asking RESAS first and
// the dataset second.
func (l *lookup) areaCodeFor(ctx context.Context) (string, error) {
	if l.areaDone {
		return l.areaCode, l.areaErr
	}
	l.areaDone = true
	if l.s.src.RESAS.Enabled() && l.prefOK {
		if city, err := l.resasCity(ctx); err == nil && city.CityCode != "" {
			l.areaCode = city.CityCode
			return l.areaCode, nil
		}
	}
	if code, ok := l.s.src.Dataset.AreaCode(l.loc); ok {
		l.areaCode = code
		return code, nil
	}
	l.areaErr = fmt.Errorf("no municipal area code for %s", l.loc.AreaName())
	return "", l.areaErr
}
