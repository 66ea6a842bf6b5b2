package market

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Estimator defaults applied when an input is absent.
const (
	DefaultAge3045Pct    = 20.0
	DefaultOwnershipRate = 50.0
	// ConversionRate is the share of target rental households expected to
	// build a home in a given year.
	ConversionRate = 0.015
)

// Potential levels, chosen by per-company annual converts.
const (
	LevelInsufficient = "insufficient_data"
	LevelHigh         = "highly_competitive"
	LevelModerate     = "moderate_competition"
	LevelOpportunity  = "opportunity"
)

const (
	insightInsufficient = "データ不足のため試算できません。RESAS/e-Stat APIキーを設定してください。"
	insightHigh         = "この商圏は競争が激しく、1社あたりの年間獲得見込みは%s棟です。" +
		"差別化戦略（施工事例の充実、SNS発信、口コミ促進）が不可欠です。" +
		"特にWebでの施工事例公開とGoogleマップの口コミ強化を推奨します。"
	insightModerate = "1社あたり年間%s棟の獲得が見込まれる、適度な競争環境です。" +
		"地域密着型のマーケティング（チラシ+SNS併用）が効果的です。"
	insightOpportunity = "比較的チャンスのある市場です。" +
		"積極的な営業活動とDigitalマーケティングの組み合わせを推奨します。"
)

// Estimate derives the potential-customer section from a report's
// population, construction, housing and competition figures. Home prices and
// land prices do not participate. Estimate is pure.
func Estimate(pop Population, con Construction, housing Housing, comp Competition) Potential {
	if !positive(pop.TotalPopulation) || !positive(pop.Households) {
		return Potential{
			AnnualConverts: copyInt(con.OwnerOccupied),
			Level:          LevelInsufficient,
			Insight:        insightInsufficient,
		}
	}

	agePct := DefaultAge3045Pct
	if pop.Age3045Pct != nil {
		agePct = *pop.Age3045Pct
	}
	ownership := DefaultOwnershipRate
	if housing.OwnershipRate != nil {
		ownership = *housing.OwnershipRate
	}

	target := roundHalfEven(float64(*pop.Households) * agePct / 100)
	rentalRate := (100 - ownership) / 100
	rental := roundHalfEven(float64(target) * rentalRate)

	annual := roundHalfEven(float64(rental) * ConversionRate)
	if con.OwnerOccupied != nil {
		annual = *con.OwnerOccupied
	}

	var perCompany *float64
	if positive(comp.TotalCompanies) {
		perCompany = floatPtr(round2(float64(annual) / float64(*comp.TotalCompanies)))
	}

	level, insight := selectInsight(perCompany)
	return Potential{
		TargetHouseholds: intPtr(target),
		RentalHouseholds: intPtr(rental),
		AnnualConverts:   intPtr(annual),
		PerCompany:       perCompany,
		Level:            level,
		Insight:          insight,
	}
}

// EstimateReport is Estimate applied to a report's own categories.
func EstimateReport(r Report) Potential {
	return Estimate(r.Population, r.Construction, r.Housing, r.Competition)
}

func selectInsight(perCompany *float64) (string, string) {
	switch {
	case perCompany == nil:
		return LevelOpportunity, insightOpportunity
	case *perCompany < 2:
		return LevelHigh, fmt.Sprintf(insightHigh, formatAmount(*perCompany))
	case *perCompany < 5:
		return LevelModerate, fmt.Sprintf(insightModerate, formatAmount(*perCompany))
	default:
		return LevelOpportunity, insightOpportunity
	}
}

// formatAmount prints at most two decimals without trailing zeros, keeping
// one decimal on whole values so 3 reads "3.0".
func formatAmount(v float64) string {
	s := strconv.FormatFloat(round2(v), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func positive(v *int) bool {
	return v != nil && *v > 0
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	return intPtr(*v)
}

// roundHalfEven rounds to the nearest integer, ties to even.
func roundHalfEven(v float64) int {
	return int(math.RoundToEven(v))
}

func round1(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
