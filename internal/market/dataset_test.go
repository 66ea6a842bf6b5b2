package market

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDemoDataset(t *testing.T) {
	d := DemoDataset()
	tempaku := Location{Prefecture: "愛知県", City: "天白区"}

	pop, ok := d.Population(tempaku)
	require.True(t, ok)
	require.Equal(t, 162506, *pop.TotalPopulation)
	require.Equal(t, 80962, *pop.Households)
	require.InDelta(t, 19.5, *pop.Age3045Pct, 1e-9)

	con, ok := d.Construction(tempaku)
	require.True(t, ok)
	require.Equal(t, 107, *con.OwnerOccupied)
	require.Equal(t, "2023年", *con.Year)

	land, ok := d.LandPrice(tempaku)
	require.True(t, ok)
	require.Equal(t, "+3.53%", *land.YoYChange)

	home, ok := d.HomePrices(tempaku)
	require.True(t, ok)
	require.Equal(t, "3,000万〜7,200万円", *home.PriceRange)

	code, ok := d.AreaCode(Location{Prefecture: " 愛知県 ", City: "天白区"})
	require.True(t, ok)
	require.Equal(t, "23116", code)

	nagoya := Location{Prefecture: "愛知県", City: "名古屋市"}
	_, ok = d.Population(nagoya)
	require.True(t, ok)
	_, ok = d.Housing(nagoya)
	require.False(t, ok, "nagoya only carries population figures")

	_, ok = d.Competition(Location{Prefecture: "東京都", City: "渋谷区"})
	require.False(t, ok)
}

func TestLoadDatasetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "areas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
areas:
  - prefecture: 東京都
    city: 渋谷区
    area_code: "13113"
    competition:
      total_companies: 42
      source: test fixture
`), 0o600))

	d, err := LoadDatasetFile(path)
	require.NoError(t, err)
	comp, ok := d.Competition(Location{Prefecture: "東京都", City: "渋谷区"})
	require.True(t, ok)
	require.Equal(t, 42, *comp.TotalCompanies)
	require.Nil(t, comp.LocalBuilders)

	_, ok = d.Population(Location{Prefecture: "愛知県", City: "天白区"})
	require.False(t, ok, "a loaded file replaces the demo table")
}

func TestParseDatasetRejectsIncompleteEntries(t *testing.T) {
	_, err := ParseDataset([]byte("areas:\n  - prefecture: 東京都\n"))
	require.ErrorContains(t, err, "prefecture and city are required")

	_, err = LoadDatasetFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLookupPrefecture(t *testing.T) {
	p, ok := LookupPrefecture("愛知県")
	require.True(t, ok)
	require.Equal(t, "23", p.Code)
	require.Equal(t, "aichi", p.Slug)

	_, ok = LookupPrefecture("愛知")
	require.False(t, ok)
	require.Len(t, prefectures, 47)
}

func TestCleanCityName(t *testing.T) {
	require.Equal(t, "天白", CleanCityName("天白区"))
	require.Equal(t, "名古屋", CleanCityName("名古屋市"))
	require.Equal(t, "名古屋天白", CleanCityName("名古屋市天白区"))
}

func TestDatasetLookupNormalizesWidthAndSpaces(t *testing.T) {
	ds := DemoDataset()
	pop, ok := ds.Population(Location{Prefecture: " 愛知県", City: "天白区　"})
	require.True(t, ok)
	require.NotNil(t, pop.TotalPopulation)

	require.Equal(t, Location{Prefecture: "愛知県", City: "ABC町"},
		Location{Prefecture: "愛知 県", City: "ＡＢＣ町"}.normalized())
	require.Equal(t, "カタカナ市", normalizeName("ｶﾀｶﾅ市"))
}
