package resas

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/cities", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "secret" {
			_, _ = w.Write([]byte(`{"statusCode":"403","message":"Forbidden.","description":""}`))
			return
		}
		assert.Equal(t, "23", r.URL.Query().Get("prefCode"))
		_, _ = w.Write([]byte(`{"message":null,"result":[
			{"prefCode":23,"cityCode":"23100","cityName":"名古屋市","bigCityFlag":"2"},
			{"prefCode":23,"cityCode":"23116","cityName":"名古屋市天白区","bigCityFlag":"1"}
		]}`))
	})
	mux.HandleFunc("/api/v1/population/composition/perYear", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "23116", r.URL.Query().Get("cityCode"))
		_, _ = w.Write([]byte(`{"message":null,"result":{"boundaryYear":2020,"data":[
			{"label":"総人口","data":[{"year":2015,"value":164000},{"year":2020,"value":162506},{"year":2025,"value":159000}]},
			{"label":"生産年齢人口","data":[{"year":2020,"value":104654}]}
		]}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCitiesAndFindCity(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{APIKey: "secret", BaseURL: srv.URL})
	require.True(t, c.Enabled())

	cities, err := c.Cities(context.Background(), 23)
	require.NoError(t, err)
	require.Len(t, cities, 2)

	city, err := FindCity(cities, "天白")
	require.NoError(t, err)
	require.Equal(t, "23116", city.CityCode)

	_, err = FindCity(cities, "豊田")
	require.True(t, errors.Is(err, ErrCityNotFound))
}

func TestPopulationCompositionLatestSkipsProjections(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{APIKey: "secret", BaseURL: srv.URL})

	comp, err := c.PopulationComposition(context.Background(), 23, "23116")
	require.NoError(t, err)

	total, ok := comp.Latest("総人口")
	require.True(t, ok)
	require.Equal(t, YearValue{Year: 2020, Value: 162506}, total)

	_, ok = comp.Latest("老年人口")
	require.False(t, ok)
}

func TestErrorInBody(t *testing.T) {
	srv := newTestServer(t)
	c := New(Config{APIKey: "wrong", BaseURL: srv.URL})

	_, err := c.Cities(context.Background(), 23)
	require.ErrorContains(t, err, "Forbidden.")
}

func TestEnabled(t *testing.T) {
	require.False(t, New(Config{}).Enabled())
	var nilClient *Client
	require.False(t, nilClient.Enabled())
}
