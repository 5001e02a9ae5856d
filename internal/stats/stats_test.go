package stats

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/patentid"
)

func record(number, country, licensor, profile string, inventors ...string) *model.PatentRecord {
	id, cty := patentid.Normalize(number, country)
	return &model.PatentRecord{
		RawNumber:  number,
		Number:     id,
		Country:    cty,
		RawCountry: country,
		Licensor:   licensor,
		Profile:    profile,
		Inventors:  inventors,
	}
}

// numbers returns the canonical IDs in table order
func numbers(t model.Table) []string {
	ids := make([]string, 0, len(t))
	for _, r := range t {
		ids = append(ids, r.Number)
	}
	return ids
}

func sampleTable() model.Table {
	return model.Table{
		record("US1", "US", "Alpha", "Main/Main10", "Ann Lee", "Bo Kim"),
		record("US2", "US", "Beta", "Main/Main10", "Ann Lee"),
		record("KR10-1-EP3", "KR", "Alpha", "Scalability", "Cy Park", "Ann Lee", "Bo Kim"),
		record("CN4", "CN", "Gamma", "Optional"),
		record("US5", "US", "Beta", "Multiview", "Dee Moss"),
	}
}

func randomTable(r *rand.Rand, n int) model.Table {
	countries := []string{"US", "EP", "CN", "KR", "JP"}
	licensors := []string{"Alpha", "Beta", "Gamma", "Delta"}
	names := []string{"Ann", "Bo", "Cy", "Dee", "Eve", "Fay"}

	table := make(model.Table, 0, n)
	for i := 0; i < n; i++ {
		var inv []string
		for _, name := range names {
			if r.Intn(4) == 0 {
				inv = append(inv, name)
			}
		}
		table = append(table, record(
			fmt.Sprintf("US%d", i),
			countries[r.Intn(len(countries))],
			licensors[r.Intn(len(licensors))],
			model.Profiles[r.Intn(len(model.Profiles))],
			inv...,
		))
	}
	return table
}

func TestFilter_AllReturnsInput(t *testing.T) {
	table := sampleTable()
	got := Filter(table, model.Query{Profile: model.All, Country: model.All, Licensor: model.All, Inventor: model.All})
	assert.Equal(t, table, got)

	got = Filter(table, model.Query{})
	assert.Equal(t, table, got)
}

func TestFilter_Criteria(t *testing.T) {
	table := sampleTable()

	tests := []struct {
		name  string
		query model.Query
		want  []string
	}{
		{"profile", model.Query{Profile: "Main/Main10"}, []string{"US1", "US2"}},
		{"country derived from EP suffix", model.Query{Country: "EP"}, []string{"EP3"}},
		{"raw KR country no longer matches", model.Query{Country: "KR"}, nil},
		{"licensor", model.Query{Licensor: "Alpha"}, []string{"US1", "EP3"}},
		{"inventor substring", model.Query{Inventor: "Ann"}, []string{"US1", "US2", "EP3"}},
		{"inventor case sensitive", model.Query{Inventor: "ann"}, nil},
		{"inventor sentinel", model.Query{Inventor: model.UnknownInventor}, []string{"CN4"}},
		{"conjunction", model.Query{Profile: "Main/Main10", Licensor: "Beta", Inventor: "Ann"}, []string{"US2"}},
		{"delimiter spanning match", model.Query{Inventor: "Lee; Bo"}, []string{"US1", "EP3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(table, tt.query)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, numbers(got))
		})
	}
}

func TestFilter_SubsetOfProfileFilter(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	table := randomTable(r, 200)

	for i := 0; i < 50; i++ {
		profile := model.Profiles[r.Intn(len(model.Profiles))]
		q := model.Query{
			Profile:  profile,
			Country:  []string{model.All, "US", "EP"}[r.Intn(3)],
			Licensor: []string{model.All, "Alpha", "Beta"}[r.Intn(3)],
			Inventor: []string{model.All, "Ann", "e"}[r.Intn(3)],
		}
		base := map[string]bool{}
		for _, rec := range Filter(table, model.Query{Profile: profile}) {
			base[rec.Number] = true
		}
		for _, rec := range Filter(table, q) {
			assert.True(t, base[rec.Number], "record %s not in profile-only result", rec.Number)
		}
	}
}

func TestAggregate_CountryScenario(t *testing.T) {
	table := model.Table{
		record("US123", "US", "X", "Main/Main10"),
		record("1234567-EP", "KR", "Y", "Main/Main10"),
	}
	assert.Equal(t, []string{"US123", "EP"}, numbers(table))

	rows := Aggregate(table, model.DimensionCountry)
	require.Len(t, rows, 2)
	// Equal counts fall back to value order
	assert.Equal(t, model.AggregationRow{Value: "EP", Count: 1, Ratio: 50, NormalizedRatio: 50}, rows[0])
	assert.Equal(t, model.AggregationRow{Value: "US", Count: 1, Ratio: 50, NormalizedRatio: 50}, rows[1])
}

func TestAggregate_Licensor(t *testing.T) {
	rows := Aggregate(sampleTable(), model.DimensionLicensor)
	require.Len(t, rows, 3)
	assert.Equal(t, "Alpha", rows[0].Value)
	assert.Equal(t, 2, rows[0].Count)
	assert.Equal(t, 40.0, rows[0].Ratio)
	assert.Equal(t, "Beta", rows[1].Value)
	assert.Equal(t, "Gamma", rows[2].Value)
	assert.Equal(t, 20.0, rows[2].Ratio)
}

func TestAggregate_Inventor(t *testing.T) {
	rows := Aggregate(sampleTable(), model.DimensionInventor)

	byName := map[string]model.AggregationRow{}
	for _, row := range rows {
		byName[row.Value] = row
	}

	assert.Equal(t, "Ann Lee", rows[0].Value)
	assert.Equal(t, 3, byName["Ann Lee"].Count)
	assert.Equal(t, 60.0, byName["Ann Lee"].Ratio)
	// 1/2 + 1 + 1/3 = 11/6 of 5 records
	assert.InDelta(t, 36.67, byName["Ann Lee"].NormalizedRatio, 0.001)
	assert.Equal(t, 1, byName[model.UnknownInventor].Count)
	assert.Equal(t, 20.0, byName[model.UnknownInventor].NormalizedRatio)
	assert.Equal(t, 20.0, byName["Dee Moss"].NormalizedRatio)
}

func TestAggregate_DuplicateInventorCountsOnce(t *testing.T) {
	table := model.Table{record("US1", "US", "A", "Optional", "Ann", "Ann")}
	rows := Aggregate(table, model.DimensionInventor)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Count)
	assert.Equal(t, 100.0, rows[0].NormalizedRatio)
}

func TestAggregate_Empty(t *testing.T) {
	for _, dim := range []model.Dimension{model.DimensionCountry, model.DimensionLicensor, model.DimensionInventor} {
		assert.Empty(t, Aggregate(nil, dim))
	}
}

func TestAggregate_Totals(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 30; i++ {
		table := randomTable(r, 1+r.Intn(150))

		for _, dim := range []model.Dimension{model.DimensionCountry, model.DimensionLicensor} {
			rows := Aggregate(table, dim)
			count, ratio := 0, 0.0
			for _, row := range rows {
				count += row.Count
				ratio += row.Ratio
			}
			assert.Equal(t, len(table), count, "count sum for %s", dim)
			assert.InDelta(t, 100.0, ratio, 0.01*float64(len(rows)), "ratio sum for %s", dim)
		}

		rows := Aggregate(table, model.DimensionInventor)
		normalized := 0.0
		for _, row := range rows {
			normalized += row.NormalizedRatio
		}
		assert.InDelta(t, 100.0, normalized, 0.01*float64(len(rows)), "normalized ratio sum")

		for j := 1; j < len(rows); j++ {
			prev, cur := rows[j-1], rows[j]
			assert.True(t, prev.Count > cur.Count || (prev.Count == cur.Count && prev.Value < cur.Value),
				"rows out of order at %d", j)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleTable(), model.DimensionInventor)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 5, s.Unique) // Ann Lee, Bo Kim, Cy Park, Dee Moss, UNKNOWN
}

func TestOptions(t *testing.T) {
	opts := Options(sampleTable())
	assert.Equal(t, []string{"Main/Main10", "Multiview", "Optional", "Scalability"}, opts.Profiles)
	assert.Equal(t, []string{"CN", "EP", "US"}, opts.Countries)
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, opts.Licensors)
}

func TestTop(t *testing.T) {
	rows := Aggregate(sampleTable(), model.DimensionLicensor)
	assert.Len(t, Top(rows, 2), 2)
	assert.Len(t, Top(rows, 0), 3)
	assert.Len(t, Top(rows, 10), 3)
}

func TestWriteCSV(t *testing.T) {
	rows := []model.AggregationRow{
		{Value: "Ann", Count: 2, Ratio: 66.67, NormalizedRatio: 50},
		{Value: "Bo, Jr", Count: 1, Ratio: 33.333, NormalizedRatio: 16.665},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, model.DimensionInventor, rows))
	assert.Equal(t, "Inventor,NumberOfPatents,Ratio(%),Ratio/N(%)\nAnn,2,66.67,50.00\n\"Bo, Jr\",1,33.33,16.66\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, model.DimensionCountry, rows[:1]))
	assert.Equal(t, "Country,NumberOfPatents,Ratio(%)\nAnn,2,66.67\n", buf.String())
}
