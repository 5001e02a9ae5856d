package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/hevcstat/internal/model"
)

func entry(names ...string) model.MetadataEntry {
	if names == nil {
		names = []string{}
	}
	return model.MetadataEntry{Inventors: names}
}

func TestMerge_Disjoint(t *testing.T) {
	a := Metadata{"US1": entry("Alice")}
	b := Metadata{"US2": entry("Bob")}

	merged := Merge(a, b)
	assert.Len(t, merged, 2)
	assert.Equal(t, []string{"Alice"}, merged["US1"].Inventors)
	assert.Equal(t, []string{"Bob"}, merged["US2"].Inventors)

	// Inputs are not modified
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}

func TestMerge_IncomingWins(t *testing.T) {
	a := Metadata{"US1": entry("Alice"), "US2": entry()}
	b := Metadata{"US2": entry("Carol")}

	merged := Merge(a, b)
	assert.Equal(t, []string{"Carol"}, merged["US2"].Inventors)
	assert.Equal(t, []string{"Alice"}, merged["US1"].Inventors)
}

func TestMissing(t *testing.T) {
	m := Metadata{"US123": entry()}

	assert.Equal(t, []string{"EP234567"}, Missing([]string{"US123", "EP234567", "EP234567"}, m))
	assert.Empty(t, Missing([]string{"US123"}, m))
	assert.Empty(t, Missing(nil, m))
}

func TestMetadataFile_LoadMissingFile(t *testing.T) {
	f := NewMetadataFile(filepath.Join(t.TempDir(), "absent.json"))

	m, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestMetadataFile_LoadLegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patent.json")
	legacy := `{
    "US123": {"inventor_name": "[]"},
    "US456": {"inventor_name": "[{\"inventor_name\": \"Jane Doe\"}, {\"inventor_name\": \"John Roe\"}]", "title": "Video coding"},
    "EP789": {"inventor_name": ["Kim Lee"]}
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	m, err := NewMetadataFile(path).Load()
	require.NoError(t, err)
	require.Len(t, m, 3)
	assert.Empty(t, m["US123"].Inventors)
	assert.NotNil(t, m["US123"].Inventors)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, m["US456"].Inventors)
	assert.Equal(t, "Video coding", m["US456"].Title)
	assert.Equal(t, []string{"Kim Lee"}, m["EP789"].Inventors)
}

func TestMetadataFile_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patent.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewMetadataFile(path).Load()
	assert.Error(t, err)
}

func TestMetadataFile_PersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "patent.json")
	f := NewMetadataFile(path)

	in := Metadata{
		"US123":    {Inventors: nil},
		"EP234567": entry("Alice", "Bob"),
	}
	require.NoError(t, f.Persist(in))
	assert.Nil(t, in["US123"].Inventors, "Persist must not modify its input")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    \"EP234567\"")
	assert.Contains(t, string(data), `"inventor_name": []`)

	out, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, out["EP234567"].Inventors)
	assert.Empty(t, out["US123"].Inventors)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestLoadAll_LaterFilesWin(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "patent.json")
	second := filepath.Join(dir, "patent_ext.json")

	require.NoError(t, NewMetadataFile(first).Persist(Metadata{"EP1": entry(), "US1": entry("A")}))
	require.NoError(t, NewMetadataFile(second).Persist(Metadata{"EP1": entry("B")}))

	m, err := LoadAll(first, second, filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, m["EP1"].Inventors)
	assert.Equal(t, []string{"A"}, m["US1"].Inventors)
	assert.Len(t, m, 2)
	assert.Contains(t, m, "EP1")
	assert.Contains(t, m, "US1")
}

func TestMetadataFile_PersistKeepsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patent.json")
	legacy := `{
    "US1": {
        "inventor_name": "[{\"inventor_name\": \"Ann Lee\"}]",
        "assignee_name_orig": "[{\"assignee_name\": \"X Corp\"}]",
        "pub_date": "20150602",
        "priority_date": {"date": "20120101", "country": "US"}
    }
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))
	f := NewMetadataFile(path)

	m, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann Lee"}, m["US1"].Inventors)

	require.NoError(t, f.Persist(Merge(m, Metadata{"US2": entry("Bob")})))

	var raw map[string]map[string]json.RawMessage
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))

	us1 := raw["US1"]
	assert.JSONEq(t, `["Ann Lee"]`, string(us1["inventor_name"]))
	assert.JSONEq(t, `"[{\"assignee_name\": \"X Corp\"}]"`, string(us1["assignee_name_orig"]))
	assert.JSONEq(t, `"20150602"`, string(us1["pub_date"]))
	assert.JSONEq(t, `{"date": "20120101", "country": "US"}`, string(us1["priority_date"]))
	assert.JSONEq(t, `["Bob"]`, string(raw["US2"]["inventor_name"]))
	assert.NotContains(t, raw["US2"], "pub_date")
}

func TestMetadataEntry_ExtraDoesNotShadowKnownFields(t *testing.T) {
	e := model.MetadataEntry{
		Inventors: []string{"Ann"},
		Title:     "New title",
		Extra:     map[string]json.RawMessage{"title": json.RawMessage(`"Old title"`), "pub_date": json.RawMessage(`"2015"`)},
	}
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"inventor_name": ["Ann"], "title": "New title", "pub_date": "2015"}`, string(data))
}
