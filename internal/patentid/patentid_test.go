package patentid

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		country     string
		wantID      string
		wantCountry string
	}{
		{"plain US", "US123", "US", "US123", "US"},
		{"EP suffix on KR number", "KR10-1234567-EP2345678", "KR", "EP2345678", "EP"},
		{"EP suffix on JP number", "JP5678901-EP1111111", "JP", "EP1111111", "EP"},
		{"bare EP suffix", "1234567-EP", "KR", "EP", "EP"},
		{"KR hyphens stripped", "KR10-1234567", "KR", "KR101234567", "KR"},
		{"KR marker inside", "X-KR10-55", "KR", "XKR1055", "KR"},
		{"leading marker ignored", "-EP123", "DE", "-EP123", "DE"},
		{"whitespace trimmed", "  US999 ", "US", "US999", "US"},
		{"repeated marker keeps last", "1-EP2-EP3", "KR", "EP3", "EP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, country := Normalize(tt.raw, tt.country)
			if id != tt.wantID {
				t.Errorf("Normalize(%q) id = %q, want %q", tt.raw, id, tt.wantID)
			}
			if country != tt.wantCountry {
				t.Errorf("Normalize(%q) country = %q, want %q", tt.raw, country, tt.wantCountry)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"US123", "KR10-1234567-EP2345678", "KR10-1234567", "CN101234567A", "1234567-EP", "",
		"1-EP2-EP3", "KR10-1-EP2-EP3", "-EP1-EP2",
	}

	for _, raw := range inputs {
		once, c1 := Normalize(raw, "XX")
		twice, c2 := Normalize(once, c1)
		if once != twice || c1 != c2 {
			t.Errorf("Normalize not idempotent for %q: (%q,%q) then (%q,%q)", raw, once, c1, twice, c2)
		}
	}
}

func TestNormalize_EPSubstring(t *testing.T) {
	raw := "CN100000001-EP3000000"
	id, country := Normalize(raw, "CN")
	if id != raw[len("CN100000001-"):] {
		t.Errorf("expected substring after marker, got %q", id)
	}
	if country != "EP" {
		t.Errorf("expected EP, got %q", country)
	}
}

func TestLookupKeys(t *testing.T) {
	keys := LookupKeys("KR10-1234567-EP2345678")
	if len(keys) != 2 || keys[0] != "EP2345678" || keys[1] != "KR10-1234567-EP2345678" {
		t.Errorf("unexpected keys: %v", keys)
	}

	keys = LookupKeys("US123")
	if len(keys) != 1 || keys[0] != "US123" {
		t.Errorf("unexpected keys: %v", keys)
	}

	if keys := LookupKeys("   "); keys != nil {
		t.Errorf("expected nil for blank input, got %v", keys)
	}
}

func TestDedup(t *testing.T) {
	got := Dedup([]string{"A", "B", "A", "", " C ", "B"})
	want := []string{"A", "B", "C"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
