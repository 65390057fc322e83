package datasource

import (
	"encoding/json"
	"testing"
)

func TestParseKline(t *testing.T) {
	row := []json.RawMessage{
		json.RawMessage(`1700000000000`),
		json.RawMessage(`"100.5"`),
		json.RawMessage(`"101.0"`),
		json.RawMessage(`"99.5"`),
		json.RawMessage(`"100.8"`),
		json.RawMessage(`"1234.5"`),
	}

	candle, err := parseKline(row)
	if err != nil {
		t.Fatalf("parseKline() = %v", err)
	}
	if candle.Open != 100.5 || candle.High != 101.0 || candle.Low != 99.5 ||
		candle.Close != 100.8 || candle.Volume != 1234.5 {
		t.Errorf("parseKline() = %+v, mismatched fields", candle)
	}
	if candle.Timestamp.UnixMilli() != 1700000000000 {
		t.Errorf("Timestamp = %v, want open time preserved", candle.Timestamp)
	}
}

func TestParseKlineMalformed(t *testing.T) {
	row := []json.RawMessage{
		json.RawMessage(`1700000000000`),
		json.RawMessage(`"not-a-number"`),
		json.RawMessage(`"101.0"`),
		json.RawMessage(`"99.5"`),
		json.RawMessage(`"100.8"`),
		json.RawMessage(`"1234.5"`),
	}

	if _, err := parseKline(row); err == nil {
		t.Error("parseKline() = nil error, want parse failure")
	}
}

func TestParseLevels(t *testing.T) {
	raw := [][2]string{
		{"100.5", "2.0"},
		{"bad", "1.0"},
		{"99.5", "3.5"},
	}

	levels := parseLevels(raw)
	if len(levels) != 2 {
		t.Fatalf("parseLevels() kept %d levels, want 2 (malformed rows skipped)", len(levels))
	}
	if levels[0].Price != 100.5 || levels[0].Size != 2.0 {
		t.Errorf("levels[0] = %+v", levels[0])
	}
}
