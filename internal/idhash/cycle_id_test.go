package idhash

import (
	"testing"
)

func TestComputeCycleID(t *testing.T) {
	tests := []struct {
		name         string
		params       string
		ceInstrument string
		peInstrument string
		entryTimeMs  int64
		sequence     int
		wantLen      int // hash length should be 64
	}{
		{
			name:         "first cycle",
			params:       "sl=0.75|tgt=1.25|csl=0.9|cutoff=14h0m0s|reentry=true|max=0|align=1m0s",
			ceInstrument: "BANKNIFTY24JAN48000CE",
			peInstrument: "BANKNIFTY24JAN48000PE",
			entryTimeMs:  1704687300000,
			sequence:     0,
			wantLen:      64,
		},
		{
			name:         "re-entry cycle",
			params:       "sl=0.8|tgt=1.3|csl=0.85|cutoff=13h30m0s|reentry=true|max=2|align=1m0s",
			ceInstrument: "NIFTY24JAN21500CE",
			peInstrument: "NIFTY24JAN21500PE",
			entryTimeMs:  1704699000000,
			sequence:     1,
			wantLen:      64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCycleID(tt.params, tt.ceInstrument, tt.peInstrument, tt.entryTimeMs, tt.sequence)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeCycleID() length = %d, want %d", len(got), tt.wantLen)
			}

			got2 := ComputeCycleID(tt.params, tt.ceInstrument, tt.peInstrument, tt.entryTimeMs, tt.sequence)
			if got != got2 {
				t.Errorf("ComputeCycleID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeCycleID_DistinctInputs(t *testing.T) {
	base := ComputeCycleID("P", "CE", "PE", 1704687300000, 0)

	variants := map[string]string{
		"ce":       ComputeCycleID("P", "CE2", "PE", 1704687300000, 0),
		"pe":       ComputeCycleID("P", "CE", "PE2", 1704687300000, 0),
		"time":     ComputeCycleID("P", "CE", "PE", 1704687360000, 0),
		"sequence": ComputeCycleID("P", "CE", "PE", 1704687300000, 1),
		"params":   ComputeCycleID("P2", "CE", "PE", 1704687300000, 0),
	}

	for name, id := range variants {
		if id == base {
			t.Errorf("changing %s did not change the cycle id", name)
		}
	}
}
