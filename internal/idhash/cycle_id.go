package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeCycleID computes a deterministic cycle_id using SHA256.
// Formula: SHA256(params|ce_instrument|pe_instrument|entry_time_unix_ms|sequence)
// params is the strategy parameter fingerprint, so runs with other settings
// never share ids. Returns hex-encoded hash (64 characters).
func ComputeCycleID(
	params string,
	ceInstrument string,
	peInstrument string,
	entryTimeMs int64,
	sequence int,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d",
		params,
		ceInstrument,
		peInstrument,
		entryTimeMs,
		sequence,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
