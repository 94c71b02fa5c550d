package reporting

import "encoding/json"

// RenderJSON renders the report as indented JSON. Decimals are emitted as strings.
func RenderJSON(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
