package configstore

import (
	"strconv"
	"strings"
)

var boolWords = map[string]bool{
	"true": true, "yes": true, "1": true,
	"false": false, "no": false, "0": false,
}

// decodeScalar applies the tabular decoding rules shared by TabularSheet
// and RemoteKV: booleans parse case-insensitively from {true,false,yes,
// no,1,0}; a key prefixed with "!int" decodes its value as an integer;
// everything else that parses as a float64 becomes a float64; anything
// else remains a string. An empty value means "absent" and is signalled
// by the caller skipping the key entirely, not by decodeScalar.
func decodeScalar(key, value string) (string, interface{}) {
	if strings.HasPrefix(key, "!int") {
		key = strings.TrimPrefix(key, "!int")
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return key, n
		}
		return key, value
	}
	lower := strings.ToLower(strings.TrimSpace(value))
	if b, ok := boolWords[lower]; ok {
		return key, b
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return key, f
	}
	return key, value
}

// rowsToObjectConfigs implements sheet_data_to_dict: given (name, key,
// value) triples, groups them by name into ObjectConfig, pulling the
// literal key "type" out as the Type field and everything else into
// Config. A row whose value decodes to the marker case of key=="config"
// value=="inherit" is recorded as the literal-inherit marker.
func rowsToObjectConfigs(rows [][3]string) map[string]ObjectConfig {
	out := make(map[string]ObjectConfig)
	for _, row := range rows {
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(row[1]))
		value := strings.TrimSpace(row[2])
		if value == "" {
			continue
		}
		oc, ok := out[name]
		if !ok {
			oc = ObjectConfig{Config: make(map[string]interface{})}
		}
		if key == "type" {
			oc.Type = value
			out[name] = oc
			continue
		}
		if key == "config" && value == "inherit" {
			oc.Config["inherit"] = "inherit"
			out[name] = oc
			continue
		}
		decodedKey, decodedValue := decodeScalar(key, value)
		oc.Config[decodedKey] = decodedValue
		out[name] = oc
	}
	return out
}
