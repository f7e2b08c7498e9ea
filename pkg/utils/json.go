package utils

import (
	"encoding/json"
)

// MustMarshalJSON marshals v and panics on failure. Only use it for values
// whose shape is known to encode, like the service's own payload structs.
func MustMarshalJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic("failed to marshal JSON: " + err.Error())
	}
	return data
}
