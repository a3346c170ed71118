package memory

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema of a stored UserRecord document.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(&UserRecord{})
	s.Title = "User conversation record"
	return json.MarshalIndent(s, "", "  ")
}
