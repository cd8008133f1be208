package mapping

import (
	"encoding/json"
	"strings"

	"github.com/edicraft/edipipe/edierrors"
	"go.yaml.in/yaml/v4"
)

// Load parses a Mapping from its textual declarative form. The
// extension (".json" vs anything else, defaulting to YAML) selects
// the codec; both round-trip losslessly through Save since Rule,
// Cond, and Transform carry their discriminator as a plain "type"
// field rather than a custom encoding.
func Load(filename string, data []byte) (*Mapping, error) {
	var m Mapping
	var err error
	if strings.HasSuffix(filename, ".json") {
		err = json.Unmarshal(data, &m)
	} else {
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, &edierrors.MappingError{Details: "failed to parse mapping " + filename, Cause: err}
	}
	return &m, nil
}

// Save serializes m back to its textual form, using the same
// extension-selected codec as Load.
func Save(filename string, m *Mapping) ([]byte, error) {
	var data []byte
	var err error
	if strings.HasSuffix(filename, ".json") {
		data, err = json.MarshalIndent(m, "", "  ")
	} else {
		data, err = yaml.Marshal(m)
	}
	if err != nil {
		return nil, &edierrors.MappingError{Details: "failed to serialize mapping " + filename, Cause: err}
	}
	return data, nil
}
