package export

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/odds-cli/internal/model"
)

// MappingsDocument is the on-disk form of one competition's mappings.
type MappingsDocument struct {
	Competition string                   `yaml:"competition"`
	ExportedAt  time.Time                `yaml:"exported_at,omitempty"`
	Matches     []model.MatchNameMapping `yaml:"matches"`
	Teams       []model.TeamMapping      `yaml:"teams"`
}

// WriteMappings encodes doc as YAML.
func WriteMappings(w io.Writer, doc MappingsDocument) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "yaml: encode mappings")
	}
	return eris.Wrap(enc.Close(), "yaml: flush mappings")
}

// ReadMappings decodes a mappings document. Every entry is stamped with the
// document's competition, and entries missing either side are rejected.
func ReadMappings(r io.Reader) (MappingsDocument, error) {
	var doc MappingsDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return MappingsDocument{}, eris.Wrap(err, "yaml: decode mappings")
	}
	if doc.Competition == "" {
		return MappingsDocument{}, eris.New("yaml: mappings document has no competition")
	}

	for i := range doc.Matches {
		m := &doc.Matches[i]
		if m.NoisyMatchName == "" || m.CleanMatchName == "" {
			return MappingsDocument{}, eris.Errorf("yaml: match mapping %d is incomplete", i)
		}
		m.Competition = doc.Competition
	}
	for i := range doc.Teams {
		t := &doc.Teams[i]
		if t.NoisyTeam == "" || t.CleanTeam == "" {
			return MappingsDocument{}, eris.Errorf("yaml: team mapping %d is incomplete", i)
		}
		t.Competition = doc.Competition
	}
	return doc, nil
}
