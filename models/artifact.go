package models

import (
	"fmt"
	"sort"
)

// ArtifactKey identifies one detected table within a pipeline run.
type ArtifactKey string

func NewArtifactKey(page, table int) ArtifactKey {
	return ArtifactKey(fmt.Sprintf("page_%d_table_%d", page, table))
}

// ArtifactRecord holds the public paths of every file generated for one
// table. Fields are filled in as the pipeline steps complete.
type ArtifactRecord struct {
	Main      string `json:"main,omitempty"`
	HTML      string `json:"html,omitempty"`
	CSV       string `json:"csv,omitempty"`
	XLSX      string `json:"xlsx,omitempty"`
	Structure string `json:"struct,omitempty"`
	Boxes     string `json:"boxes,omitempty"`
}

// ArtifactField names a path slot of an ArtifactRecord.
type ArtifactField string

const (
	FieldMain      ArtifactField = "main"
	FieldHTML      ArtifactField = "html"
	FieldCSV       ArtifactField = "csv"
	FieldXLSX      ArtifactField = "xlsx"
	FieldStructure ArtifactField = "struct"
	FieldBoxes     ArtifactField = "boxes"
)

// Set assigns a path to the named field. An empty value never clears a field
// that is already populated.
func (r *ArtifactRecord) Set(field ArtifactField, path string) error {
	if path == "" {
		return nil
	}
	switch field {
	case FieldMain:
		r.Main = path
	case FieldHTML:
		r.HTML = path
	case FieldCSV:
		r.CSV = path
	case FieldXLSX:
		r.XLSX = path
	case FieldStructure:
		r.Structure = path
	case FieldBoxes:
		r.Boxes = path
	default:
		return fmt.Errorf("unknown artifact field %q", field)
	}
	return nil
}

// ArtifactIndex is the key -> record mapping written to results.json.
type ArtifactIndex map[ArtifactKey]*ArtifactRecord

// Keys returns the index keys sorted by page then table number.
func (idx ArtifactIndex) Keys() []ArtifactKey {
	keys := make([]ArtifactKey, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, ti := keys[i].parts()
		pj, tj := keys[j].parts()
		if pi != pj {
			return pi < pj
		}
		if ti != tj {
			return ti < tj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (k ArtifactKey) parts() (page, table int) {
	fmt.Sscanf(string(k), "page_%d_table_%d", &page, &table)
	return page, table
}
