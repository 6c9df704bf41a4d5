package taxonomy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Pointer fields distinguish an absent or null key from an empty value.
type rawDocument struct {
	Groups *[]rawGroup `json:"groups"`
}

type rawGroup struct {
	Name     *string      `json:"name"`
	Entities *[]rawEntity `json:"entities"`
}

type rawEntity struct {
	Name   *string   `json:"name"`
	Values *[]*string `json:"values"`
}

// LoadFromJSON builds a model from a taxonomy document:
//
//	{"groups": [{"name": "color", "entities": [{"name": "RED", "values": ["red", "crimson"]}]}]}
//
// Missing, null or wrongly typed keys fail the whole document with
// ErrCodeMalformedTaxonomy; no partial model is returned. Unknown keys are
// ignored and a leading UTF-8 byte order mark is tolerated.
func LoadFromJSON(document []byte) (*EntityModel, error) {
	document = bytes.TrimPrefix(document, utf8BOM)

	var doc rawDocument
	if err := json.Unmarshal(document, &doc); err != nil {
		return nil, errors.MalformedTaxonomy(err.Error()).WithCause(err)
	}
	if doc.Groups == nil {
		return nil, errors.MalformedTaxonomy("groups: missing")
	}

	groups := make([]EntityGroup, 0, len(*doc.Groups))
	for gi, rg := range *doc.Groups {
		if rg.Name == nil {
			return nil, errors.MalformedTaxonomy(fmt.Sprintf("groups[%d].name: missing", gi))
		}
		if rg.Entities == nil {
			return nil, errors.MalformedTaxonomy(fmt.Sprintf("groups[%d].entities: missing", gi))
		}
		entities := make([]Entity, 0, len(*rg.Entities))
		for ei, re := range *rg.Entities {
			if re.Name == nil {
				return nil, errors.MalformedTaxonomy(fmt.Sprintf("groups[%d].entities[%d].name: missing", gi, ei))
			}
			if re.Values == nil {
				return nil, errors.MalformedTaxonomy(fmt.Sprintf("groups[%d].entities[%d].values: missing", gi, ei))
			}
			values := make([]string, 0, len(*re.Values))
			for vi, v := range *re.Values {
				if v == nil {
					return nil, errors.MalformedTaxonomy(fmt.Sprintf("groups[%d].entities[%d].values[%d]: null", gi, ei, vi))
				}
				values = append(values, *v)
			}
			entities = append(entities, NewEntity(*re.Name, values...))
		}
		groups = append(groups, NewEntityGroup(*rg.Name, entities...))
	}
	return NewEntityModel(groups...), nil
}

// LoadFile reads the taxonomy at path. A file that does not exist yields the
// empty model and no error.
func LoadFile(path string) (*EntityModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeMalformedTaxonomy, "cannot read entity taxonomy").WithDetail(path)
	}
	return LoadFromJSON(data)
}

// LoadFileOrEmpty is LoadFile for process startup: any error is logged and
// replaced by the empty model.
func LoadFileOrEmpty(path string, logger logging.Logger) *EntityModel {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	model, err := LoadFile(path)
	if err != nil {
		logger.Warn("entity taxonomy unusable, continuing without taxonomy entities",
			logging.String("path", path), logging.Err(err))
		return Empty()
	}
	stats := model.Stats()
	logger.Info("entity taxonomy loaded",
		logging.String("path", path),
		logging.Int("groups", stats.Groups),
		logging.Int("entities", stats.Entities),
		logging.Int("values", stats.Values))
	return model
}

//Personal.AI order the ending
