/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pack

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

type schemaKind string

const (
	layerSchema    schemaKind = "layer"
	documentSchema schemaKind = "document"
)

var (
	schemaOnce sync.Once
	schemas    map[schemaKind]*gojsonschema.Schema
	schemaErr  error
)

// compiled returns the validator rooted at the named definition.
func compiled(kind schemaKind) (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var doc map[string]any
		if schemaErr = json.Unmarshal(schemaJSON, &doc); schemaErr != nil {
			return
		}
		schemas = map[schemaKind]*gojsonschema.Schema{}
		for _, k := range []schemaKind{layerSchema, documentSchema} {
			root := map[string]any{
				"$schema":     doc["$schema"],
				"definitions": doc["definitions"],
				"$ref":        "#/definitions/" + string(k),
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(root))
			if err != nil {
				schemaErr = fmt.Errorf("compile %s schema: %w", k, err)
				return
			}
			schemas[k] = s
		}
	})
	if schemaErr != nil {
		return nil, schemaErr
	}
	return schemas[kind], nil
}

func validate(kind schemaKind, raw []byte) error {
	s, err := compiled(kind)
	if err != nil {
		return err
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("metadata: %s", strings.Join(msgs, "; "))
}
