/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed elements.schema.json
var elementsSchema []byte

// Schema returns the JSON schema of a serialized element list.
func Schema() []byte { return append([]byte(nil), elementsSchema...) }

// DecodeElements parses a JSON element list as supplied by a host. The document is first
// checked against the embedded schema, then against the list invariants.
// Both failure kinds wrap ErrContract.
func DecodeElements(data []byte) ([]Element, error) {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(elementsSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContract, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrContract, strings.Join(msgs, "; "))
	}
	var list []Element
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContract, err)
	}
	if err := Validate(list); err != nil {
		return nil, err
	}
	return list, nil
}

// EncodeElements serializes a list in the same shape DecodeElements accepts.
func EncodeElements(list []Element) ([]byte, error) {
	if list == nil {
		list = []Element{}
	}
	return json.MarshalIndent(list, "", "  ")
}
