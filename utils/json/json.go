/*
 * Copyright 2024 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package json wraps encoding/json with html escaping disabled, for debug dumps
// that carry markup.
package json

import (
	"bytes"
	"encoding/json"
)

// Marshal marshals v to json data without escaping &, < and >.
func Marshal(v interface{}) ([]byte, error) {
	return Marshal2(v, false)
}

// Marshal2 marshals v to json data, escaping &, < and > when escapeHTML is set.
func Marshal2(v interface{}, escapeHTML bool) ([]byte, error) {
	var byteBuf bytes.Buffer
	encoder := json.NewEncoder(&byteBuf)
	encoder.SetEscapeHTML(escapeHTML)
	err := encoder.Encode(v)
	if err == nil && byteBuf.Len() > 0 {
		return byteBuf.Bytes()[:byteBuf.Len()-1], err
	} else {
		return byteBuf.Bytes(), err
	}
}

// MarshalIndent marshals v to indented json data without escaping html.
func MarshalIndent(v interface{}) ([]byte, error) {
	var byteBuf bytes.Buffer
	encoder := json.NewEncoder(&byteBuf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(byteBuf.Bytes(), "\n"), nil
}

// Unmarshal json data to v.
func Unmarshal(b []byte, v interface{}) error {
	return json.Unmarshal(b, v)
}
