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

package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every error raised by the engine wraps one of them.
var (
	// ErrConfiguration is an invalid setting, markup attribute or text binding.
	ErrConfiguration = errors.New("configuration error")
	// ErrStructural is a broken instance tree or template structure.
	ErrStructural = errors.New("structural error")
	// ErrTransport is a failed or timed out type fetch.
	ErrTransport = errors.New("transport error")
)

// NewConfigurationError formats a ConfigurationError.
func NewConfigurationError(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, a...))
}

// NewStructuralError formats a StructuralError.
func NewStructuralError(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrStructural, fmt.Sprintf(format, a...))
}

// NewTransportError wraps cause as a TransportError of typeName.
func NewTransportError(typeName string, cause error) error {
	return fmt.Errorf("%w: type=%s: %v", ErrTransport, typeName, cause)
}

// ErrUnknownInstance is returned for lookups of ids not in the instance tree.
func ErrUnknownInstance(id string) error {
	return NewStructuralError("instance not found. id=%s", id)
}
