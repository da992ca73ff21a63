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

// Package assert provides the small set of assertions used by the tests.
package assert

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Equal fails the test when expected and actual differ.
func Equal(t testing.TB, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if !cmp.Equal(expected, actual) {
		t.Errorf("not equal %s(-expected +actual):\n%s", message(msgAndArgs), cmp.Diff(expected, actual))
	}
}

func NotEqual(t testing.TB, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if cmp.Equal(expected, actual) {
		t.Errorf("should not be equal %s: %v", message(msgAndArgs), actual)
	}
}

// Same fails the test when expected and actual are not the same pointer.
func Same(t testing.TB, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	ev, av := reflect.ValueOf(expected), reflect.ValueOf(actual)
	if ev.Kind() != reflect.Ptr || av.Kind() != reflect.Ptr || ev.Pointer() != av.Pointer() {
		t.Errorf("not the same pointer %s: %p %p", message(msgAndArgs), expected, actual)
	}
}

func Nil(t testing.TB, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if !isNil(object) {
		t.Errorf("expected nil %s, got: %v", message(msgAndArgs), object)
	}
}

func NotNil(t testing.TB, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if isNil(object) {
		t.Errorf("expected not nil %s", message(msgAndArgs))
	}
}

func True(t testing.TB, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	if !value {
		t.Errorf("expected true %s", message(msgAndArgs))
	}
}

func False(t testing.TB, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	if value {
		t.Errorf("expected false %s", message(msgAndArgs))
	}
}

// ErrorIs fails the test when err does not wrap target.
func ErrorIs(t testing.TB, err, target error, msgAndArgs ...interface{}) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("expected error wrapping %q %s, got: %v", target, message(msgAndArgs), err)
	}
}

func isNil(object interface{}) bool {
	if object == nil {
		return true
	}
	v := reflect.ValueOf(object)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}

func message(msgAndArgs []interface{}) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if format, ok := msgAndArgs[0].(string); ok {
		if len(msgAndArgs) == 1 {
			return format
		}
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs...)
}
