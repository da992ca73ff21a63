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

// Package js runs behavior scripts of type sources with the goja engine.
//
// A script body is compiled once per type as the body of a strict-mode function
// taking a single parameter. Every call runs in a fresh goja runtime, so
// instances never share script state, and is interrupted once the configured
// maximum execution time is exceeded. Functions the script hands back to Go
// (handlers) keep running in the runtime of their call.
package js

import (
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// Script is a compiled behavior script.
type Script struct {
	name             string
	program          *goja.Program
	maxExecutionTime time.Duration
}

// Compile wraps body into `(function(param){ "use strict"; body })` and compiles it.
// name only labels stack traces.
func Compile(name, param, body string, maxExecutionTime time.Duration) (*Script, error) {
	src := "(function(" + param + ") {\n\t\t//" + name + "\n\t\t\"use strict\";\n" + body + "\n})"
	program, err := goja.Compile(name, src, true)
	if err != nil {
		return nil, err
	}
	return &Script{name: name, program: program, maxExecutionTime: maxExecutionTime}, nil
}

// Name returns the label of the script.
func (s *Script) Name() string {
	return s.name
}

// Call runs the script in a new runtime with arg as its parameter. vars are set
// as globals before the call. Go values are exposed with uncapitalized member
// names, so a Go method SetText is seen as setText.
func (s *Script) Call(arg interface{}, vars map[string]interface{}) (err error) {
	defer func() {
		if caught := recover(); caught != nil {
			err = fmt.Errorf("%s", caught)
		}
	}()
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	for k, v := range vars {
		if err := vm.Set(k, v); err != nil {
			return err
		}
	}
	timer := s.startTimeout(vm)
	defer func() {
		s.stopTimeout(timer)
		vm.ClearInterrupt()
	}()

	fnValue, err := vm.RunProgram(s.program)
	if err != nil {
		return err
	}
	f, ok := goja.AssertFunction(fnValue)
	if !ok {
		return errors.New(s.name + " is not a function")
	}
	_, err = f(goja.Undefined(), vm.ToValue(arg))
	return err
}

// startTimeout interrupts vm once the maximum execution time is exceeded.
// Returns nil if timeout is not configured
func (s *Script) startTimeout(vm *goja.Runtime) *time.Timer {
	if s.maxExecutionTime <= 0 {
		return nil
	}
	return time.AfterFunc(s.maxExecutionTime, func() {
		vm.Interrupt("execution timeout")
	})
}

func (s *Script) stopTimeout(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
