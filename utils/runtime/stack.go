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

// Package runtime formats call stacks for panic reports.
package runtime

import (
	"fmt"
	"runtime"
	"strings"
)

// maxFrames bounds the number of reported frames.
const maxFrames = 20

// Stack returns the call stack of its caller's caller, one "file:line function"
// entry per line. Called from a deferred recover, it includes the frames that
// panicked.
func Stack() string {
	pc := make([]uintptr, maxFrames)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	var build strings.Builder
	for {
		f, more := frames.Next()
		build.WriteString(fmt.Sprintf(" %s:%d %s\n", f.File, f.Line, f.Function))
		if !more {
			break
		}
	}
	return build.String()
}
