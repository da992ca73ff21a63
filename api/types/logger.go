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
	"log"
	"os"
)

// Debug channels.
const (
	DebugNone = "none"
	DebugAll  = "all"
	// ChannelTypes dumps the type registry after a construction.
	ChannelTypes = "TYPES"
	// ChannelInst dumps the instance tree after a construction.
	ChannelInst = "INST"
	// ChannelLoad traces fetches and waiter lists.
	ChannelLoad = "LOAD"
	// ChannelText traces text bindings and language switches.
	ChannelText = "TEXT"
)

type Logger interface {
	Printf(format string, v ...interface{})
}

var _ Logger = &log.Logger{}

// DefaultLogger returns a `Logger` writing to stdout.
func DefaultLogger() *log.Logger {
	return log.New(os.Stdout, "[zoox] ", log.LstdFlags)
}

func NewLogger(custom Logger) Logger {
	if custom != nil {
		return custom
	}
	return DefaultLogger()
}

// DebugEnabled reports whether channel is switched on by the debug mode.
func DebugEnabled(mode, channel string) bool {
	return mode == DebugAll || (mode != "" && mode != DebugNone && mode == channel)
}
