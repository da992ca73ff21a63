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
	"strings"
	"time"

	"github.com/rulego/zoox/utils/maps"
	"github.com/rulego/zoox/utils/str"
)

// DefaultLang is used when no language list is configured.
const DefaultLang = "en"

// Config defines the configuration of an engine.
type Config struct {
	// Path is the base location of type sources. It always ends with a separator.
	Path string
	// Debug is "none", "all" or the name of one debug channel.
	Debug string
	// Langs is the ordered list of supported languages, defaulting to ["en"].
	Langs []string
	// Lang is the initial language, defaulting to Langs[0].
	Lang string
	// Loader produces the busy indicator shown while a construction is running.
	Loader func() BusyIndicator
	// Init is the entry hook, invoked with the page root handle once the page is built.
	Init HookFunc
	// Hooks are behavior hooks keyed by type name.
	Hooks map[string]HookFunc
	// ScriptsEnabled allows the <script> block of type sources to run.
	ScriptsEnabled bool
	// ScriptMaxExecutionTime bounds one behavior script call, defaulting to 2000 milliseconds.
	ScriptMaxExecutionTime time.Duration
	// FetchTimeout bounds one fetch attempt, defaulting to 30 seconds.
	FetchTimeout time.Duration
	// FetchRetries is the number of extra attempts after a failed fetch.
	FetchRetries int
	// Fetcher provides type sources. The engine defaults to a file fetcher on Path.
	Fetcher Fetcher
	// Pool runs fetches. If not configured, the engine starts its own worker pool.
	Pool Pool
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
}

// Settings is the serializable part of Config, as found in a bootstrap map or file.
type Settings struct {
	Path         string        `mapstructure:"path" yaml:"path"`
	Debug        string        `mapstructure:"debug" yaml:"debug"`
	Langs        []string      `mapstructure:"langs" yaml:"langs"`
	Lang         string        `mapstructure:"lang" yaml:"lang"`
	Scripts      *bool         `mapstructure:"scripts" yaml:"scripts"`
	FetchTimeout time.Duration `mapstructure:"fetchTimeout" yaml:"fetchTimeout"`
	FetchRetries int           `mapstructure:"fetchRetries" yaml:"fetchRetries"`
}

// DecodeSettings decodes bootstrap settings from a generic map.
func DecodeSettings(input map[string]interface{}) (Settings, error) {
	var s Settings
	if err := maps.Map2StructWeak(input, &s); err != nil {
		return s, NewConfigurationError("invalid settings: %v", err)
	}
	return s, nil
}

// Options converts the settings to config options. Zero values keep defaults.
func (s Settings) Options() []Option {
	var opts []Option
	if s.Path != "" {
		opts = append(opts, WithPath(s.Path))
	}
	if s.Debug != "" {
		opts = append(opts, WithDebug(s.Debug))
	}
	if len(s.Langs) > 0 {
		opts = append(opts, WithLangs(s.Langs...))
	}
	if s.Lang != "" {
		opts = append(opts, WithLang(s.Lang))
	}
	if s.Scripts != nil {
		opts = append(opts, WithScripts(*s.Scripts))
	}
	if s.FetchTimeout > 0 {
		opts = append(opts, WithFetchTimeout(s.FetchTimeout))
	}
	if s.FetchRetries > 0 {
		opts = append(opts, WithFetchRetries(s.FetchRetries))
	}
	return opts
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		Debug:                  DebugNone,
		Langs:                  []string{DefaultLang},
		Hooks:                  make(map[string]HookFunc),
		ScriptsEnabled:         true,
		ScriptMaxExecutionTime: time.Millisecond * 2000,
		FetchTimeout:           time.Second * 30,
		Logger:                 DefaultLogger(),
	}
	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}

// Validate checks the language settings and fills the initial language.
func (c *Config) Validate() error {
	if len(c.Langs) == 0 {
		c.Langs = []string{DefaultLang}
	}
	seen := make(map[string]bool, len(c.Langs))
	for _, l := range c.Langs {
		if l == "" {
			return NewConfigurationError("empty language code")
		}
		if seen[l] {
			return NewConfigurationError("duplicate language %q", l)
		}
		seen[l] = true
	}
	if c.Lang == "" {
		c.Lang = c.Langs[0]
	} else if !seen[c.Lang] {
		return NewConfigurationError("language %q is unknown", c.Lang)
	}
	if c.Logger == nil {
		c.Logger = DefaultLogger()
	}
	c.Path = NormalizePath(c.Path)
	return nil
}

// HasLang reports whether lang is configured.
func (c *Config) HasLang(lang string) bool {
	return str.Contains(c.Langs, lang)
}

// Debugf logs to channel when the debug mode enables it.
func (c *Config) Debugf(channel string, format string, v ...interface{}) {
	if c.Logger != nil && DebugEnabled(c.Debug, channel) {
		c.Logger.Printf(channel+" "+format, v...)
	}
}

// NormalizePath makes p end with a separator so that it can prefix a file name.
func NormalizePath(p string) string {
	if p == "" || strings.HasSuffix(p, "/") || strings.HasSuffix(p, "\\") {
		return p
	}
	return p + "/"
}
