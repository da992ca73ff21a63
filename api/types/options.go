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
	"time"
)

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithPath sets the base location of type sources.
func WithPath(path string) Option {
	return func(c *Config) error {
		c.Path = NormalizePath(path)
		return nil
	}
}

// WithDebug sets the debug mode: "none", "all" or a channel name.
func WithDebug(mode string) Option {
	return func(c *Config) error {
		c.Debug = mode
		return nil
	}
}

// WithLangs sets the ordered list of supported languages.
func WithLangs(langs ...string) Option {
	return func(c *Config) error {
		c.Langs = append([]string(nil), langs...)
		return nil
	}
}

// WithLang sets the initial language.
func WithLang(lang string) Option {
	return func(c *Config) error {
		c.Lang = lang
		return nil
	}
}

// WithLoader sets the busy indicator factory.
func WithLoader(loader func() BusyIndicator) Option {
	return func(c *Config) error {
		c.Loader = loader
		return nil
	}
}

// WithInit sets the entry hook invoked with the page root handle.
func WithInit(init HookFunc) Option {
	return func(c *Config) error {
		c.Init = init
		return nil
	}
}

// WithHook registers the behavior hook of a type.
func WithHook(typeName string, hook HookFunc) Option {
	return func(c *Config) error {
		if c.Hooks == nil {
			c.Hooks = make(map[string]HookFunc)
		}
		c.Hooks[typeName] = hook
		return nil
	}
}

// WithScripts enables or disables behavior scripts of type sources.
func WithScripts(enabled bool) Option {
	return func(c *Config) error {
		c.ScriptsEnabled = enabled
		return nil
	}
}

// WithScriptMaxExecutionTime is an option that sets the js max execution time of the Config.
func WithScriptMaxExecutionTime(scriptMaxExecutionTime time.Duration) Option {
	return func(c *Config) error {
		c.ScriptMaxExecutionTime = scriptMaxExecutionTime
		return nil
	}
}

// WithFetchTimeout bounds one fetch attempt.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.FetchTimeout = timeout
		return nil
	}
}

// WithFetchRetries sets the number of extra attempts after a failed fetch.
func WithFetchRetries(retries int) Option {
	return func(c *Config) error {
		c.FetchRetries = retries
		return nil
	}
}

// WithFetcher sets the source of types.
func WithFetcher(fetcher Fetcher) Option {
	return func(c *Config) error {
		c.Fetcher = fetcher
		return nil
	}
}

// WithPool is an option that sets the pool of the Config.
func WithPool(pool Pool) Option {
	return func(c *Config) error {
		c.Pool = pool
		return nil
	}
}

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}
