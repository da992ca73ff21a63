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

package main

import (
	"os"

	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/fetcher"
	"github.com/rulego/zoox/utils/maps"
	"gopkg.in/yaml.v3"
)

// fileConfig is the content of a yaml config file:
//
//	path: ./types
//	langs: [en, fr]
//	debug: LOAD
//	fetchTimeout: 5s
//	http:
//	  headers: {Authorization: "Bearer x"}
//	server:
//	  addr: :8080
type fileConfig struct {
	Settings types.Settings
	Http     fetcher.HttpConfig
	Server   fetcher.ServerConfig
	// LogFile receives the log, stdout when empty
	LogFile string
}

// loadConfig reads a yaml file. An empty name returns the defaults.
func loadConfig(name string) (fileConfig, error) {
	c := fileConfig{Server: fetcher.ServerConfig{Addr: ":8080"}}
	if name == "" {
		return c, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return c, err
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (fileConfig, error) {
	c := fileConfig{Server: fetcher.ServerConfig{Addr: ":8080"}}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return c, types.NewConfigurationError("invalid config file: %v", err)
	}
	s, err := types.DecodeSettings(raw)
	if err != nil {
		return c, err
	}
	c.Settings = s
	if v, ok := raw["http"]; ok {
		if err := maps.Map2StructWeak(v, &c.Http); err != nil {
			return c, types.NewConfigurationError("invalid http section: %v", err)
		}
	}
	if v, ok := raw["server"]; ok {
		if err := maps.Map2StructWeak(v, &c.Server); err != nil {
			return c, types.NewConfigurationError("invalid server section: %v", err)
		}
	}
	if v, ok := raw["logFile"].(string); ok {
		c.LogFile = v
	}
	return c, nil
}
