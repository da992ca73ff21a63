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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rulego/zoox/test/assert"
)

func TestParseConfig(t *testing.T) {
	c, err := parseConfig([]byte(`
path: ./types
langs: [en, fr]
lang: fr
debug: LOAD
fetchTimeout: 5s
fetchRetries: 2
http:
  headers:
    X-Token: abc
  enableProxy: true
  proxyScheme: socks5
  proxyPort: "1080"
server:
  addr: :9090
  cacheTtl: 10m
logFile: zoox.log
`))
	assert.Nil(t, err)
	assert.Equal(t, "./types", c.Settings.Path)
	assert.Equal(t, []string{"en", "fr"}, c.Settings.Langs)
	assert.Equal(t, "fr", c.Settings.Lang)
	assert.Equal(t, "LOAD", c.Settings.Debug)
	assert.Equal(t, 5*time.Second, c.Settings.FetchTimeout)
	assert.Equal(t, 2, c.Settings.FetchRetries)
	assert.Equal(t, map[string]string{"X-Token": "abc"}, c.Http.Headers)
	assert.True(t, c.Http.EnableProxy)
	assert.Equal(t, 1080, c.Http.ProxyPort)
	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, "10m", c.Server.CacheTtl)
	assert.Equal(t, "zoox.log", c.LogFile)

	_, err = parseConfig([]byte("langs: [en"))
	assert.NotNil(t, err)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	assert.Nil(t, os.WriteFile(filepath.Join(dir, "z-hello.html"),
		[]byte(`<script>zx.setText("hi", {en: "Hello", fr: "Bonjour"})</script><p>{{hi}} <z-slot></z-slot></p>`), 0644))
	page := filepath.Join(dir, "index.html")
	assert.Nil(t, os.WriteFile(page, []byte(`<html><body><z type="hello" id="h">world</z></body></html>`), 0644))
	config := filepath.Join(dir, "zoox.yaml")
	assert.Nil(t, os.WriteFile(config, []byte("langs: [en, fr]\n"), 0644))

	var out bytes.Buffer
	err := render([]string{"-c", config, "-path", dir, "-lang", "fr", page}, &out)
	assert.Nil(t, err)
	assert.True(t, strings.Contains(out.String(), "<p>Bonjour world</p>"), out.String())

	assert.NotNil(t, render([]string{"-path", dir}, &out))
}
