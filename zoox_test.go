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

package zoox

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/fetcher"
	"github.com/rulego/zoox/test/assert"
)

func TestRandomId(t *testing.T) {
	re := regexp.MustCompile(`^z[0-9a-f]{32}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := RandomId()
		assert.True(t, re.MatchString(id), id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestToSlice(t *testing.T) {
	assert.Equal(t, []interface{}{1, 2}, ToSlice([]int{1, 2}))
	assert.Equal(t, []interface{}{"a"}, ToSlice([1]string{"a"}))
	assert.Equal(t, []interface{}{}, ToSlice(nil))
	assert.Equal(t, []interface{}{}, ToSlice("abc"))
	assert.Equal(t, []interface{}{}, ToSlice(map[string]int{"a": 1}))
}

func TestInit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m := fetcher.NewMemoryFetcher(map[string]string{"label": `<span>{{hi}}</span>`})
	e, root, err := Init(ctx, []byte(`<body><z type="label" id="l"></z></body>`),
		types.WithFetcher(m),
		types.WithHook("label", func(zx Handle) error {
			return zx.SetText("hi", map[string]string{"en": "hello"})
		}))
	assert.Nil(t, err)
	defer e.Stop()
	assert.Equal(t, types.RootId, root.Id())

	l, err := e.Lookup(root.Id())
	assert.Nil(t, err)
	assert.Equal(t, root.Id(), l.Id())
}

func TestInitFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m := fetcher.NewMemoryFetcher(nil)
	e, root, err := Init(ctx, []byte(`<body><z type="missing" id="m"></z></body>`), types.WithFetcher(m))
	assert.ErrorIs(t, err, types.ErrTransport)
	assert.Nil(t, e)
	assert.Nil(t, root)

	_, _, err = Init(ctx, []byte(`<body></body>`), types.WithLangs("en"), types.WithLang("de"))
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestInitContextDone(t *testing.T) {
	m := fetcher.NewMemoryFetcher(map[string]string{"slow": `<b></b>`})
	m.Hold("slow")
	defer m.Release("slow")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Init(ctx, []byte(`<body><z type="slow" id="s"></z></body>`), types.WithFetcher(m))
	assert.ErrorIs(t, err, context.Canceled)
}
