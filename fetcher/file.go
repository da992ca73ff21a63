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

// Package fetcher provides the sources of type definitions: local files, an
// http server, or memory.
//
// Every fetcher maps the type name to the source file name z-<name>.html.
package fetcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/utils/fs"
)

var _ types.Fetcher = (*FileFetcher)(nil)

// FileFetcher reads type sources from a directory.
type FileFetcher struct {
	// Path is the directory of the sources.
	Path string
}

// NewFileFetcher creates a fetcher reading from path.
func NewFileFetcher(path string) *FileFetcher {
	return &FileFetcher{Path: path}
}

func (f *FileFetcher) Fetch(ctx context.Context, typeName string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.NewTransportError(typeName, err)
	}
	path := filepath.Join(f.Path, types.SourceName(typeName))
	if !fs.IsExist(path) {
		return nil, types.NewTransportError(typeName, os.ErrNotExist)
	}
	src := fs.LoadFile(path)
	if src == nil {
		return nil, types.NewTransportError(typeName, errors.New("can not read "+path))
	}
	return src, nil
}
