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

// Package fs locates and reads type source files on the local file system.
package fs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rulego/zoox/api/types"
)

// SourcePattern matches the file names of type sources.
const SourcePattern = types.FilePrefix + "-*" + types.FileExt

// LoadFile returns the content of path, nil when it can not be read.
func LoadFile(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}

// SaveFile writes data to path, creating missing directories.
func SaveFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IsExist checks if a path exists
func IsExist(path string) bool {
	_, err := os.Stat(path)
	return err == nil || os.IsExist(err)
}

// GetFilePaths returns the files under the directory of loadFilePattern whose
// name matches its file part. Files and directories matching one of
// excludedPatterns are skipped.
func GetFilePaths(loadFilePattern string, excludedPatterns ...string) ([]string, error) {
	dir, file := filepath.Split(loadFilePattern)
	if dir == "" {
		dir = "."
	}
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && isMatch(d, excludedPatterns...) {
				return filepath.SkipDir
			}
			return nil
		}
		if matched, _ := filepath.Match(file, d.Name()); matched && !isMatch(d, excludedPatterns...) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func isMatch(d fs.DirEntry, patterns ...string) bool {
	for _, item := range patterns {
		if matched, _ := filepath.Match(item, d.Name()); matched {
			return true
		}
	}
	return false
}

// TypeName returns the type name of a source file path: dir/z-button.html is
// button.
func TypeName(path string) (string, bool) {
	base := filepath.Base(path)
	prefix := types.FilePrefix + "-"
	if !strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, types.FileExt) {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(base, prefix), types.FileExt)
	return name, name != ""
}

// SourcePaths returns the type sources under dir by type name.
func SourcePaths(dir string) (map[string]string, error) {
	paths, err := GetFilePaths(filepath.Join(dir, SourcePattern))
	if err != nil {
		return nil, err
	}
	sources := make(map[string]string, len(paths))
	for _, p := range paths {
		if name, ok := TypeName(p); ok {
			sources[name] = p
		}
	}
	return sources, nil
}
