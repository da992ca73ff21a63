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

package fetcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/julienschmidt/httprouter"
	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/utils/cache"
	"github.com/rulego/zoox/utils/fs"
)

// SourceRoute is the route of a type source.
const SourceRoute = "/types/:file"

// ServerConfig configures a Server.
type ServerConfig struct {
	// Addr is the listen address, e.g. :8080
	Addr string `json:"addr" mapstructure:"addr" yaml:"addr"`
	// Dir holds the z-<name>.html sources
	Dir         string `json:"dir" mapstructure:"dir" yaml:"dir"`
	CertFile    string `json:"certFile" mapstructure:"certFile" yaml:"certFile"`
	CertKeyFile string `json:"certKeyFile" mapstructure:"certKeyFile" yaml:"certKeyFile"`
	// CacheTtl keeps read sources in memory for the given duration, e.g. 10m.
	// Empty disables the cache.
	CacheTtl string `json:"cacheTtl" mapstructure:"cacheTtl" yaml:"cacheTtl"`
}

// Server serves the type sources of a directory over http at
// /types/z-<name>.html, so that an HttpFetcher with the base url
// http://<addr>/types/ reads them. GET /types lists the type names.
type Server struct {
	Config ServerConfig
	Logger types.Logger

	router *httprouter.Router
	// sources caches the read sources by type name, nil when disabled
	sources *cache.MemoryCache
	lock    sync.Mutex
	server *http.Server
}

// NewServer creates a server for config.
func NewServer(config ServerConfig) *Server {
	s := &Server{Config: config, Logger: types.DefaultLogger()}
	if config.CacheTtl != "" {
		s.sources = cache.NewMemoryCache(0)
	}
	s.router = httprouter.New()
	s.router.GET("/types", s.list)
	s.router.GET(SourceRoute, s.source)
	s.router.HEAD(SourceRoute, s.source)
	return s
}

// Router returns the http handler of the server.
func (s *Server) Router() *httprouter.Router {
	return s.router
}

// Start listens and serves until Stop. It returns http.ErrServerClosed after Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.lock.Lock()
	s.server = &http.Server{Handler: s.router}
	srv := s.server
	s.lock.Unlock()
	if s.Config.CertKeyFile != "" && s.Config.CertFile != "" {
		s.Logger.Printf("serving types of %s with TLS on %s", s.Config.Dir, ln.Addr())
		return srv.ServeTLS(ln, s.Config.CertFile, s.Config.CertKeyFile)
	}
	s.Logger.Printf("serving types of %s on %s", s.Config.Dir, ln.Addr())
	return srv.Serve(ln)
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.sources != nil {
		s.sources.StopGC()
	}
	s.lock.Lock()
	srv := s.server
	s.lock.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) source(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	defer func() {
		if e := recover(); e != nil {
			s.Logger.Printf("source handler err :%v", e)
		}
	}()
	file := params.ByName("file")
	name, ok := fs.TypeName(file)
	if !ok || strings.ContainsAny(name, `/\`) || name == ".." {
		http.NotFound(w, r)
		return
	}
	src, err := s.read(r.Context(), name)
	if err != nil {
		if errors.Is(err, types.ErrTransport) {
			http.NotFound(w, r)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(src)
}

// read returns the source of a type, from the cache when enabled.
func (s *Server) read(ctx context.Context, name string) ([]byte, error) {
	if s.sources != nil {
		if src := s.sources.Get(name); src != nil {
			return src, nil
		}
	}
	src, err := NewFileFetcher(s.Config.Dir).Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	if s.sources != nil {
		if err := s.sources.Set(name, src, s.Config.CacheTtl); err != nil {
			s.Logger.Printf("cache source %s: %v", name, err)
		}
	}
	return src, nil
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sources, err := fs.SourcePaths(s.Config.Dir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	names := make([]string, 0, len(sources))
	for name, path := range sources {
		// nested sources are not reachable through SourceRoute
		if filepath.Dir(path) == filepath.Clean(s.Config.Dir) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(strings.Join(names, "\n")))
}
