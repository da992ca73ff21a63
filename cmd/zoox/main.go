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

// Command zoox renders pages and serves type sources.
//
//	zoox render [-c config.yaml] [-path dir] [-lang l] [-timeout 30s] page.html
//	zoox serve [-c config.yaml] [-path dir] [-addr :8080]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rulego/zoox"
	"github.com/rulego/zoox/api/types"
	"github.com/rulego/zoox/fetcher"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "render":
		err = render(os.Args[2:], os.Stdout)
	case "serve":
		err = serve(os.Args[2:])
	case "version", "-v":
		fmt.Printf("zoox v%s\n", version)
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("error:", err)
	}
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: zoox render [-c config.yaml] [-path dir] [-lang l] page.html")
	_, _ = fmt.Fprintln(w, "       zoox serve [-c config.yaml] [-path dir] [-addr :8080]")
}

func render(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	configFile := fs.String("c", "", "config file")
	path := fs.String("path", "", "type sources, a directory or an http base url")
	lang := fs.String("lang", "", "language")
	timeout := fs.Duration("timeout", time.Minute, "construction timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("render needs one page file")
	}
	c, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	page, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	logger, err := initLogger(c.LogFile)
	if err != nil {
		return err
	}
	opts := append(c.Settings.Options(), types.WithLogger(logger))
	if *path != "" {
		opts = append(opts, types.WithPath(*path))
	}
	if *lang != "" {
		opts = append(opts, types.WithLang(*lang))
	}
	if base := firstNonEmpty(*path, c.Settings.Path); strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		httpConfig := c.Http
		httpConfig.BaseUrl = base
		opts = append(opts, types.WithFetcher(fetcher.NewHttpFetcher(httpConfig)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	e, _, err := zoox.Init(ctx, page, opts...)
	if err != nil {
		return err
	}
	defer e.Stop()
	return e.Render(out)
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configFile := fs.String("c", "", "config file")
	path := fs.String("path", "", "directory of the type sources")
	addr := fs.String("addr", "", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	serverConfig := c.Server
	serverConfig.Dir = firstNonEmpty(*path, serverConfig.Dir, c.Settings.Path, ".")
	if *addr != "" {
		serverConfig.Addr = *addr
	}
	logger, err := initLogger(c.LogFile)
	if err != nil {
		return err
	}
	server := fetcher.NewServer(serverConfig)
	server.Logger = logger

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-sigs:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Printf("stopped server")
		return nil
	}
}

func initLogger(logFile string) (*log.Logger, error) {
	if logFile == "" {
		return log.New(os.Stderr, "[zoox] ", log.LstdFlags), nil
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return log.New(f, "[zoox] ", log.LstdFlags), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
