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
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rulego/zoox/api/types"
	"golang.org/x/net/proxy"
)

var errNotFound = errors.New("source not found")

var _ types.Fetcher = (*HttpFetcher)(nil)

// HttpConfig configures an HttpFetcher.
type HttpConfig struct {
	// BaseUrl is prepended to the source file name, e.g. http://host/types/
	BaseUrl string `json:"baseUrl" mapstructure:"baseUrl" yaml:"baseUrl"`
	// Headers are added to every request
	Headers map[string]string `json:"headers" mapstructure:"headers" yaml:"headers"`
	// ReadTimeoutMs bounds a request, 0 leaves it to the engine fetch timeout
	ReadTimeoutMs      int  `json:"readTimeoutMs" mapstructure:"readTimeoutMs" yaml:"readTimeoutMs"`
	InsecureSkipVerify bool `json:"insecureSkipVerify" mapstructure:"insecureSkipVerify" yaml:"insecureSkipVerify"`
	// MaxParallelRequestsCount limits the connections per host, 0 is unlimited
	MaxParallelRequestsCount int `json:"maxParallelRequestsCount" mapstructure:"maxParallelRequestsCount" yaml:"maxParallelRequestsCount"`

	EnableProxy bool `json:"enableProxy" mapstructure:"enableProxy" yaml:"enableProxy"`
	// UseSystemProxyProperties reads the proxy from HTTP_PROXY/HTTPS_PROXY
	UseSystemProxyProperties bool   `json:"useSystemProxyProperties" mapstructure:"useSystemProxyProperties" yaml:"useSystemProxyProperties"`
	ProxyScheme              string `json:"proxyScheme" mapstructure:"proxyScheme" yaml:"proxyScheme"`
	ProxyHost                string `json:"proxyHost" mapstructure:"proxyHost" yaml:"proxyHost"`
	ProxyPort                int    `json:"proxyPort" mapstructure:"proxyPort" yaml:"proxyPort"`
	ProxyUser                string `json:"proxyUser" mapstructure:"proxyUser" yaml:"proxyUser"`
	ProxyPassword            string `json:"proxyPassword" mapstructure:"proxyPassword" yaml:"proxyPassword"`
}

// HttpFetcher GETs type sources from an http server. Only a 200 status is a
// source; any other status is a TransportError.
type HttpFetcher struct {
	Config HttpConfig
	client *http.Client
}

// NewHttpFetcher creates a fetcher for config.
func NewHttpFetcher(config HttpConfig) *HttpFetcher {
	return &HttpFetcher{Config: config, client: NewHttpClient(config)}
}

// Url returns the source url of typeName.
func (f *HttpFetcher) Url(typeName string) string {
	base := f.Config.BaseUrl
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + url.PathEscape(types.SourceName(typeName))
}

func (f *HttpFetcher) Fetch(ctx context.Context, typeName string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Url(typeName), nil)
	if err != nil {
		return nil, types.NewTransportError(typeName, err)
	}
	for k, v := range f.Config.Headers {
		req.Header.Set(k, v)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, types.NewTransportError(typeName, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewTransportError(typeName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, types.NewTransportError(typeName, fmt.Errorf("%s returned %s", req.URL, resp.Status))
	}
	return b, nil
}

// NewHttpClient creates the http client of config.
func NewHttpClient(config HttpConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: config.InsecureSkipVerify}
	transport.MaxConnsPerHost = config.MaxParallelRequestsCount

	if config.EnableProxy {
		if config.UseSystemProxyProperties {
			if proxyURL := GetSystemProxy(); proxyURL != nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		} else if proxyURL := BuildProxyURL(config.ProxyScheme, config.ProxyHost, config.ProxyPort, config.ProxyUser, config.ProxyPassword); proxyURL != nil {
			if config.ProxyScheme == "socks5" {
				transport.Proxy = nil
				transport.DialContext = CreateSOCKS5Dialer(proxyURL)
			} else {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}
	return &http.Client{Transport: transport,
		Timeout: time.Duration(config.ReadTimeoutMs) * time.Millisecond}
}

// GetSystemProxy returns the proxy set in the environment.
func GetSystemProxy() *url.URL {
	for _, env := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy"} {
		if proxyStr := os.Getenv(env); proxyStr != "" {
			if proxyURL, err := url.Parse(proxyStr); err == nil {
				return proxyURL
			}
		}
	}
	return nil
}

// BuildProxyURL returns the proxy url, nil when scheme, host or port is missing.
func BuildProxyURL(scheme, host string, port int, user, password string) *url.URL {
	if scheme == "" || host == "" || port == 0 {
		return nil
	}
	u := &url.URL{Scheme: scheme, Host: fmt.Sprintf("%s:%d", host, port)}
	if user != "" && password != "" {
		u.User = url.UserPassword(user, password)
	}
	return u
}

// CreateSOCKS5Dialer dials through the SOCKS5 proxy at proxyURL.
func CreateSOCKS5Dialer(proxyURL *url.URL) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		var auth *proxy.Auth
		if proxyURL.User != nil {
			if password, ok := proxyURL.User.Password(); ok {
				auth = &proxy.Auth{
					User:     proxyURL.User.Username(),
					Password: password,
				}
			}
		}
		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, proxy.Direct)
		if err != nil {
			return nil, err
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)
	}
}
