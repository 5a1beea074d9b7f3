// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

// Package client is the Go SDK for a shuttle host. Workers and operator
// tooling use it to call back into the host over its h2c listener. As a
// library consumed by third parties it logs with the stdlib logger rather
// than pulling the host's logging stack into every importer.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
	"golang.org/x/net/http2"

	"github.com/shuttlecraft/shuttle/serviceapi"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the host at baseURL. Both schemes use an http2
// transport; for plain http it dials h2c, matching the host's listener.
func New(baseURL string) (*Client, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base URL %s", baseURL)
	}

	var transport *http2.Transport
	// Shared performance options
	perfOpts := func(t *http2.Transport) {
		t.StrictMaxConcurrentStreams = true
		t.MaxReadFrameSize = 1 << 20 // 1MB
		t.ReadIdleTimeout = 2 * time.Minute
		t.PingTimeout = 20 * time.Second
		t.IdleConnTimeout = 90 * time.Second
		t.DisableCompression = true
	}

	switch parsedURL.Scheme {
	case "https":
		transport = &http2.Transport{
			TLSClientConfig: &tls.Config{
				NextProtos: []string{"h2"},
			},
		}
		perfOpts(transport)
	case "http":
		transport = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
				return net.Dial(network, addr)
			},
		}
		perfOpts(transport)
	default:
		return nil, errors.Newf("unsupported URL scheme: %s", parsedURL.Scheme)
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Transport: transport},
	}, nil
}

// Call invokes a service synchronously and returns its raw JSON result.
// A structured failure comes back as a *serviceapi.Signal error. Transient
// transport failures are retried with exponential backoff; HTTP responses of
// any status are never retried, since retry policy for completed invocations
// belongs to the caller.
func (c *Client) Call(ctx context.Context, service string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encoding payload")
	}
	callURL := fmt.Sprintf("%s/services/%s", c.baseURL, service)

	operation := func() (json.RawMessage, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, callURL, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(errors.Wrap(err, "creating request"))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			log.Printf("[DEBUG] Call %s transport error, will retry: %v", service, err)
			return nil, errors.Wrap(err, "calling service")
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, backoff.Permanent(errors.Wrap(err, "reading response"))
		}
		if resp.StatusCode != http.StatusOK {
			if sig, ok := serviceapi.SignalFromRaw(raw); ok {
				return nil, backoff.Permanent(error(sig))
			}
			return nil, backoff.Permanent(errors.Newf("server returned status %d: %s", resp.StatusCode, resp.Status))
		}
		return raw, nil
	}

	eb := &backoff.ExponentialBackOff{
		InitialInterval:     500 * time.Millisecond,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         10 * time.Second,
	}
	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(4),
	)
	if err != nil {
		log.Printf("[ERROR] Call %s failed: %v", service, err)
		return nil, err
	}
	return raw, nil
}

// Services lists the host's registered services.
func (c *Client) Services(ctx context.Context) ([]serviceapi.Descriptor, error) {
	var out []serviceapi.Descriptor
	if err := c.getJSON(ctx, c.baseURL+"/services", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Status fetches the host's status report.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, c.baseURL+"/status", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Readme fetches a service's documentation as raw markdown.
func (c *Client) Readme(ctx context.Context, service string) (string, error) {
	readmeURL := fmt.Sprintf("%s/services/%s/README.md", c.baseURL, service)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, readmeURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "creating request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "fetching README")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.ReadAll(resp.Body)
		return "", errors.Newf("server returned status %d: %s", resp.StatusCode, resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading README")
	}
	return string(raw), nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", reqURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.ReadAll(resp.Body)
		return errors.Newf("server returned status %d: %s", resp.StatusCode, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}
