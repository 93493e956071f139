// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpsd implements the agent's pull-based scrape-target
// discovery described in spec.md §6: when acting as a pull-based scrape
// client, the agent substitutes any configured SD plugin with a single
// http_sd_configs entry pointing at the operator's targets endpoint.
package httpsd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

const refreshHeader = "X-Prometheus-Refresh-Interval-Seconds"

// TargetGroup is one entry of the http_sd_configs response: a set of
// scrape targets sharing a label set, per the Prometheus file/http SD
// wire format.
type TargetGroup struct {
	Targets []string          `json:"targets"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// Client polls one job's targets endpoint, built from OPERATOR_HOST,
// OPERATOR_PORT, and POD_NAME.
type Client struct {
	job    string
	url    string
	client *http.Client
}

// Env bundles the three environment variables the endpoint URL is built
// from, read directly by NewFromEnv but exposed here so tests can
// construct a Client without touching process environment.
type Env struct {
	OperatorHost string
	OperatorPort string
	PodName      string
}

// NewFromEnv builds a Client for job by reading OPERATOR_HOST,
// OPERATOR_PORT, and POD_NAME from the process environment.
func NewFromEnv(job string) (*Client, error) {
	env := Env{
		OperatorHost: os.Getenv("OPERATOR_HOST"),
		OperatorPort: os.Getenv("OPERATOR_PORT"),
		PodName:      os.Getenv("POD_NAME"),
	}
	return New(job, env)
}

// New builds a Client for job against the given environment values.
func New(job string, env Env) (*Client, error) {
	if env.OperatorHost == "" || env.OperatorPort == "" {
		return nil, fmt.Errorf("httpsd: OPERATOR_HOST and OPERATOR_PORT are required")
	}
	url := fmt.Sprintf("http://%s:%s/jobs/%s/targets?collector_id=%s", env.OperatorHost, env.OperatorPort, job, env.PodName)
	return &Client{job: job, url: url, client: &http.Client{Timeout: 10 * time.Second}}, nil
}

// Poll fetches the current target groups. The caller is expected to
// drive this via internal/scheduler on an interval derived from the
// response's refresh-interval header (RefreshInterval), per spec.md §6.
func (c *Client) Poll(ctx context.Context) (groups []TargetGroup, refreshInterval time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("httpsd: poll %s: %w", c.job, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("httpsd: poll %s: status %d", c.job, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&groups); err != nil {
		return nil, 0, fmt.Errorf("httpsd: poll %s: decode: %w", c.job, err)
	}

	refreshInterval = parseRefreshHeader(resp.Header.Get(refreshHeader))
	return groups, refreshInterval, nil
}

func parseRefreshHeader(v string) time.Duration {
	if v == "" {
		return 0
	}
	var seconds int
	if _, err := fmt.Sscanf(v, "%d", &seconds); err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
