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

package httpsd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewRequiresHostAndPort(t *testing.T) {
	if _, err := New("job", Env{}); err == nil {
		t.Fatal("expected error for missing OPERATOR_HOST/OPERATOR_PORT")
	}
}

func TestPollParsesTargetsAndRefreshInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/jobs/app/targets") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("collector_id") != "pod-1" {
			t.Errorf("missing collector_id: %s", r.URL.RawQuery)
		}
		w.Header().Set(refreshHeader, "30")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"targets":["10.0.0.1:9090"],"labels":{"env":"prod"}}]`))
	}))
	defer srv.Close()

	host, port, _ := strings.Cut(strings.TrimPrefix(srv.URL, "http://"), ":")
	c, err := New("app", Env{OperatorHost: host, OperatorPort: port, PodName: "pod-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	groups, refresh, err := c.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(groups) != 1 || len(groups[0].Targets) != 1 || groups[0].Targets[0] != "10.0.0.1:9090" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
	if groups[0].Labels["env"] != "prod" {
		t.Fatalf("unexpected labels: %+v", groups[0].Labels)
	}
	if refresh != 30*time.Second {
		t.Fatalf("unexpected refresh interval: %v", refresh)
	}
}

func TestPollRejectsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	host, port, _ := strings.Cut(strings.TrimPrefix(srv.URL, "http://"), ":")
	c, err := New("app", Env{OperatorHost: host, OperatorPort: port, PodName: "pod-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, err := c.Poll(context.Background()); err == nil {
		t.Fatal("expected error for 503 response")
	}
}
