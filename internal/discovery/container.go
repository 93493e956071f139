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

package discovery

import "encoding/json"

// ContainerInfo is the container metadata record supplementing §4.3's
// Container mode: each container's rootfs becomes a search origin, and
// the container's namespace/pod/image/labels/env attach to event-group
// tags via the external_k8s_label_tag / external_env_tag maps.
type ContainerInfo struct {
	ID   string
	Path string // rootfs path this container contributes as a search origin
	Tags []string // flat, alternating key/value
}

// containerSignal is the wire shape of the external discovery command's
// {"AllCmd": [...]} JSON object.
type containerSignal struct {
	AllCmd []containerEntry `json:"AllCmd"`
}

type containerEntry struct {
	ID   string   `json:"ID"`
	Path string   `json:"Path"`
	Tags []string `json:"Tags"`
}

// DecodeContainerSignal parses the external container-discovery command's
// JSON payload into ContainerInfo records.
func DecodeContainerSignal(data []byte) ([]ContainerInfo, error) {
	var sig containerSignal
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, err
	}
	out := make([]ContainerInfo, 0, len(sig.AllCmd))
	for _, e := range sig.AllCmd {
		out = append(out, ContainerInfo{ID: e.ID, Path: e.Path, Tags: e.Tags})
	}
	return out, nil
}

// TagMap converts the flat, alternating Tags slice into a map, dropping a
// trailing unpaired key.
func (c ContainerInfo) TagMap() map[string]string {
	m := make(map[string]string, len(c.Tags)/2)
	for i := 0; i+1 < len(c.Tags); i += 2 {
		m[c.Tags[i]] = c.Tags[i+1]
	}
	return m
}
