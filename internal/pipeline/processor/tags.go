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

package processor

// TagScheme selects which of the two coexisting tag naming conventions a
// pipeline emits (spec.md §4.6 "Tag naming").
type TagScheme int

const (
	// SchemeLegacy uses double-underscore names (__path__, __hostname__...).
	SchemeLegacy TagScheme = iota
	// SchemeModern uses a dot-separated namespace (log.file.path, host.name...).
	SchemeModern
)

// SemanticTag is one of the fixed, recognised semantic tag keys spec.md
// §4.6 enumerates. Processors refer to tags by SemanticTag, never by the
// scheme-specific string, so a pipeline can switch schemes without
// touching processor configuration.
type SemanticTag int

const (
	TagFileOffset SemanticTag = iota
	TagFileInode
	TagFilePath
	TagK8sNamespace
	TagK8sPodName
	TagK8sPodUID
	TagContainerName
	TagContainerIP
	TagContainerImageName
	TagK8sContainerName
	TagK8sContainerImageName
	TagK8sContainerIP
	TagHostName
	TagHostIP
	TagUserDefinedID
)

var legacyNames = map[SemanticTag]string{
	TagFileOffset:            "__file_offset__",
	TagFileInode:             "__inode__",
	TagFilePath:              "__path__",
	TagK8sNamespace:          "__k8s_namespace__",
	TagK8sPodName:            "__k8s_pod_name__",
	TagK8sPodUID:             "__k8s_pod_uid__",
	TagContainerName:         "__container_name__",
	TagContainerIP:           "__container_ip__",
	TagContainerImageName:    "__container_image_name__",
	TagK8sContainerName:      "__k8s_container_name__",
	TagK8sContainerImageName: "__k8s_container_image_name__",
	TagK8sContainerIP:        "__k8s_container_ip__",
	TagHostName:              "__hostname__",
	TagHostIP:                "__host_ip__",
	TagUserDefinedID:         "__user_defined_id__",
}

// modernNames has no entry for TagUserDefinedID: spec.md §4.6 lists it as
// legacy-scheme only.
var modernNames = map[SemanticTag]string{
	TagFileOffset:            "log.file.offset",
	TagFileInode:             "log.file.inode",
	TagFilePath:              "log.file.path",
	TagK8sNamespace:          "k8s.namespace.name",
	TagK8sPodName:            "k8s.pod.name",
	TagK8sPodUID:             "k8s.pod.uid",
	TagContainerName:         "container.name",
	TagContainerIP:           "container.ip",
	TagContainerImageName:    "container.image.name",
	TagK8sContainerName:      "k8s.container.name",
	TagK8sContainerImageName: "k8s.container.image.name",
	TagK8sContainerIP:        "k8s.container.ip",
	TagHostName:              "host.name",
	TagHostIP:                "host.ip",
}

// Name returns the wire key for t under scheme. It returns ("", false) for
// TagUserDefinedID under SchemeModern, since that key has no modern
// counterpart.
func (t SemanticTag) Name(scheme TagScheme) (string, bool) {
	if scheme == SchemeModern {
		name, ok := modernNames[t]
		return name, ok
	}
	name, ok := legacyNames[t]
	return name, ok
}

// SetSemanticTag assigns value to t's scheme-appropriate key in tags,
// no-op if the combination has no name (TagUserDefinedID + SchemeModern).
func SetSemanticTag(tags map[string]string, scheme TagScheme, t SemanticTag, value string) {
	if name, ok := t.Name(scheme); ok {
		tags[name] = value
	}
}
