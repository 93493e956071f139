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

//go:build windows

package tailer

import (
	"os"

	"golang.org/x/sys/windows"

	"github.com/esteban-alvarez/logtrail-agent/pkg/fingerprint"
)

// identityOf derives the (volume-serial, file-index) pair spec.md §3
// names as the Windows file identity, via GetFileInformationByHandle.
func identityOf(info os.FileInfo) fingerprint.Identity {
	f, err := os.Open(info.Name())
	if err != nil {
		return fingerprint.Identity{}
	}
	defer f.Close()
	var fi windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(windows.Handle(f.Fd()), &fi); err != nil {
		return fingerprint.Identity{}
	}
	fileIndex := uint64(fi.FileIndexHigh)<<32 | uint64(fi.FileIndexLow)
	return fingerprint.Identity{Device: uint64(fi.VolumeSerialNumber), Inode: fileIndex}
}
