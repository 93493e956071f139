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

// Package sink defines the destination-side contract the sender driver
// drives: one Send operation plus error classification into the
// retryable/permanent/success trichotomy of spec.md §4.11.
package sink

import "context"

// Batch is a serialized payload ready to hand to a Sink, carrying enough
// provenance for the driver to acknowledge the checkpoint store on
// success.
type Batch struct {
	Payload      []byte
	Job          string
	QueueKey     string
	SourcePath   string
	SourceOffset int64 // file offset through which Payload's bytes were submitted
}

// Disposition classifies the outcome of a Send call.
type Disposition int

const (
	DispositionSuccess Disposition = iota
	DispositionRetryable
	DispositionPermanent
)

// Sink sends one batch and classifies errors it returns.
type Sink interface {
	Name() string
	Send(ctx context.Context, b Batch) error
	Classify(err error) Disposition
}
