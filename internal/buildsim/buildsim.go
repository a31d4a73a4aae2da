/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package buildsim simulates the native packaging pipeline the build panel
// drives: a timed stage progression from PREPARING through SIGNING that ends
// in SUCCESS, gated on a generated signing key. No real artifact is produced,
// the simulation exists so the panel behaves like a production build service.
package buildsim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	applog "appstudio/internal/log"
)

// Status is one step of the build pipeline.
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusPreparing Status = "PREPARING"
	StatusBundling  Status = "BUNDLING"
	StatusWrapping  Status = "WRAPPING"
	StatusSigning   Status = "SIGNING"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
)

// Flavor selects the packaged output format.
type Flavor string

const (
	FlavorAPK Flavor = "apk"
	FlavorAAB Flavor = "aab"
)

var (
	// ErrNoKeystore is returned when a build starts without a signing key.
	ErrNoKeystore = errors.New("buildsim: no keystore generated")
	// ErrBuildInProgress is returned when a build is already running.
	ErrBuildInProgress = errors.New("buildsim: build already in progress")
)

// Keystore is the simulated signing key. It never leaves memory.
type Keystore struct {
	Alias         string `json:"alias"`
	Generated     bool   `json:"generated"`
	ValidityYears int    `json:"validityYears"`
}

// GenerateKeystore returns a fresh signing key for appName.
func GenerateKeystore(appName string) Keystore {
	alias := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(appName), " ", "-"))
	if alias == "" {
		alias = "app"
	}
	return Keystore{Alias: alias + "-key", Generated: true, ValidityYears: 25}
}

// Progress is one pipeline update delivered to the progress callback.
type Progress struct {
	Status   Status
	Percent  int
	Artifact string // set only on SUCCESS
}

type stage struct {
	status  Status
	percent int
	delay   time.Duration
}

// The percentages and pacing mirror what a Gradle-backed cloud build spends
// in each phase: bundling dominates, signing is quick.
var pipeline = []stage{
	{StatusPreparing, 25, 2 * time.Second},
	{StatusBundling, 55, 4 * time.Second},
	{StatusWrapping, 75, 2 * time.Second},
	{StatusSigning, 90, 2 * time.Second},
	{StatusSuccess, 100, time.Second},
}

// Runner executes at most one simulated build at a time. Progress is
// delivered on the build goroutine; callers that touch UI state must
// marshal back to their own thread.
type Runner struct {
	logger *slog.Logger

	// Scale shortens every stage delay by the given divisor. Zero means 1.
	Scale int

	mu     sync.Mutex
	busy   bool
	status Status
}

// NewRunner returns an idle runner.
func NewRunner() *Runner {
	return &Runner{logger: applog.WithComponent("buildsim"), status: StatusIdle}
}

// Status returns the most recently observed pipeline status.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Busy reports whether a build is running.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// ArtifactName derives the output file name for an app and flavor.
func ArtifactName(appName string, flavor Flavor) string {
	base := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(appName), " ", "-"))
	if base == "" {
		base = "app"
	}
	return fmt.Sprintf("%s-release.%s", base, flavor)
}

// Start launches a build for appName signed with ks. onProgress receives
// every stage transition, starting with an immediate PREPARING at 10% and
// ending with SUCCESS (or FAILED when ctx is cancelled mid-pipeline). The
// returned channel closes when the build goroutine exits.
func (r *Runner) Start(ctx context.Context, appName string, flavor Flavor, ks Keystore, onProgress func(Progress)) (<-chan struct{}, error) {
	if !ks.Generated {
		return nil, ErrNoKeystore
	}
	if flavor != FlavorAPK && flavor != FlavorAAB {
		return nil, fmt.Errorf("buildsim: unknown flavor %q", flavor)
	}

	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return nil, ErrBuildInProgress
	}
	r.busy = true
	r.status = StatusPreparing
	r.mu.Unlock()

	done := make(chan struct{})
	go r.run(ctx, appName, flavor, onProgress, done)
	return done, nil
}

func (r *Runner) run(ctx context.Context, appName string, flavor Flavor, onProgress func(Progress), done chan struct{}) {
	defer close(done)
	start := time.Now()
	r.logger.Info("build started", slog.String("app", appName), slog.String("flavor", string(flavor)))

	emit := func(p Progress) {
		r.mu.Lock()
		r.status = p.Status
		r.mu.Unlock()
		if onProgress != nil {
			onProgress(p)
		}
	}

	emit(Progress{Status: StatusPreparing, Percent: 10})

	scale := r.Scale
	if scale <= 0 {
		scale = 1
	}
	for _, st := range pipeline {
		select {
		case <-ctx.Done():
			emit(Progress{Status: StatusFailed, Percent: 0})
			r.finish(StatusFailed)
			r.logger.Warn("build cancelled", slog.String("app", appName))
			return
		case <-time.After(st.delay / time.Duration(scale)):
		}
		p := Progress{Status: st.status, Percent: st.percent}
		if st.status == StatusSuccess {
			p.Artifact = ArtifactName(appName, flavor)
		}
		emit(p)
	}

	r.finish(StatusSuccess)
	r.logger.Info("build finished",
		slog.String("app", appName),
		slog.String("artifact", ArtifactName(appName, flavor)),
		slog.Duration("elapsed", time.Since(start)))
}

func (r *Runner) finish(s Status) {
	r.mu.Lock()
	r.busy = false
	r.status = s
	r.mu.Unlock()
}
