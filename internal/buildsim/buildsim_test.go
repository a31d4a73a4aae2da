/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package buildsim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func fastRunner() *Runner {
	r := NewRunner()
	r.Scale = 1000
	return r
}

type progressLog struct {
	mu      sync.Mutex
	updates []Progress
}

func (l *progressLog) add(p Progress) {
	l.mu.Lock()
	l.updates = append(l.updates, p)
	l.mu.Unlock()
}

func (l *progressLog) all() []Progress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Progress(nil), l.updates...)
}

func TestBuildRunsEveryStageInOrder(t *testing.T) {
	r := fastRunner()
	var lg progressLog

	done, err := r.Start(context.Background(), "Trail Buddy", FlavorAPK, GenerateKeystore("Trail Buddy"), lg.add)
	if err != nil {
		t.Fatal(err)
	}
	<-done

	got := lg.all()
	want := []Status{StatusPreparing, StatusPreparing, StatusBundling, StatusWrapping, StatusSigning, StatusSuccess}
	if len(got) != len(want) {
		t.Fatalf("updates = %d, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Status != w {
			t.Errorf("update %d = %s, want %s", i, got[i].Status, w)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Percent <= got[i-1].Percent {
			t.Errorf("percent not monotonic at %d: %d -> %d", i, got[i-1].Percent, got[i].Percent)
		}
	}
	last := got[len(got)-1]
	if last.Percent != 100 || last.Artifact != "trail-buddy-release.apk" {
		t.Errorf("final update = %+v", last)
	}
	if r.Status() != StatusSuccess || r.Busy() {
		t.Errorf("runner state = %s busy=%v", r.Status(), r.Busy())
	}
}

func TestBuildRequiresKeystore(t *testing.T) {
	r := fastRunner()
	if _, err := r.Start(context.Background(), "A", FlavorAPK, Keystore{}, nil); !errors.Is(err, ErrNoKeystore) {
		t.Fatalf("err = %v, want ErrNoKeystore", err)
	}
	if r.Status() != StatusIdle {
		t.Errorf("status = %s", r.Status())
	}
}

func TestBuildRejectsUnknownFlavor(t *testing.T) {
	r := fastRunner()
	if _, err := r.Start(context.Background(), "A", Flavor("exe"), GenerateKeystore("A"), nil); err == nil {
		t.Fatal("expected error for unknown flavor")
	}
}

func TestConcurrentBuildRejected(t *testing.T) {
	r := NewRunner() // real pacing so the first build is still running
	done, err := r.Start(context.Background(), "A", FlavorAAB, GenerateKeystore("A"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Start(context.Background(), "A", FlavorAAB, GenerateKeystore("A"), nil); !errors.Is(err, ErrBuildInProgress) {
		t.Fatalf("err = %v, want ErrBuildInProgress", err)
	}
	if !r.Busy() {
		t.Error("runner should report busy")
	}
	select {
	case <-done:
		t.Fatal("build finished too early")
	default:
	}
}

func TestCancelledBuildFails(t *testing.T) {
	r := NewRunner() // real pacing so cancellation lands mid-stage
	ctx, cancel := context.WithCancel(context.Background())
	var lg progressLog

	done, err := r.Start(ctx, "A", FlavorAPK, GenerateKeystore("A"), lg.add)
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("build did not stop after cancel")
	}

	got := lg.all()
	if len(got) == 0 || got[len(got)-1].Status != StatusFailed {
		t.Fatalf("updates = %+v, want trailing FAILED", got)
	}
	if r.Status() != StatusFailed || r.Busy() {
		t.Errorf("runner state = %s busy=%v", r.Status(), r.Busy())
	}
}

func TestGenerateKeystore(t *testing.T) {
	ks := GenerateKeystore("Trail Buddy")
	if ks.Alias != "trail-buddy-key" || !ks.Generated || ks.ValidityYears != 25 {
		t.Errorf("keystore = %+v", ks)
	}
	if ks := GenerateKeystore("  "); ks.Alias != "app-key" {
		t.Errorf("blank name alias = %q", ks.Alias)
	}
}

func TestArtifactName(t *testing.T) {
	if got := ArtifactName("Trail Buddy", FlavorAAB); got != "trail-buddy-release.aab" {
		t.Errorf("artifact = %q", got)
	}
	if got := ArtifactName("", FlavorAPK); got != "app-release.apk" {
		t.Errorf("artifact = %q", got)
	}
}

func TestRunnerReusableAfterSuccess(t *testing.T) {
	r := fastRunner()
	done, err := r.Start(context.Background(), "A", FlavorAPK, GenerateKeystore("A"), nil)
	if err != nil {
		t.Fatal(err)
	}
	<-done
	done, err = r.Start(context.Background(), "A", FlavorAAB, GenerateKeystore("A"), nil)
	if err != nil {
		t.Fatal(err)
	}
	<-done
	if r.Status() != StatusSuccess {
		t.Errorf("status = %s", r.Status())
	}
}
