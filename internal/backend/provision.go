/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"appstudio/internal/domain"
	applog "appstudio/internal/log"
	"appstudio/internal/project"
)

// Provisioner drives the connect/disconnect lifecycle of a project's backend
// link. Connecting without a remote client simulates provisioning: the link
// goes connecting then connected and receives the default collection set.
// With a remote client the collection list is fetched instead.
type Provisioner struct {
	store  *project.Store
	remote *Client // nil means simulated provisioning
	logger *slog.Logger
}

// NewProvisioner wires a provisioner to store. remote may be nil.
func NewProvisioner(store *project.Store, remote *Client) *Provisioner {
	return &Provisioner{store: store, remote: remote, logger: applog.WithComponent("backend")}
}

// DefaultCollections is the collection set a freshly provisioned backend
// starts with.
func DefaultCollections() []domain.BackendCollection {
	return []domain.BackendCollection{
		{Name: "users", Schema: map[string]string{"name": "string", "email": "string"}, RecordCount: 0},
		{Name: "app_data", Schema: map[string]string{"key": "string", "value": "any"}, RecordCount: 0},
	}
}

// backendProjectID derives the cloud project id from the studio project id.
func backendProjectID(p *domain.Project) string {
	id := p.ID
	if len(id) > 6 {
		id = id[:6]
	}
	return fmt.Sprintf("appstudio-%s", id)
}

// Connect attaches a backend to the current project. The connecting state is
// published before the (possibly remote) collection fetch so the panel can
// show progress.
func (pr *Provisioner) Connect(ctx context.Context) error {
	p := pr.store.Current()
	if p.Backend != nil && p.Backend.Status == domain.BackendConnected {
		return nil
	}
	projectID := backendProjectID(p)
	pr.store.SetBackend(&domain.BackendState{Status: domain.BackendConnecting, ProjectID: projectID})

	collections := DefaultCollections()
	if pr.remote != nil {
		remote, err := pr.remote.ListCollections(ctx, projectID)
		if err != nil {
			pr.logger.Error("backend connect failed", slog.String("project", projectID), slog.Any("err", err))
			pr.store.SetBackend(&domain.BackendState{Status: domain.BackendDisconnected})
			return err
		}
		collections = remote
	}

	pr.store.SetBackend(&domain.BackendState{
		Status:      domain.BackendConnected,
		ProjectID:   projectID,
		Collections: collections,
		LastSync:    time.Now().UnixMilli(),
	})
	pr.logger.Info("backend connected", slog.String("project", projectID), slog.Int("collections", len(collections)))
	return nil
}

// Disconnect detaches the backend link. Collection metadata is dropped; the
// remote project itself is untouched.
func (pr *Provisioner) Disconnect() {
	pr.store.SetBackend(&domain.BackendState{Status: domain.BackendDisconnected})
	pr.logger.Info("backend disconnected")
}

// Refresh re-reads collection metadata for a connected backend. A no-op when
// disconnected or when provisioning is simulated.
func (pr *Provisioner) Refresh(ctx context.Context) error {
	p := pr.store.Current()
	if p.Backend == nil || p.Backend.Status != domain.BackendConnected || pr.remote == nil {
		return nil
	}
	collections, err := pr.remote.ListCollections(ctx, p.Backend.ProjectID)
	if err != nil {
		return err
	}
	b := *p.Backend
	b.Collections = collections
	b.LastSync = time.Now().UnixMilli()
	pr.store.SetBackend(&b)
	return nil
}
