/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"

	"appstudio/internal/domain"
	"appstudio/internal/navgraph"
)

// WriteOverviewSVG writes the navigation overlay of p as an SVG document at
// outPath. activeScreen may be empty.
func WriteOverviewSVG(outPath string, p *domain.Project, activeScreen string) error {
	if p == nil {
		return fmt.Errorf("project is nil")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create svg: %w", err)
	}
	if err := navgraph.WriteSVG(f, navgraph.NewLayout(p), p.Connections, activeScreen); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close svg: %w", err)
	}
	return nil
}
