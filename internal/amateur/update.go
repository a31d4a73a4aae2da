/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package amateur

import (
	"fmt"
	"strings"

	"appstudio/internal/project"
)

// Fallback routes an edit that could not be applied by plain replacement to
// the model as a natural-language command.
type Fallback func(command string) error

// UpdateValue applies an amateur edit. When the file still contains the
// original value the first occurrence is replaced and committed as a direct
// edit; otherwise the change is delegated to the fallback. An unknown path
// is a no-op.
func UpdateValue(store *project.Store, path, original, updated string, fallback Fallback) error {
	f, ok := store.Current().Files[path]
	if !ok {
		return nil
	}
	if strings.Contains(f.Content, original) {
		return store.DirectEdit(path, strings.Replace(f.Content, original, updated, 1))
	}
	if fallback == nil {
		return fmt.Errorf("value %q no longer present in %s", original, path)
	}
	return fallback(fmt.Sprintf("In file %s, change the value \"%s\" to \"%s\". Respond with the updated repo.", path, original, updated))
}
