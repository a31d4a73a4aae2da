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

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// labelFontEnv, when set, points at a TTF/OTF file used for screen labels
// in raster exports. Without it the context's built-in face is used.
const labelFontEnv = "STUDIO_EXPORT_FONT"

// FontLibrary holds parsed OpenType fonts keyed by path so repeated exports
// do not reparse the same file.
type FontLibrary struct {
	fonts map[string]*opentype.Font
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[string]*opentype.Font)} }

// Load parses the font file at path and caches it.
func (fl *FontLibrary) Load(path string) (*opentype.Font, error) {
	if fl.fonts == nil {
		fl.fonts = make(map[string]*opentype.Font)
	}
	if f, ok := fl.fonts[path]; ok {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	fl.fonts[path] = f
	return f, nil
}

// Face builds a face at the given point size (72 DPI, full hinting).
func (fl *FontLibrary) Face(path string, sizePt float64) (font.Face, error) {
	f, err := fl.Load(path)
	if err != nil {
		return nil, err
	}
	if sizePt <= 0 {
		sizePt = 12
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: sizePt, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("build face %s: %w", path, err)
	}
	return face, nil
}

var exportFonts = NewFontLibrary()

// labelFace resolves the label face for raster exports, or nil when no
// override is configured or the file cannot be loaded.
func labelFace(sizePt float64) font.Face {
	path := os.Getenv(labelFontEnv)
	if path == "" {
		return nil
	}
	face, err := exportFonts.Face(path, sizePt)
	if err != nil {
		return nil
	}
	return face
}
