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
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"appstudio/internal/domain"
	"appstudio/internal/navgraph"
)

// PDFOptions controls the project report.
// Vector text only; built-in Helvetica keeps the output portable without
// font embedding.
type PDFOptions struct {
	// MaxHistory caps the history section; zero means 20 entries.
	MaxHistory int
	// IncludeFileListing adds a per-file section with path, language and
	// content size.
	IncludeFileListing bool
}

// WriteProjectPDF writes a multi-section report for p to outPath: title
// block, screens with their outgoing navigation, optional file listing and
// the recent history log.
func WriteProjectPDF(outPath string, p *domain.Project, opt PDFOptions) error {
	if p == nil {
		return fmt.Errorf("project is nil")
	}
	maxHistory := opt.MaxHistory
	if maxHistory <= 0 {
		maxHistory = 20
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s — Project Report", p.Name), true)
	pdf.SetAuthor("App Studio", false)
	pdf.SetMargins(48, 56, 48)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.Cell(0, 26, p.Name)
	pdf.Ln(30)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 12, fmt.Sprintf("Package %s   |   version %d   |   %d files   |   %d connections",
		p.PackageName, p.Version, len(p.Files), len(p.Connections)))
	pdf.Ln(14)
	pdf.Cell(0, 12, "Generated "+time.Now().Format("2006-01-02 15:04"))
	pdf.Ln(28)
	pdf.SetTextColor(0, 0, 0)

	writeScreensSection(pdf, p)
	if opt.IncludeFileListing {
		writeFilesSection(pdf, p)
	}
	writeHistorySection(pdf, p, maxHistory)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func sectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 16, title)
	pdf.Ln(20)
	pdf.SetFont("Helvetica", "", 10)
}

func writeScreensSection(pdf *gofpdf.Fpdf, p *domain.Project) {
	sectionHeader(pdf, "Screens")
	for _, screen := range p.HTMLFiles() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 12, screen)
		pdf.Ln(13)
		pdf.SetFont("Helvetica", "", 9)
		out := navgraph.OutgoingFrom(p.Connections, screen)
		if len(out) == 0 {
			pdf.SetTextColor(140, 140, 140)
			pdf.Cell(0, 11, "    no outgoing navigation")
			pdf.Ln(13)
			pdf.SetTextColor(0, 0, 0)
			continue
		}
		for _, c := range out {
			label := c.FromElementLabel
			if label == "" {
				label = c.FromElementID
			}
			pdf.Cell(0, 11, fmt.Sprintf("    %s (%s) -> %s", label, c.Action, c.ToScreen))
			pdf.Ln(12)
		}
		pdf.Ln(3)
	}
	pdf.Ln(12)
}

func writeFilesSection(pdf *gofpdf.Fpdf, p *domain.Project) {
	sectionHeader(pdf, "Files")
	for _, path := range sortedFilePaths(p) {
		f := p.Files[path]
		pdf.Cell(0, 11, fmt.Sprintf("%s   (%s, %d bytes)", path, f.Language, len(f.Content)))
		pdf.Ln(12)
	}
	pdf.Ln(12)
}

func writeHistorySection(pdf *gofpdf.Fpdf, p *domain.Project, limit int) {
	sectionHeader(pdf, "History")
	n := len(p.History)
	if n > limit {
		n = limit
	}
	for _, h := range p.History[:n] {
		ts := time.UnixMilli(h.Timestamp).Format("2006-01-02 15:04")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.Cell(110, 11, ts)
		pdf.SetFont("Helvetica", "", 9)
		pdf.Cell(40, 11, string(h.Author))
		pdf.MultiCell(0, 11, h.Description, "", "L", false)
		pdf.Ln(2)
	}
	if len(p.History) > limit {
		pdf.SetTextColor(140, 140, 140)
		pdf.Cell(0, 11, fmt.Sprintf("... %d older entries omitted", len(p.History)-limit))
		pdf.SetTextColor(0, 0, 0)
	}
}

func sortedFilePaths(p *domain.Project) []string {
	out := make([]string, 0, len(p.Files))
	for path := range p.Files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
