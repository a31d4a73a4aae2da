/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package preview

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"appstudio/internal/domain"
)

// Mode selects how the sandbox treats pointer activation.
type Mode string

const (
	// ModeBuild intercepts clicks for selection instead of running the
	// element's normal behavior.
	ModeBuild Mode = "build"
	// ModeTest leaves the page fully interactive.
	ModeTest Mode = "test"
)

// MessageType tags one protocol message. The protocol is closed: these are
// the only legal cross-boundary interactions.
type MessageType string

const (
	SetHighlight MessageType = "SET_HIGHLIGHT"
	SetMode      MessageType = "SET_MODE"
	ApplyStyle   MessageType = "APPLY_STYLE"
	ApplyText    MessageType = "APPLY_TEXT"
	ApplyLayout  MessageType = "APPLY_LAYOUT"
	// StudioInteract is the only outbound type, carrying a UIElementRef.
	StudioInteract MessageType = "STUDIO_INTERACT"
)

// Message is one inbound protocol message. Each message is self-contained
// and idempotent; re-delivery is harmless and messages sent to a torn-down
// sandbox are dropped.
type Message struct {
	Type  MessageType
	ID    string
	Mode  Mode
	Style map[string]string
	Text  string
	Rect  *domain.RectPx
}

// InteractFunc receives outbound STUDIO_INTERACT reports.
type InteractFunc func(domain.UIElementRef)

// Sandbox is one isolated screen document. It is immutable in identity:
// a new project version means a new Sandbox, never a patch of this one.
type Sandbox struct {
	version    int
	doc        *html.Node
	wired      bool
	mode       Mode
	onInteract InteractFunc
	rnd        *rand.Rand
}

// New composes and parses the sandbox document for one screen at one project
// version. Malformed markup degrades silently: the tolerant parser always
// yields a document, and a missing script mount just leaves the page static.
func New(markup, script string, version int, onInteract InteractFunc) *Sandbox {
	doc, wired := ComposeDocument(markup, script)
	node, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		// html.Parse only fails on reader errors; a string reader cannot.
		node = &html.Node{Type: html.DocumentNode}
		wired = false
	}
	return &Sandbox{
		version:    version,
		doc:        node,
		wired:      wired,
		mode:       ModeTest,
		onInteract: onInteract,
		rnd:        rand.New(rand.NewSource(int64(version)<<16 | int64(len(markup)))),
	}
}

// Version returns the project version this sandbox was rendered from.
func (s *Sandbox) Version() int { return s.version }

// Wired reports whether the bridge attached (the script mount was present).
func (s *Sandbox) Wired() bool { return s.wired }

// Mode returns the current interaction mode.
func (s *Sandbox) Mode() Mode { return s.mode }

// HTML serializes the sandbox's current document.
func (s *Sandbox) HTML() string {
	var sb strings.Builder
	if err := html.Render(&sb, s.doc); err != nil {
		return ""
	}
	return sb.String()
}

// Dispatch handles one inbound message. Messages to an unwired sandbox are
// dropped, except SET_MODE which only touches sandbox state.
func (s *Sandbox) Dispatch(m Message) {
	if m.Type == SetMode {
		s.mode = m.Mode
		if body := findTag(s.doc, "body"); body != nil {
			if m.Mode == ModeBuild {
				addClass(body, BuildModeClass)
			} else {
				removeClass(body, BuildModeClass)
			}
		}
		return
	}
	if !s.wired {
		return
	}
	switch m.Type {
	case SetHighlight:
		s.clearHighlight()
		if m.ID == "" {
			return
		}
		if n := s.lookup(m.ID); n != nil {
			addClass(n, HighlightClass)
		}
	case ApplyStyle:
		if n := s.lookup(m.ID); n != nil {
			mergeStyle(n, m.Style)
		}
	case ApplyText:
		if n := s.lookup(m.ID); n != nil {
			setText(n, m.Text)
		}
	case ApplyLayout:
		if n := s.lookup(m.ID); n != nil && m.Rect != nil {
			mergeStyle(n, map[string]string{
				"position": "absolute",
				"top":      px(m.Rect.Top),
				"left":     px(m.Rect.Left),
				"width":    px(m.Rect.Width),
				"height":   px(m.Rect.Height),
				"z-index":  "9998",
			})
		}
	}
}

func (s *Sandbox) clearHighlight() {
	walk(s.doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && hasClass(n, HighlightClass) {
			removeClass(n, HighlightClass)
		}
		return true
	})
}

// lookup resolves a target by id first, then by class, then as a simple
// selector. This priority order is part of the protocol contract.
func (s *Sandbox) lookup(key string) *html.Node {
	if n := findByID(s.doc, key); n != nil {
		return n
	}
	if n := findByClass(s.doc, key); n != nil {
		return n
	}
	return findBySelector(s.doc, key)
}

// Click simulates a pointer activation on the element matched by target.
// In test mode the page keeps its normal behavior and nothing is reported.
// In build mode the default action is suppressed and a STUDIO_INTERACT
// report is posted. The returned ref's ID may be synthetic for unlabeled
// elements; it is never written back to the markup, so repeat clicks on the
// same element can yield different ids.
func (s *Sandbox) Click(target string) (domain.UIElementRef, bool) {
	if s.mode != ModeBuild || !s.wired {
		return domain.UIElementRef{}, false
	}
	n := s.lookup(target)
	if n == nil {
		return domain.UIElementRef{}, false
	}
	ref := s.elementRef(n)
	if s.onInteract != nil {
		s.onInteract(ref)
	}
	return ref, true
}

// Interactive lists the screen's clickable elements in document order.
// Buttons, links, and form controls qualify, as does any element carrying
// an inline click handler.
func (s *Sandbox) Interactive() []domain.UIElementRef {
	var out []domain.UIElementRef
	walk(s.doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.Data {
		case "button", "a", "input", "select", "textarea":
			out = append(out, s.elementRef(n))
		default:
			if attrValue(n, "onclick") != "" {
				out = append(out, s.elementRef(n))
			}
		}
		return true
	})
	return out
}

// elementRef snapshots a node. The id falls back to the first class name,
// then to a generated tag+suffix.
func (s *Sandbox) elementRef(n *html.Node) domain.UIElementRef {
	ref := domain.UIElementRef{
		TagName:    strings.ToUpper(n.Data),
		ClassName:  attrValue(n, "class"),
		Attributes: map[string]string{},
	}
	for _, a := range n.Attr {
		ref.Attributes[a.Key] = a.Val
	}
	ref.Text = truncate(textContent(n), 30)

	switch {
	case attrValue(n, "id") != "":
		ref.ID = attrValue(n, "id")
	case ref.ClassName != "":
		ref.ID = strings.Fields(ref.ClassName)[0]
	default:
		ref.ID = fmt.Sprintf("%s-%04d", n.Data, s.rnd.Intn(10000))
	}

	styles := parseStyle(attrValue(n, "style"))
	if len(styles) > 0 {
		ref.ComputedStyles = styles
		ref.Rect = domain.RectPx{
			Top:    pxValue(styles["top"]),
			Left:   pxValue(styles["left"]),
			Width:  pxValue(styles["width"]),
			Height: pxValue(styles["height"]),
		}
	}
	return ref
}

func px(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32) + "px"
}

func pxValue(s string) float32 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0
	}
	return float32(v)
}

// truncate caps s at n runes, never splitting a multi-byte character.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// parseStyle splits an inline style attribute into property pairs.
func parseStyle(style string) map[string]string {
	out := map[string]string{}
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

// mergeStyle folds props onto the node's inline style, keeping unrelated
// declarations. Output order is sorted for deterministic serialization.
func mergeStyle(n *html.Node, props map[string]string) {
	styles := parseStyle(attrValue(n, "style"))
	for k, v := range props {
		styles[k] = v
	}
	keys := make([]string, 0, len(styles))
	for k := range styles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(styles[k])
	}
	setAttr(n, "style", sb.String())
}
