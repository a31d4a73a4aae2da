/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package preview

// Node helpers over the x/net/html tree. Selector support is intentionally
// small: the protocol only ever addresses elements by id, class, tag or
// tag.class.

import (
	"strings"

	"golang.org/x/net/html"
)

// walk visits every node depth-first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func findTag(root *html.Node, tag string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return false
		}
		return true
	})
	return found
}

func findByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attrValue(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

func findByClass(root *html.Node, class string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && hasClass(n, class) {
			found = n
			return false
		}
		return true
	})
	return found
}

// findBySelector resolves "#id", ".class", "tag" and "tag.class".
func findBySelector(root *html.Node, sel string) *html.Node {
	sel = strings.TrimSpace(sel)
	switch {
	case sel == "":
		return nil
	case strings.HasPrefix(sel, "#"):
		return findByID(root, sel[1:])
	case strings.HasPrefix(sel, "."):
		return findByClass(root, sel[1:])
	}
	tag, class, hasDot := strings.Cut(sel, ".")
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != tag {
			return true
		}
		if hasDot && !hasClass(n, class) {
			return true
		}
		found = n
		return false
	})
	return found
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func addClass(n *html.Node, class string) {
	if hasClass(n, class) {
		return
	}
	cur := attrValue(n, "class")
	if cur == "" {
		setAttr(n, "class", class)
		return
	}
	setAttr(n, "class", cur+" "+class)
}

func removeClass(n *html.Node, class string) {
	var kept []string
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c != class {
			kept = append(kept, c)
		}
	}
	setAttr(n, "class", strings.Join(kept, " "))
}

// setText replaces the node's children with a single text node.
func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// textContent concatenates all descendant text.
func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}
