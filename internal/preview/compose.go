/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package preview hosts one screen's markup in an isolated in-memory
// document and exposes the closed message protocol the studio uses to talk
// to it. A sandbox is destroyed and recreated per render, keyed by project
// version; it is never patched incrementally, so no listener or global state
// survives a version change.
package preview

import "strings"

// HighlightClass is the class the highlight affordance toggles on the
// targeted element.
const HighlightClass = "studio-highlight-active"

// BuildModeClass is toggled on body while the studio intercepts clicks.
const BuildModeClass = "studio-build-mode"

// ScriptMount is the marker the composed script replaces. Markup without it
// still renders statically, but no interactivity is wired.
const ScriptMount = `<script src="app.js"></script>`

const highlightStyle = `<style>
  .` + HighlightClass + ` {
    outline: 4px solid #3b82f6 !important;
    outline-offset: -4px !important;
    box-shadow: 0 0 20px rgba(59, 130, 246, 0.5) !important;
    transition: all 0.2s ease-in-out !important;
    position: relative !important;
    z-index: 9999 !important;
  }
  .` + BuildModeClass + ` * {
    cursor: crosshair !important;
  }
  .` + BuildModeClass + ` a, .` + BuildModeClass + ` button, .` + BuildModeClass + ` input {
    pointer-events: auto !important;
  }
</style>`

// bridgeScript mirrors the in-sandbox half of the message protocol for
// documents rendered in a real webview. The headless sandbox implements the
// same behavior natively in Dispatch and Click.
const bridgeScript = `<script>
window.addEventListener('message', function(e) {
  var d = e.data || {};
  if (d.type === 'SET_HIGHLIGHT') {
    document.querySelectorAll('.` + HighlightClass + `').forEach(function(el) {
      el.classList.remove('` + HighlightClass + `');
    });
    if (d.id) {
      var target = document.getElementById(d.id) || document.querySelector('.' + d.id);
      if (target) {
        target.classList.add('` + HighlightClass + `');
        target.scrollIntoView({ behavior: 'smooth', block: 'center' });
      }
    }
  }
  if (d.type === 'SET_MODE') {
    document.body.classList.toggle('` + BuildModeClass + `', d.mode === 'build');
  }
});
document.addEventListener('click', function(e) {
  if (!document.body.classList.contains('` + BuildModeClass + `')) return;
  e.preventDefault();
  e.stopPropagation();
  var el = e.target;
  var b = el.getBoundingClientRect();
  var data = {
    id: el.id || (el.tagName.toLowerCase() + '-' + Math.floor(Math.random() * 10000)),
    tagName: el.tagName,
    text: (el.innerText || '').substring(0, 30),
    className: el.className,
    attributes: {},
    rect: { top: b.top, left: b.left, width: b.width, height: b.height }
  };
  for (var i = 0; i < el.attributes.length; i++) {
    data.attributes[el.attributes[i].name] = el.attributes[i].value;
  }
  window.parent.postMessage({ type: 'STUDIO_INTERACT', element: data }, '*');
}, true);
</script>`

// ComposeDocument builds the full sandbox document from a screen's markup
// and its script (app code plus navigation glue). The highlight style block
// goes in head; the script and the bridge replace the mount marker. wired is
// false when the marker is missing, the degraded-but-non-fatal static case.
func ComposeDocument(markup, script string) (doc string, wired bool) {
	doc = strings.Replace(markup, "</head>", highlightStyle+"</head>", 1)
	wired = strings.Contains(doc, ScriptMount)
	if wired {
		doc = strings.Replace(doc, ScriptMount, "<script>"+script+"</script>"+bridgeScript, 1)
	}
	return doc, wired
}
