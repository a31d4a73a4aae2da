/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scaffold holds the starter file set for a new app project. The
// templates target a Capacitor-wrapped PWA: index.html with the script mount
// the preview bridge hooks into, app.js, a web manifest and the native
// wrapper config, app and package name substituted in.
package scaffold

import (
	"strings"

	"appstudio/internal/domain"
)

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0, user-scalable=no, viewport-fit=cover">
    <title>{{APP_NAME}}</title>
    <link rel="manifest" href="manifest.json">
    <script src="https://cdn.tailwindcss.com"></script>
    <style>
        :root { --safe-area-top: 24px; --safe-area-bottom: 34px; }
        body {
            margin: 0;
            padding: 0;
            background: #f8fafc;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
            -webkit-tap-highlight-color: transparent;
            overflow-x: hidden;
        }
        .android-header { padding-top: var(--safe-area-top); background: #3b82f6; color: white; }
        .safe-bottom { padding-bottom: var(--safe-area-bottom); }
    </style>
</head>
<body>
    <div id="app" class="min-h-screen flex flex-col">
        <header class="android-header p-4 shadow-md sticky top-0 z-10">
            <h1 class="text-xl font-bold">{{APP_NAME}}</h1>
        </header>
        <main class="flex-1 p-6 flex flex-col items-center justify-center gap-6">
            <div id="card-welcome" class="bg-white p-8 rounded-[2rem] shadow-xl border border-slate-100 text-center max-w-sm">
                <div class="w-16 h-16 bg-blue-100 rounded-2xl flex items-center justify-center mx-auto mb-6">
                  <span class="text-3xl">🚀</span>
                </div>
                <h2 class="text-2xl font-black text-slate-800 mb-2">Native Ready</h2>
                <p class="text-slate-500 text-sm leading-relaxed">Your app is powered by Capacitor. You can access the camera, GPS, and more natively.</p>
                <button id="main-btn" class="mt-8 w-full bg-blue-600 text-white py-4 rounded-2xl font-bold shadow-lg shadow-blue-200 active:scale-95 transition-all">
                    Explore Features
                </button>
            </div>
        </main>
        <nav class="bg-white/80 backdrop-blur-md border-t border-slate-200 p-4 flex justify-around items-center safe-bottom">
            <button class="text-blue-600 flex flex-col items-center gap-1">
                <div class="w-6 h-6 bg-blue-600 rounded-lg"></div>
                <span class="text-[10px] font-bold">Home</span>
            </button>
            <button class="text-slate-300 flex flex-col items-center gap-1">
                <div class="w-6 h-6 bg-slate-200 rounded-lg"></div>
                <span class="text-[10px]">Vault</span>
            </button>
        </nav>
    </div>
    <script src="app.js"></script>
</body>
</html>`

const appJSTemplate = `// App Logic & Navigation
document.getElementById('main-btn')?.addEventListener('click', function() {
    var main = document.querySelector('main');
    if (!main) return;

    // Toggle between welcome view and features view
    var featuresView = document.getElementById('features-view');
    var welcomeCard = document.getElementById('card-welcome');

    if (featuresView) {
        featuresView.remove();
        if (welcomeCard) welcomeCard.style.display = '';
        return;
    }

    if (welcomeCard) welcomeCard.style.display = 'none';

    var features = document.createElement('div');
    features.id = 'features-view';
    features.className = 'w-full max-w-sm space-y-4 animate-in';
    features.innerHTML = '<h2 class="text-xl font-black text-slate-800 mb-4">App Features</h2>' +
        '<div class="bg-white p-4 rounded-2xl shadow border border-slate-100 flex items-center gap-4">' +
            '<div class="w-10 h-10 bg-blue-100 rounded-xl flex items-center justify-center text-xl">📷</div>' +
            '<div><p class="font-bold text-slate-800">Camera Access</p><p class="text-xs text-slate-500">Capture photos natively</p></div>' +
        '</div>' +
        '<div class="bg-white p-4 rounded-2xl shadow border border-slate-100 flex items-center gap-4">' +
            '<div class="w-10 h-10 bg-emerald-100 rounded-xl flex items-center justify-center text-xl">📍</div>' +
            '<div><p class="font-bold text-slate-800">GPS Location</p><p class="text-xs text-slate-500">Access device location</p></div>' +
        '</div>' +
        '<div class="bg-white p-4 rounded-2xl shadow border border-slate-100 flex items-center gap-4">' +
            '<div class="w-10 h-10 bg-purple-100 rounded-xl flex items-center justify-center text-xl">🔔</div>' +
            '<div><p class="font-bold text-slate-800">Push Notifications</p><p class="text-xs text-slate-500">Engage users with alerts</p></div>' +
        '</div>' +
        '<button id="back-btn" class="w-full bg-slate-200 text-slate-700 py-3 rounded-2xl font-bold mt-4 active:scale-95 transition-all">← Back to Home</button>';

    main.appendChild(features);

    // Use event delegation on features container to avoid listener leaks
    features.addEventListener('click', function(e) {
        if (e.target && e.target.id === 'back-btn') {
            features.remove();
            if (welcomeCard) welcomeCard.style.display = '';
        }
    });
});

console.log('{{APP_NAME}} loaded');`

const capacitorConfigTemplate = `{
  "appId": "{{PACKAGE_NAME}}",
  "appName": "{{APP_NAME}}",
  "webDir": "www",
  "bundledWebRuntime": false,
  "server": {
    "androidScheme": "https"
  }
}`

const manifestTemplate = `{
  "name": "{{APP_NAME}}",
  "short_name": "{{APP_NAME}}",
  "start_url": "index.html",
  "display": "standalone",
  "background_color": "#ffffff",
  "theme_color": "#3b82f6"
}`

// ScreenTemplate is the blank screen added by the screens panel.
const ScreenTemplate = `<!DOCTYPE html>
<html>
<head>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-slate-50 min-h-screen p-8">
    <h1 class="text-3xl font-black text-slate-800">New Screen</h1>
    <p class="mt-4 text-slate-500">Add logic to this screen using the orchestrator or direct edits.</p>
</body>
</html>`

// InitialFiles returns the starter file set for a fresh project.
func InitialFiles(appName, packageName string) map[string]domain.AppFile {
	sub := func(tpl string) string {
		s := strings.ReplaceAll(tpl, "{{APP_NAME}}", appName)
		return strings.ReplaceAll(s, "{{PACKAGE_NAME}}", packageName)
	}
	out := map[string]domain.AppFile{}
	for path, content := range map[string]string{
		"index.html":            sub(indexTemplate),
		"app.js":                sub(appJSTemplate),
		"capacitor.config.json": sub(capacitorConfigTemplate),
		"manifest.json":         sub(manifestTemplate),
	} {
		out[path] = domain.NewFile(path, content)
	}
	return out
}
