package exporter

import (
	"bytes"
	"fmt"
	"text/template"
)

// indexTemplate is the boot page for exported web builds. The runtime
// loads the atlas manifest and the script bundle relative to it.
const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0, user-scalable=no">
    <title>{{.ProjectName}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        html, body {
            width: 100%;
            height: 100%;
            overflow: hidden;
            background-color: #1a1a1a;
        }
        #canvas {
            display: block;
            width: 100%;
            height: 100%;
            touch-action: none;
        }
        #loading {
            position: absolute;
            top: 50%;
            left: 50%;
            transform: translate(-50%, -50%);
            color: #fff;
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            font-size: 16px;
            text-align: center;
        }
        #loading.hidden { display: none; }
        .spinner {
            width: 40px;
            height: 40px;
            margin: 0 auto 16px;
            border: 3px solid #333;
            border-top-color: #3b82f6;
            border-radius: 50%;
            animation: spin 1s linear infinite;
        }
        @keyframes spin { to { transform: rotate(360deg); } }
    </style>
</head>
<body>
    <div id="loading">
        <div class="spinner"></div>
        <div>Loading...</div>
    </div>
    <canvas id="canvas"></canvas>

    <script type="module">
        import { main } from './scripts/{{.BundleName}}';

        function resizeCanvas() {
            const canvas = document.getElementById('canvas');
            const dpr = window.devicePixelRatio || 1;
            canvas.width = window.innerWidth * dpr;
            canvas.height = window.innerHeight * dpr;
        }
        window.addEventListener('resize', resizeCanvas);
        resizeCanvas();

        fetch('./atlas.json')
            .then((res) => res.json())
            .then((manifest) => {
                document.getElementById('loading').classList.add('hidden');
                main(document.getElementById('canvas'), manifest);
            })
            .catch((err) => {
                console.error('Failed:', err);
                document.getElementById('loading').innerHTML =
                    '<div style="color:#f87171">Error: ' + err.message + '</div>';
            });
    </script>
</body>
</html>
`

type indexData struct {
	ProjectName string
	BundleName  string
}

// renderIndexHTML produces the index.html bytes for a project
func renderIndexHTML(projectName, bundleName string) ([]byte, error) {
	tmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, indexData{ProjectName: projectName, BundleName: bundleName}); err != nil {
		return nil, fmt.Errorf("failed to render index.html: %w", err)
	}
	return buf.Bytes(), nil
}
