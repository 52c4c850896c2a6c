package api

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>RenderWatch</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            background: #1e1e1e;
            color: #ddd;
            margin: 0;
            padding: 20px;
        }
        #frame { max-width: 100%; image-rendering: pixelated; border: 1px solid #444; }
        #status { font-family: monospace; margin: 10px 0; }
        .success { color: #6c6; }
        .runtime_failure, .invalid_artifact { color: #e66; }
        .lock_contention { color: #cc6; }
        button { padding: 6px 14px; }
    </style>
</head>
<body>
    <h1>RenderWatch</h1>
    <div id="status">waiting for first run...</div>
    <button onclick="fetch('/api/reset', {method: 'POST'})">Re-run</button>
    <p><img id="frame" src="/stream" alt="output"></p>
    <script>
        const status = document.getElementById('status');
        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/api/events');
        ws.onmessage = (msg) => {
            const rep = JSON.parse(msg.data);
            if (!rep.outcome) {
                status.textContent = 'reset requested';
                status.className = '';
                return;
            }
            const o = rep.outcome;
            let text = o.kind + ' @ ' + new Date(rep.time).toLocaleTimeString();
            if (o.kind === 'success' || o.kind === 'runtime_failure') {
                text += ' (' + o.elapsed_ms.toFixed(1) + 'ms)';
            }
            if (o.error) {
                text += ': ' + o.error;
            }
            status.textContent = text;
            status.className = o.kind;
        };
    </script>
</body>
</html>
`
