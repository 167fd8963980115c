package server

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Pose Coach</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: system-ui, sans-serif; background: #111; color: #eee; margin: 0; }
        .app { max-width: 960px; margin: 0 auto; padding: 16px; }
        .header { display: flex; justify-content: space-between; align-items: center; }
        .badge { padding: 2px 8px; border-radius: 8px; background: #444; font-size: 12px; }
        .badge.ok { background: #2e7d32; }
        .grid { display: grid; grid-template-columns: 1fr 1fr; gap: 16px; margin-top: 16px; }
        .panel { background: #1c1c1c; border-radius: 8px; padding: 12px; }
        table { width: 100%; border-collapse: collapse; }
        td { padding: 2px 4px; border-bottom: 1px solid #2a2a2a; font-variant-numeric: tabular-nums; }
        #advice { white-space: pre-wrap; min-height: 3em; }
        form { display: flex; gap: 8px; margin-top: 8px; }
        input { flex: 1; }
    </style>
</head>
<body>
    <div class="app">
        <div class="header">
            <h1>Pose Coach</h1>
            <span class="badge" id="status-badge">Waiting for data...</span>
        </div>
        <div class="grid">
            <div class="panel">
                <h2>Joint angles</h2>
                <table id="angles"></table>
            </div>
            <div class="panel">
                <h2>Positions</h2>
                <table id="positions"></table>
            </div>
        </div>
        <div class="panel" style="margin-top:16px;">
            <h2>Coach</h2>
            <div id="advice"></div>
            <form id="ask">
                <input id="question" placeholder="Ask about your stance">
                <button type="submit">Ask</button>
            </form>
        </div>
    </div>
    <script>
        const badge = document.getElementById('status-badge');
        const advice = document.getElementById('advice');

        function fill(id, rows) {
            const table = document.getElementById(id);
            table.innerHTML = '';
            for (const [name, value] of rows) {
                const tr = table.insertRow();
                tr.insertCell().textContent = name;
                tr.insertCell().textContent = value;
            }
        }

        function render(snap) {
            const angles = Object.entries(snap.angles || {}).sort()
                .map(([k, v]) => [k, v.toFixed(1) + '°']);
            const positions = Object.entries(snap.positions || {}).sort()
                .map(([k, p]) => [k, [p.x, p.y, p.z].map(n => n.toFixed(3)).join(', ')]);
            fill('angles', angles);
            fill('positions', positions);
            badge.textContent = 'Updated ' + new Date(snap.taken_at).toLocaleTimeString();
            badge.classList.add('ok');
        }

        function connect() {
            const proto = location.protocol === 'https:' ? 'wss' : 'ws';
            const ws = new WebSocket(proto + '://' + location.host + '/ws');
            ws.onmessage = (ev) => {
                const msg = JSON.parse(ev.data);
                if (msg.type === 'snapshot' && msg.snapshot) render(msg.snapshot);
                if (msg.type === 'advice' && msg.advice) advice.textContent = msg.advice.text;
            };
            ws.onclose = () => {
                badge.textContent = 'Disconnected';
                badge.classList.remove('ok');
                setTimeout(connect, 2000);
            };
        }

        document.getElementById('ask').addEventListener('submit', async (ev) => {
            ev.preventDefault();
            const q = document.getElementById('question');
            if (!q.value.trim()) return;
            advice.textContent = '...';
            const resp = await fetch('/api/ask', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({question: q.value}),
            });
            const data = await resp.json();
            advice.textContent = data.answer || data.error || '';
        });

        connect();
    </script>
</body>
</html>
`
