package server

import "net/http"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

// indexHTML is a minimal chat page that talks to /ws/pipeline.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Confidant</title>
<style>
body { font-family: -apple-system, sans-serif; max-width: 680px; margin: 2rem auto; padding: 0 1rem; color: #1f2328; }
#log { border: 1px solid #d0d7de; border-radius: 8px; padding: 1rem; height: 420px; overflow-y: auto; }
.msg { margin: 0.5rem 0; padding: 0.5rem 0.75rem; border-radius: 8px; white-space: pre-wrap; }
.msg.user { background: #ddf4ff; }
.msg.assistant { background: #f6f8fa; }
.phase { color: #57606a; font-size: 0.8rem; margin: 0.25rem 0; }
form { display: flex; gap: 0.5rem; margin-top: 1rem; }
input[type=text] { flex: 1; padding: 0.5rem; border: 1px solid #d0d7de; border-radius: 6px; }
button { padding: 0.5rem 1rem; border: none; border-radius: 6px; background: #1f883d; color: white; cursor: pointer; }
</style>
</head>
<body>
<h1>Confidant</h1>
<div id="log"></div>
<form id="form">
<input type="text" id="input" placeholder="Say something..." autocomplete="off">
<button type="submit">Send</button>
</form>
<script>
const log = document.getElementById('log');
const form = document.getElementById('form');
const input = document.getElementById('input');
let chatId = '';
const userId = 'local';
const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws/pipeline');

function append(cls, text) {
  const div = document.createElement('div');
  div.className = cls;
  div.textContent = text;
  log.appendChild(div);
  log.scrollTop = log.scrollHeight;
}

ws.onmessage = (e) => {
  const ev = JSON.parse(e.data);
  if (ev.error) { append('phase', 'error: ' + ev.error); return; }
  if (ev.phase === 'complete') {
    append('msg assistant', ev.payload.replyText);
    return;
  }
  if (ev.status === 'in_progress') append('phase', ev.summary);
  if (ev.status === 'error') append('phase', 'failed: ' + ev.summary);
};

form.onsubmit = (e) => {
  e.preventDefault();
  const content = input.value.trim();
  if (!content) return;
  append('msg user', content);
  ws.send(JSON.stringify({user_id: userId, chat_id: chatId, content: content}));
  input.value = '';
};
</script>
</body>
</html>
`
