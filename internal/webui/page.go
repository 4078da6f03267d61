package webui

import (
	"html/template"
	"io"

	"github.com/tobert/opsview/internal/refresh"
	"github.com/tobert/opsview/internal/render"
)

type pageData struct {
	Title       string
	AutoRefresh int
	Bootstrap   bool
	Panels      []pagePanel
	Actions     []string
	Modal       template.HTML
	ModalScript template.JS
}

type pagePanel struct {
	ID         string
	Title      string
	Kind       string
	Endpoint   string
	Filterable bool
	HTML       template.HTML
}

var pageTemplate = template.Must(template.New("page").Parse(tmplPage))

// renderPage writes the dashboard. Panel bodies are trusted markup: every
// data-derived string in them was escaped by the renderers.
func (s *Server) renderPage(w io.Writer) error {
	board := s.ctrl.Board()

	data := pageData{
		Title:       s.opts.Title,
		AutoRefresh: int(s.opts.AutoRefresh.Seconds()),
		Bootstrap:   s.opts.Shell.Name() == "bootstrap",
		Modal:       template.HTML(s.opts.Shell.Skeleton()),
		ModalScript: template.JS(s.opts.Shell.OpenScript()),
	}
	if s.opts.Control != nil {
		data.Actions = s.opts.Control.Actions()
	}

	for _, t := range s.ctrl.Targets() {
		p := pagePanel{
			ID:         t.ID,
			Title:      t.Title,
			Kind:       string(t.Kind),
			Endpoint:   "/api/panels/" + t.ID,
			Filterable: t.Kind != refresh.KindSeries,
			HTML:       template.HTML(render.Notice("Loading…")),
		}
		if p.Title == "" {
			p.Title = t.ID
		}
		if c, ok := board.Get(t.ID); ok {
			p.HTML = template.HTML(c.HTML)
		}
		data.Panels = append(data.Panels, p)
	}

	return pageTemplate.Execute(w, data)
}

const tmplPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
{{if .Bootstrap}}<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css">{{end}}
<style>
body { font-family: system-ui, sans-serif; margin: 1rem; }
.panel { border: 1px solid #ddd; border-radius: 4px; margin-bottom: 1rem; padding: .5rem; }
.panel-head { display: flex; gap: .5rem; align-items: center; }
.panel-head h2 { font-size: 1rem; margin: 0; flex: 1; }
.panel-body { overflow-x: auto; }
tr[data-detail-id] { cursor: pointer; }
.sparkline polyline, .trace-histogram polyline { fill: none; stroke: currentColor; stroke-width: 1.5; }
.sparkline .baseline, .trace-histogram .baseline { stroke: #ccc; stroke-width: 1; }
.alert-danger { color: #842029; background: #f8d7da; padding: .5rem; }
pre.raw { white-space: pre-wrap; word-break: break-all; }
</style>
</head>
<body data-auto-refresh="{{.AutoRefresh}}">
<header class="panel-head">
  <h1>{{.Title}}</h1>
  <span id="opsview-status" class="text-muted">connecting</span>
  {{range .Actions}}<button type="button" data-control-action="{{.}}">{{.}}</button>{{end}}
</header>
<main>
{{range .Panels}}
<section class="panel" data-panel="{{.ID}}" data-kind="{{.Kind}}" data-endpoint="{{.Endpoint}}">
  <div class="panel-head">
    <h2>{{.Title}}</h2>
    {{if .Filterable}}<input type="search" placeholder="Filter rows" data-filter-target="{{.ID}}">{{end}}
    <button type="button" data-refresh-target="{{.ID}}">Refresh</button>
  </div>
  <div class="panel-body">{{.HTML}}</div>
</section>
{{end}}
</main>
{{.Modal}}
{{if .Bootstrap}}<script src="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/js/bootstrap.bundle.min.js"></script>{{end}}
<script>
{{.ModalScript}}
(function () {
  var filters = {};
  var ws = null;
  var auto = parseInt(document.body.dataset.autoRefresh || '0', 10);
  var status = document.getElementById('opsview-status');

  function panelBody(id) {
    var el = document.querySelector('[data-panel="' + CSS.escape(id) + '"] .panel-body');
    return el;
  }
  function apply(p) {
    var el = panelBody(p.target);
    if (el) { el.innerHTML = p.html; }
  }
  function send(id) {
    if (ws && ws.readyState === WebSocket.OPEN) {
      ws.send(JSON.stringify({panel: id, query: filters[id] || ''}));
    }
  }
  function connect() {
    var proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
    ws = new WebSocket(proto + '//' + location.host + '/ws');
    ws.onopen = function () {
      status.textContent = 'live';
      Object.keys(filters).forEach(send);
    };
    ws.onmessage = function (ev) {
      var u = JSON.parse(ev.data);
      (u.panels || []).forEach(apply);
    };
    ws.onclose = function () {
      status.textContent = 'reconnecting';
      setTimeout(connect, 2000);
    };
  }
  function poll() {
    document.querySelectorAll('[data-endpoint]').forEach(function (el) {
      var id = el.dataset.panel;
      fetch(el.dataset.endpoint + '?q=' + encodeURIComponent(filters[id] || ''), {cache: 'no-store'})
        .then(function (r) { return r.text(); })
        .then(function (html) { apply({target: id, html: html}); });
    });
  }
  function sparklines(root) {
    root.querySelectorAll('[data-points]').forEach(function (el) {
      var q = 'points=' + encodeURIComponent(el.dataset.points) +
        '&w=' + (el.dataset.width || '') + '&h=' + (el.dataset.height || '');
      fetch('/api/sparkline?' + q).then(function (r) { return r.text(); })
        .then(function (svg) { el.innerHTML = svg; });
    });
  }
  function showDetail(title, body) {
    if (window.opsviewOpenDetail) { window.opsviewOpenDetail(title, body); }
  }
  function failure(msg) {
    var d = document.createElement('div');
    d.className = 'alert alert-danger';
    d.setAttribute('role', 'alert');
    d.textContent = msg;
    return d.outerHTML;
  }

  document.addEventListener('input', function (e) {
    var t = e.target.closest('[data-filter-target]');
    if (!t) { return; }
    var id = t.dataset.filterTarget;
    filters[id] = t.value;
    if (ws && ws.readyState === WebSocket.OPEN) { send(id); } else { poll(); }
  });

  document.addEventListener('click', function (e) {
    var btn = e.target.closest('[data-refresh-target]');
    if (btn) {
      var id = btn.dataset.refreshTarget;
      fetch('/api/panels/' + encodeURIComponent(id) + '/refresh?q=' + encodeURIComponent(filters[id] || ''), {method: 'POST'})
        .then(function (r) { return r.text(); })
        .then(function (html) { apply({target: id, html: html}); });
      return;
    }
    var act = e.target.closest('[data-control-action]');
    if (act) {
      fetch('/api/control/' + encodeURIComponent(act.dataset.controlAction), {
        method: 'POST', headers: {'Content-Type': 'application/json'}, body: '{}'
      }).then(function (r) { return r.json(); }).then(function (res) {
        if (res.error) { showDetail(act.dataset.controlAction, failure(res.error.message)); }
      });
      return;
    }
    var row = e.target.closest('[data-detail-kind][data-detail-id]');
    if (row) {
      var kind = row.dataset.detailKind, rid = row.dataset.detailId;
      fetch('/api/detail/' + encodeURIComponent(kind) + '/' + encodeURIComponent(rid), {cache: 'no-store'})
        .then(function (r) {
          if (!r.ok) { throw new Error('HTTP ' + r.status + ' ' + r.statusText); }
          return r.json();
        })
        .then(function (p) { showDetail(p.title, p.body); })
        .catch(function (err) { showDetail(kind + ' ' + rid, failure('Failed to load: ' + err.message)); });
    }
  });

  sparklines(document);
  if ('WebSocket' in window) {
    connect();
  } else if (auto > 0) {
    status.textContent = 'polling';
    setInterval(poll, auto * 1000);
  }
})();
</script>
</body>
</html>
`
