package detail

import (
	"fmt"

	"github.com/tobert/opsview/internal/safehtml"
)

// ModalShell is the markup and script that present a detail Panel. One shell
// is chosen at startup and used for the life of the page.
type ModalShell interface {
	Name() string
	// Skeleton is the empty container embedded once in the page.
	Skeleton() string
	// Render returns a filled, static modal for p.
	Render(p Panel) string
	// OpenScript defines window.opsviewOpenDetail(title, bodyHTML).
	OpenScript() string
}

// Shell returns the shell registered under name. An empty name selects the
// inline shell.
func Shell(name string) (ModalShell, error) {
	switch name {
	case "", "inline":
		return InlineShell{}, nil
	case "bootstrap":
		return BootstrapShell{}, nil
	}
	return nil, fmt.Errorf("unknown modal shell %q", name)
}

// BootstrapShell uses a Bootstrap 5 modal.
type BootstrapShell struct{}

func (BootstrapShell) Name() string { return "bootstrap" }

func (BootstrapShell) Skeleton() string {
	return BootstrapShell{}.Render(Panel{})
}

func (BootstrapShell) Render(p Panel) string {
	return fmt.Sprintf(`<div class="modal fade" id="detail-modal" tabindex="-1" aria-hidden="true">`+
		`<div class="modal-dialog modal-lg modal-dialog-scrollable"><div class="modal-content">`+
		`<div class="modal-header"><h5 class="modal-title">%s</h5>`+
		`<button type="button" class="btn-close" data-bs-dismiss="modal" aria-label="Close"></button></div>`+
		`<div class="modal-body">%s</div></div></div></div>`,
		safehtml.Escape(p.Title), p.Body)
}

func (BootstrapShell) OpenScript() string {
	return `window.opsviewOpenDetail = function (title, body) {
  var el = document.getElementById('detail-modal');
  el.querySelector('.modal-title').textContent = title;
  el.querySelector('.modal-body').innerHTML = body;
  bootstrap.Modal.getOrCreateInstance(el).show();
};`
}

// InlineShell uses a native dialog element and needs no framework.
type InlineShell struct{}

func (InlineShell) Name() string { return "inline" }

func (InlineShell) Skeleton() string {
	return InlineShell{}.Render(Panel{})
}

func (InlineShell) Render(p Panel) string {
	return fmt.Sprintf(`<dialog id="detail-modal" class="detail-inline">`+
		`<header><h5 class="detail-title">%s</h5>`+
		`<button type="button" class="detail-close" aria-label="Close">&times;</button></header>`+
		`<section class="detail-body">%s</section></dialog>`,
		safehtml.Escape(p.Title), p.Body)
}

func (InlineShell) OpenScript() string {
	return `window.opsviewOpenDetail = function (title, body) {
  var el = document.getElementById('detail-modal');
  el.querySelector('.detail-title').textContent = title;
  el.querySelector('.detail-body').innerHTML = body;
  el.querySelector('.detail-close').onclick = function () { el.close(); };
  if (!el.open) { el.showModal(); }
};`
}
