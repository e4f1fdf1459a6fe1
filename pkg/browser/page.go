//go:build js && wasm

package browser

import (
	"errors"
	"strings"
	"syscall/js"

	"github.com/vango-dev/cfsui/pkg/nav"
)

// ErrNoElement is returned by SetHTML when the selector matches nothing.
var ErrNoElement = errors.New("browser: no element matches selector")

// ActiveClass marks the highlighted navigation item.
const ActiveClass = "active"

// Page implements nav.Page on window.document and window.history.
type Page struct {
	window   js.Value
	document js.Value
	history  js.Value
	location js.Value

	funcs []js.Func
}

var _ nav.Page = (*Page)(nil)

// New returns a page for the global window.
func New() *Page {
	w := js.Global()
	return &Page{
		window:   w,
		document: w.Get("document"),
		history:  w.Get("history"),
		location: w.Get("location"),
	}
}

func (p *Page) Path() string {
	return p.location.Get("pathname").String() + p.location.Get("search").String()
}

func (p *Page) PushState(url string) {
	p.history.Call("pushState", js.Null(), "", url)
}

func (p *Page) ReplaceState(url string) {
	p.history.Call("replaceState", js.Null(), "", url)
}

func (p *Page) SetHTML(selector, html string) error {
	el := p.document.Call("querySelector", selector)
	if el.IsNull() {
		return ErrNoElement
	}
	el.Set("innerHTML", html)
	return nil
}

// Template reads the text of the <script type="text/template"> element
// with the given id.
func (p *Page) Template(id string) (string, bool) {
	el := p.document.Call("getElementById", id)
	if el.IsNull() {
		return "", false
	}
	return el.Get("textContent").String(), true
}

func (p *Page) SetActive(group, id string) {
	items := p.document.Call("querySelectorAll", group)
	for i := 0; i < items.Length(); i++ {
		items.Index(i).Get("classList").Call("remove", ActiveClass)
	}
	el := p.document.Call("querySelector", group+id)
	if !el.IsNull() {
		el.Get("classList").Call("add", ActiveClass)
	}
}

// Bind routes link clicks and popstate events to c. Links opt out with the
// "noajax" class, a data-noajax, download or target attribute, or a
// modifier key.
func (p *Page) Bind(c *nav.Controller) {
	onClick := js.FuncOf(func(this js.Value, args []js.Value) any {
		ev := args[0]
		if ev.Get("defaultPrevented").Bool() || ev.Get("button").Int() != 0 {
			return nil
		}
		a := ev.Get("target").Call("closest", "a")
		if a.IsNull() {
			return nil
		}
		href := a.Call("getAttribute", "href")
		if href.IsNull() {
			return nil
		}
		if c.Click(href.String(), optedOut(ev, a)) {
			ev.Call("preventDefault")
		}
		return nil
	})
	onPop := js.FuncOf(func(this js.Value, args []js.Value) any {
		c.PopState(p.Path())
		return nil
	})

	p.document.Call("addEventListener", "click", onClick)
	p.window.Call("addEventListener", "popstate", onPop)
	p.funcs = append(p.funcs, onClick, onPop)
}

// Release removes the listeners installed by Bind.
func (p *Page) Release() {
	for i, fn := range p.funcs {
		if i%2 == 0 {
			p.document.Call("removeEventListener", "click", fn)
		} else {
			p.window.Call("removeEventListener", "popstate", fn)
		}
		fn.Release()
	}
	p.funcs = nil
}

func optedOut(ev, a js.Value) bool {
	for _, key := range []string{"metaKey", "ctrlKey", "shiftKey", "altKey"} {
		if ev.Get(key).Bool() {
			return true
		}
	}
	if a.Get("classList").Call("contains", "noajax").Bool() {
		return true
	}
	for _, attr := range []string{"data-noajax", "download"} {
		if a.Call("hasAttribute", attr).Bool() {
			return true
		}
	}
	target := a.Call("getAttribute", "target")
	return !target.IsNull() && !strings.EqualFold(target.String(), "_self")
}
