// Package templates renders the server-side HTML of the shipment manager.
//
// Components are plain templ.Components built with templ.ComponentFunc, so
// the package needs no code generation step.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// htmlWriter accumulates the first write error so components can emit
// markup without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (hw *htmlWriter) raw(s string) {
	if hw.err != nil {
		return
	}
	_, hw.err = io.WriteString(hw.w, s)
}

func (hw *htmlWriter) rawf(format string, args ...any) {
	hw.raw(fmt.Sprintf(format, args...))
}

// text writes s HTML-escaped.
func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

func (hw *htmlWriter) component(ctx context.Context, c templ.Component) {
	if hw.err != nil {
		return
	}
	hw.err = c.Render(ctx, hw.w)
}

// ErrorAlert renders a dismissable error box with the user message, the
// suggested action and the support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<div class="alert alert-error" role="alert">`)
		hw.raw(`<p class="alert-message">`)
		hw.text(message)
		hw.raw(`</p>`)
		if action != "" {
			hw.raw(`<p class="alert-action">`)
			hw.text(action)
			hw.raw(`</p>`)
		}
		if code != "" {
			hw.raw(`<p class="alert-code">Code: `)
			hw.text(code)
			hw.raw(`</p>`)
		}
		hw.raw(`</div>`)
		return hw.err
	})
}
