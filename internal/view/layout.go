package view

import (
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

const (
	htmxScript   = "https://unpkg.com/htmx.org@2.0.4"
	htmxWSScript = "https://unpkg.com/htmx-ext-ws@2.0.2/ws.js"
)

// Layout wraps body in the shared HTML document.
func Layout(title string, flash FlashData, body ...g.Node) g.Node {
	return Doctype(
		HTML(
			Lang("en"),
			Head(
				Meta(Charset("utf-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
				TitleEl(g.Text(title)),
				Link(Rel("stylesheet"), Href("/static/app.css")),
				Script(Src(htmxScript)),
				Script(Src(htmxWSScript)),
			),
			Body(
				Flashes(flash),
				Main(body...),
			),
		),
	)
}

// Flashes renders the pending flash messages, or nothing.
func Flashes(flash FlashData) g.Node {
	if flash.Empty() {
		return nil
	}
	return Div(
		ID("flashes"),
		g.Map(flash.Success, func(m string) g.Node {
			return Div(Class("flash flash-success"), g.Attr("role", "status"), g.Text(m))
		}),
		g.Map(flash.Error, func(m string) g.Node {
			return Div(Class("flash flash-error"), g.Attr("role", "alert"), g.Text(m))
		}),
	)
}
