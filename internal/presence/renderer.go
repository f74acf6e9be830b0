package presence

import (
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// Renderer renders the list of online users.
type Renderer func(users []string) g.Node

// DefaultRenderer provides a simple, unstyled presence list.
func DefaultRenderer(users []string) g.Node {
	return Div(
		ID("online-users"),
		H3(g.Textf("Online (%d)", len(users))),
		Ul(
			g.Map(users, func(u string) g.Node {
				return Li(g.Text(u))
			}),
		),
	)
}
