package view

import (
	"github.com/a-h/templ"
	"github.com/nfrund/livechat/internal/chat"
	"github.com/nfrund/livechat/internal/presence"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	. "maragu.dev/gomponents/html"
)

// MessagesTarget is the element chat lines are appended to.
const MessagesTarget = "chat-messages"

// LoginData is the view model for the login page.
type LoginData struct {
	Username string
	Flash    FlashData
}

// LoginPage renders the sign-in form.
func LoginPage(data LoginData) templ.Component {
	return AdaptGomponentToTempl(Layout("Sign in", data.Flash,
		H1(g.Text("Sign in")),
		Form(
			Method("post"), Action("/login"), Class("login"),
			Label(For("username"), g.Text("Username")),
			Input(ID("username"), Name("username"), Type("text"), Value(data.Username),
				AutoComplete("username"), Required(), AutoFocus()),
			Label(For("password"), g.Text("Password")),
			Input(ID("password"), Name("password"), Type("password"),
				AutoComplete("current-password"), Required()),
			Button(Type("submit"), g.Text("Sign in")),
		),
	))
}

// ChatData is the view model for the chat page.
type ChatData struct {
	Username string
	Online   []string
	Flash    FlashData
	// Presence overrides the online list renderer when set.
	Presence presence.Renderer
}

// ChatPage renders the room. Lines arrive over the /ws socket as
// out-of-band fragments appended to MessagesTarget; the form posts lines
// back over the same socket.
func ChatPage(data ChatData) templ.Component {
	renderOnline := data.Presence
	if renderOnline == nil {
		renderOnline = presence.DefaultRenderer
	}

	return AdaptGomponentToTempl(Layout("Chat", data.Flash,
		Header(
			Class("chat-header"),
			Span(g.Text("Signed in as "), Strong(g.Text(data.Username))),
			A(Href("/logout"), g.Text("Sign out")),
		),
		Div(
			Class("chat"),
			hx.Ext("ws"),
			g.Attr("ws-connect", "/ws"),
			Div(ID(MessagesTarget), Class("messages"), g.Attr("aria-live", "polite")),
			Form(
				ID("chat-form"),
				g.Attr("ws-send", ""),
				g.Attr("hx-on::ws-after-send", "this.reset()"),
				Input(Name("text"), Type("text"), Placeholder("Say something"),
					AutoComplete("off"), Required(), AutoFocus()),
				Button(Type("submit"), g.Text("Send")),
			),
		),
		Aside(
			hx.Get("/online/fragment"),
			hx.Trigger("every 10s"),
			hx.Swap("innerHTML"),
			renderOnline(data.Online),
		),
	))
}

// MessageFragment renders one chat line as an htmx out-of-band swap that
// appends it to MessagesTarget.
func MessageFragment(m chat.Message) g.Node {
	return Div(
		hx.SwapOOB("beforeend:#"+MessagesTarget),
		Div(
			Class("message"),
			Span(Class("time"), g.Text(m.Time.Format("15:04:05"))),
			Span(Class("user"), g.Text(m.Username)),
			Span(Class("text"), g.Text(m.Text)),
		),
	)
}
