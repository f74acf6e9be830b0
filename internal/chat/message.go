package chat

import (
	"fmt"
	"time"
)

// Anonymous is the display name used when no authenticated identity is available.
const Anonymous = "Anonymous"

// Message is a single chat line. It is created once by Service.Add and
// shared by value with every viewer that receives it.
type Message struct {
	Username string    `json:"username"`
	Text     string    `json:"text"`
	Time     time.Time `json:"time"`
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] %s: %s", m.Time.Format(time.RFC3339), m.Username, m.Text)
}

// Identity resolves who is making a call. It mirrors a security context that
// may or may not hold an authenticated principal.
type Identity interface {
	PrincipalName() (string, bool)
}

// IdentityFunc adapts a function to the Identity interface.
type IdentityFunc func() (string, bool)

// PrincipalName implements Identity.
func (f IdentityFunc) PrincipalName() (string, bool) {
	return f()
}

// Named returns an Identity that always resolves to name.
func Named(name string) Identity {
	return IdentityFunc(func() (string, bool) { return name, name != "" })
}

// resolveName maps a possibly absent identity to a display name.
func resolveName(id Identity) string {
	if id == nil {
		return Anonymous
	}
	name, ok := id.PrincipalName()
	if !ok || name == "" {
		return Anonymous
	}
	return name
}
