package auth

// Principal is the authenticated caller attached to a request or socket.
// It satisfies chat.Identity.
type Principal struct {
	Username string
}

// PrincipalName returns the user name, or false for a nil or empty principal.
func (p *Principal) PrincipalName() (string, bool) {
	if p == nil || p.Username == "" {
		return "", false
	}
	return p.Username, true
}
