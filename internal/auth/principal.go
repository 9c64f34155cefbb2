package auth

import "github.com/gin-gonic/gin"

const principalKey = "principal"

// Principal is the authenticated identity attached to every command this
// core issues. A zero Principal means "not signed in".
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (p Principal) IsZero() bool {
	return p.ID == ""
}

// FromContext extracts the principal placed by the auth middleware.
func FromContext(c *gin.Context) (Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok && !p.IsZero()
}
