package tui

import "github.com/kingrea/mortgage-portal/internal/portal"

// Surface is the screen the identity is routed to.
type Surface int

const (
	SurfaceLogin Surface = iota
	SurfaceUnderwriter
	SurfaceBorrower
	SurfaceInvalidRole
)

func (s Surface) String() string {
	switch s {
	case SurfaceLogin:
		return "login"
	case SurfaceUnderwriter:
		return "underwriter"
	case SurfaceBorrower:
		return "borrower"
	default:
		return "invalid-role"
	}
}

// SurfaceFor picks the screen for identity. No identity means login.
func SurfaceFor(identity *portal.Identity) Surface {
	if identity == nil {
		return SurfaceLogin
	}
	if !identity.Role.Valid() {
		return SurfaceInvalidRole
	}
	if identity.Role == portal.RoleUnderwriter {
		return SurfaceUnderwriter
	}
	return SurfaceBorrower
}
