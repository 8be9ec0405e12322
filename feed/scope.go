package feed

import "github.com/kabsume/campusfeed/models"

// Scope is the visibility tier deciding which authors' posts a viewer sees.
type Scope string

const (
	ScopeFollowing Scope = models.ScopeFollowing
	ScopeProgram   Scope = models.ScopeProgram
	ScopeCollege   Scope = models.ScopeCollege
	ScopeCampus    Scope = models.ScopeCampus
	ScopeAll       Scope = models.ScopeAll
)

// ParseScope validates a scope string from the wire. The zero value of the
// tab selector is "following", so empty maps there.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeFollowing, "":
		return ScopeFollowing, nil
	case ScopeProgram:
		return ScopeProgram, nil
	case ScopeCollege:
		return ScopeCollege, nil
	case ScopeCampus:
		return ScopeCampus, nil
	case ScopeAll:
		return ScopeAll, nil
	default:
		return "", ErrInvalidScope
	}
}

func (s Scope) String() string { return string(s) }
