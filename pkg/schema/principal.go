package schema

type UserRole string

const (
	StudioOwnerRole  UserRole = "studio_owner"
	StudioMemberRole UserRole = "studio_member"
)

// Principal is the authenticated caller. StudioID is the studio its credentials were issued for.
type Principal struct {
	UserID   string
	StudioID string
	Role     UserRole
}
