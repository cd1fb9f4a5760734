package model

// User represents a row of the `users` table.  Accounts are owned by the
// external authentication provider; this service only reads the display
// name of volunteers for organizer views.
//
// Fields:
//	ID    – identity shared with the token subject.
//	Name  – display name.
//	Email – contact address.
type User struct {
	ID    string // users.id
	Name  string // users.name
	Email string // users.email
}

// Roles carried in the access token's "role" claim.
const (
	RoleVolunteer = "VOLUNTEER"
	RoleOrganizer = "ORGANIZER"
)
