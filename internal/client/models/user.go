package models

// Credentials is the access/refresh token pair of a session. RefreshToken is
// empty when the server did not issue one.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// UserProfile is an immutable snapshot of the signed-in user. Optional text
// fields are empty when unknown.
type UserProfile struct {
	ID        int64
	Username  string
	Email     string
	FirstName string
	LastName  string
	Role      Role
}

func (u UserProfile) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

func (u UserProfile) IsManager() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}
