package models

// User represents a row in the PostgreSQL users table.
type User struct {
	Username  string `json:"username"`
	Password  string `json:"-"` // bcrypt hash, never serialize
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName joins the first and last name for display.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
