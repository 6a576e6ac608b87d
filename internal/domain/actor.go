package domain

type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// Actor is the already-authenticated caller of an operation.
type Actor struct {
	UserID int64
	Role   Role
}

func (a Actor) Privileged() bool {
	return a.Role == RoleAdmin || a.Role == RoleStaff
}
