package valueobject

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// IsModerator сообщает, может ли роль принимать решения по заявкам и наблюдениям.
func (r Role) IsModerator() bool {
	return r == RoleAdmin
}
