package models

// UserRole represents the roles carried in access tokens.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleAttorney  UserRole = "ATTORNEY"
	RoleParalegal UserRole = "PARALEGAL"
)
