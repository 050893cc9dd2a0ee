package domain

// Operator roles accepted by the admin surface. Admins may mutate tenant
// data (migrate, rollback, repair, bootstrap); operators are read-only.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)
