package rbac

// Role names. Keep these stable; they are part of the session-token contract.
//
// owner: full control, including workspace settings and quota
// operator: day-to-day campaign work (ingest, runs, exports)
// viewer: read-only status and summaries
const (
	RoleOwner    = "owner"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

func IsOwner(role string) bool { return role == RoleOwner }

// CanOperate reports whether the role may mutate campaign state.
func CanOperate(role string) bool {
	return role == RoleOwner || role == RoleOperator
}
