package auth

// Operation classifies what a caller wants to do with a resource.
type Operation int

const (
	OpRead Operation = iota
	OpWrite
	OpDelete
)

// Authorize decides access to a resource owned by ownerID. Pure function,
// no I/O: admins may perform any operation, owners may touch their own
// resources, anonymous callers are always denied. Published listings are
// additionally readable by anyone; that widening lives in Visible.
func Authorize(caller *User, ownerID int64, op Operation) bool {
	if caller == nil {
		return false
	}
	switch op {
	case OpRead, OpWrite, OpDelete:
		return caller.Role == RoleAdmin || caller.ID == ownerID
	default:
		return false
	}
}

// Visible reports whether caller may see a listing in the given publication
// state. Published listings are public, drafts exist only for their owner
// and admins. A caller that fails this check must be answered exactly as if
// the listing did not exist, so drafts are not enumerable.
func Visible(caller *User, ownerID int64, published bool) bool {
	if published {
		return true
	}
	return Authorize(caller, ownerID, OpRead)
}
