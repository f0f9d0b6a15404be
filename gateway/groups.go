package gateway

import (
	"github.com/janelia-flyem/ezimage/ezimage"
	"github.com/janelia-flyem/ezimage/store"
)

// SetGroup switches the connection's group context to groupID, but only if
// the logged-in user owns or belongs to that group.  Switching blindly lets
// requests target groups the user cannot read, which surfaces as confusing
// server-side errors.  Returns whether the context was changed.
func SetGroup(conn *Conn, groupID int64) (bool, error) {
	owners, members, err := conn.GroupMembers(groupID)
	if err != nil {
		return false, err
	}
	userID := conn.session.UserID
	for _, id := range append(owners, members...) {
		if id == userID {
			conn.SetGroupContext(groupID)
			return true, nil
		}
	}
	ezimage.Warningf("User %d is not a member of Group %d\n", userID, groupID)
	return false, nil
}

// WithAllGroups runs fn with the connection's group context widened to
// every group the user can read, restoring the previous context when fn
// returns.  Accessors that should see objects outside the current group are
// wrapped in this at the call site.
func WithAllGroups(conn *Conn, fn func() error) error {
	prev := conn.GroupContext()
	conn.SetGroupContext(store.AllGroups)
	defer conn.SetGroupContext(prev)
	return fn()
}
