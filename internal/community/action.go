package community

import "ai-compass/internal/apperror"

// Action is one of the mutating operations on community threads
type Action int

const (
	ActionCreate Action = iota + 1
	ActionComment
	ActionLike
	ActionFlag
	ActionDeleteComment
	ActionDeleteThread
)

var actionNames = map[Action]string{
	ActionCreate:        "create",
	ActionComment:       "comment",
	ActionLike:          "like",
	ActionFlag:          "flag",
	ActionDeleteComment: "deleteComment",
	ActionDeleteThread:  "deleteThread",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAction maps the wire name of an action to its Action
func ParseAction(name string) (Action, error) {
	for a, n := range actionNames {
		if n == name {
			return a, nil
		}
	}
	return 0, apperror.Validation("unknown action")
}

// AdminOnly reports whether the action requires the admin role
func (a Action) AdminOnly() bool {
	return a == ActionFlag || a == ActionDeleteComment || a == ActionDeleteThread
}
