package gate

import "context"

// Policy defines authorization rules for one resource type.
// For list/create checks resource may be nil (context-only check).
type Policy[U any] interface {
	Can(ctx context.Context, subject U, action Action, resource any) bool
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc[U any] func(ctx context.Context, subject U, action Action, resource any) bool

func (f PolicyFunc[U]) Can(ctx context.Context, subject U, action Action, resource any) bool {
	return f(ctx, subject, action, resource)
}

// AllowSubjects builds a policy that permits every action for the listed
// subjects and denies everyone else. Useful for role-gated resources.
func AllowSubjects[U comparable](subjects ...U) Policy[U] {
	allowed := make(map[U]bool, len(subjects))
	for _, s := range subjects {
		allowed[s] = true
	}
	return PolicyFunc[U](func(_ context.Context, subject U, _ Action, _ any) bool {
		return allowed[subject]
	})
}
