package ir

import "github.com/google/uuid"

// freshName mints a value or node name that cannot collide with anything
// already in the model, or with a name synthesized concurrently by another
// graph under test. The optimizer never parses names, so collision-freedom
// is the only property that matters; opType is kept only as a debugging
// aid, the uuid suffix is what actually guarantees uniqueness.
func freshName(opType string) string {
	suffix := uuid.NewString()[:8]
	if opType == "" {
		return "_t_" + suffix
	}
	return "_t_" + opType + "_" + suffix
}
