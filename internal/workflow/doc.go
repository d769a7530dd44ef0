// Package workflow implements the state-machine engine: definitions made of
// input, auto and terminal states, immutable instance snapshots with an
// audit history, and the dispatch and stabilization algorithms that advance
// them.
//
// A typical lifecycle:
//
//	eng := workflow.NewEngine[*Order](workflow.WithLogger(logger))
//	inst, err := eng.StartAndStabilize(ctx, def, order)
//	res := eng.Dispatch(ctx, def, inst, "pay")
//	if res.Instance.Status == workflow.StatusError {
//		// res.Instance.Err describes the failure
//	}
//
// Guards and actions receive the instance context by value of type C; use a
// pointer or map type when hooks need to mutate it.
package workflow
