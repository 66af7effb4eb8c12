// Package engine turns a declarative descriptor tree into a live view bound to
// one shared data object.
//
// Render resolves the initial data (defaults, baselines and caller data
// merged), mounts a field.Controller per leaf and a readiness scope per
// layout, and withholds the view until every leaf hydrated:
//
//	eng, err := engine.Render(ctx, tree,
//		engine.WithInitialData(deep.Data{"age": 30}),
//		engine.WithOnChange(func(data deep.Data, initial bool) { save(data) }),
//	)
//	if err != nil {
//		return err
//	}
//	defer eng.Close()
//	view, ready := eng.View()
//
// All mutations run on a serial dispatcher, so host callbacks may call back
// into the engine (SetData from inside OnChange, for example) without
// deadlocking. An edit reaches the shared object once the edited leaf accepts
// it; OnChange only reports objects that every leaf in the tree accepts.
package engine
