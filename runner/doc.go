// Package runner serializes work per database name.
//
// A Registry owns one Worker per open name. Each Worker runs its commands
// one at a time in submission order on its own goroutine, while workers
// for different names run in parallel. Close and delete requests are
// queued like batches, so they run after every command submitted before
// them.
//
//	registry := runner.NewRegistry(ctx, engine, ps.NewResolver(dir), runner.Config{})
//	if err := registry.OpenSync("app.db", runner.OpenOptions{}); err != nil {
//	    log.Fatal(err)
//	}
//	outcomes, err := registry.SubmitSync("app.db", []core.Statement{
//	    core.NewStatement("SELECT * FROM users WHERE id = ?", 1),
//	})
//
// Every request also has an asynchronous form returning a channel that
// receives exactly one Reply.
package runner
