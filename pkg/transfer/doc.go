/*
Package transfer copies or moves one path while honoring a conflict policy.

	  Execute(req)
	     │
	     ├─ Stat(source) ── missing ──► NotFoundError, or a no-op result
	     │
	     ├─ Stat(destination)
	     │
	     ├─ conflict.Resolver ── declined ──► skipped result, or ExistsError
	     │        (may back up the occupant)
	     │
	     └─ fsx.Primitive Copy/Move ── failure ──► IOError

With WithDryRun the engine stops after resolution: the result names the
destination that would be used, and no backup rename happens.
*/
package transfer
