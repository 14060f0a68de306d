/*
Package batch runs plan files.

	  plan ──► Expand ──► jobs (sorted, ignores dropped)
	                        │
	               groupByDestination
	                        │
	      ┌─────────────────┼─────────────────┐
	      ▼                 ▼                 ▼
	  group a/x         group b/y         group c/z     errgroup, SetLimit(concurrency)
	  job 0, job 3      job 1             job 2         sequential inside a group
	      │                 │                 │
	      └──────► transfer.Engine.Execute ◄──┘
	                        │
	                     Report

Jobs that request the same destination never run concurrently, so index
renaming stays deterministic: the earlier job always gets the lower index.
The first failing job cancels groups that have not started; jobs already
running finish.
*/
package batch
