// Package config loads safecopy plan files.
//
// 	            +-------------+
// 	            |    Plan     |
// 	            | (transfers) |
// 	            +------+------+
// 	                   |
// 	      +------------+------------+
// 	      |            |            |
// 	+-----+----+  +----+----+  +----+----+
// 	|   YAML   |  |   HCL   |  |  JSON   |
// 	|  Parser  |  | Parser  |  | Parser  |
// 	+----------+  +---------+  +---------+
//
// 🎯 Purpose:
// - Picks a parser by file extension (Register / GetParser)
// - Decodes the plan and its default conflict policy
// - Fills defaults and rejects values no transfer could honor
//
// 🔄 Flow:
// 1. Load reads the file through an afero.Fs
// 2. The registered parser decodes it
// 3. Validate cleans paths and checks modes, limits and patterns
// 4. PolicyFor merges a transfer's policy block over the plan's
//
// 📝 Example plan (YAML):
//
// 	policy:
// 	  mode: index
// 	  separator: "-"
// 	  limit: 10
// 	ignore_patterns:
// 	  - "**/*.tmp"
// 	concurrency: 4
// 	transfers:
// 	  - source: inbox/*.pdf
// 	    destination: archive/
// 	    verify_type: true
// 	  - source: notes.txt
// 	    destination: backup/notes.txt
// 	    move: true
// 	    policy:
// 	      mode: backup
//
// The same plan in HCL uses one transfer block per entry, and may read the
// environment with env.NAME:
//
// 	policy {
// 	  mode = "index"
// 	}
// 	transfer {
// 	  source      = "inbox/*.pdf"
// 	  destination = "${env.HOME}/archive/"
// 	}
//
// A destination ending in "/" (or any glob source) names a directory; each
// matched source keeps its base name inside it.
package config
