package opts

import (
	"github.com/walteh/safecopy/pkg/fsx"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	FS         *fsx.FS
	ConfigFile string
	Debug      bool
}
