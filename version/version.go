// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package version reports build information embedded in the running binary.
package version

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"go.astrophena.name/addheader/syncx"
)

// Info holds the version information of a binary.
type Info struct {
	// Name is the command name.
	Name string
	// Version is the module version, or "devel" for local builds.
	Version string
	// Commit is the VCS revision the binary was built from, if known.
	Commit string
	// Dirty reports whether the working tree had uncommitted changes.
	Dirty bool
	// BuildTime is the VCS commit time, if known.
	BuildTime time.Time
	// Go is the version of the Go toolchain that built the binary.
	Go string
}

// String returns a multi-line, human-readable representation of i.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", i.Name, i.Version)
	if i.Commit != "" {
		fmt.Fprintf(&sb, " (%s", i.Commit)
		if i.Dirty {
			sb.WriteString(", dirty")
		}
		sb.WriteString(")")
	}
	sb.WriteString("\n")
	if !i.BuildTime.IsZero() {
		fmt.Fprintf(&sb, "built at %s\n", i.BuildTime.Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "%s %s/%s\n", i.Go, runtime.GOOS, runtime.GOARCH)
	return sb.String()
}

var info syncx.Lazy[Info]

// Version returns the version information of the running binary.
func Version() Info { return info.Get(readInfo) }

// CmdName returns the base name of the running command.
func CmdName() string {
	if len(os.Args) == 0 {
		return "unknown"
	}
	return strings.TrimSuffix(filepath.Base(os.Args[0]), ".exe")
}

func readInfo() Info {
	i := Info{
		Name:    CmdName(),
		Version: "devel",
		Go:      runtime.Version(),
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return i
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		i.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			i.Commit = s.Value
		case "vcs.modified":
			i.Dirty = s.Value == "true"
		case "vcs.time":
			i.BuildTime, _ = time.Parse(time.RFC3339, s.Value)
		}
	}
	return i
}
