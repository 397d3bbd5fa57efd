//go:build linux || darwin

package sink

import "golang.org/x/sys/unix"

// bumpFileLimit raises RLIMIT_NOFILE to its hard ceiling for this process,
// following the teacher's resource-sizing habit of scaling process limits
// to the workload (muscato/muscato.go's concurrency tuning) applied here
// to the number of simultaneously open per-sample output files.
func bumpFileLimit() {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return
	}
	if rlim.Cur >= rlim.Max {
		return
	}
	rlim.Cur = rlim.Max
	_ = unix.Setrlimit(unix.RLIMIT_NOFILE, &rlim)
}
