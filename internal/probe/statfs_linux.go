package probe

import "golang.org/x/sys/unix"

// statfsResult carries the block accounting fields diskProbe needs out of
// unix.Statfs_t, independent of the field widths that vary across Linux's
// other GOARCH-specific Statfs_t layouts.
type statfsResult struct {
	Bsize  uint64
	Blocks uint64
	Bfree  uint64
}

func statfs(path string, out *statfsResult) error {
	var raw unix.Statfs_t
	if err := unix.Statfs(path, &raw); err != nil {
		return err
	}
	out.Bsize = uint64(raw.Bsize)
	out.Blocks = raw.Blocks
	out.Bfree = raw.Bfree
	return nil
}
