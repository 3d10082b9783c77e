//go:build !windows

package fsops

import "syscall"

// DiskUsage reports the filesystem holding path, as shown on the status page.
func DiskUsage(path string) (Usage, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return Usage{}, err
	}
	bs := uint64(st.Bsize)
	u := Usage{Total: uint64(st.Blocks) * bs, Free: uint64(st.Bavail) * bs}
	if u.Total > u.Free {
		u.Used = u.Total - u.Free
	}
	return u, nil
}
