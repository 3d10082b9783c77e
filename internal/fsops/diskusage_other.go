//go:build windows

package fsops

// DiskUsage is only implemented for the Unix systems AFD runs on.
func DiskUsage(path string) (Usage, error) {
	return Usage{}, ErrUnsupported
}
