package fsops

// Usage is the size of a filesystem in bytes.
type Usage struct {
	Total uint64 `json:"total_bytes"`
	Free  uint64 `json:"free_bytes"`
	Used  uint64 `json:"used_bytes"`
}
