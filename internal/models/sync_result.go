package models

// SyncResult describes the delta produced by one Sync call for a site.
type SyncResult struct {
	New         []Job `json:"new"`
	Removed     []Job `json:"removed"`
	Reactivated []Job `json:"reactivated"`
	FirstScan   bool  `json:"first_scan"`
}

// Total returns the number of jobs that changed state in this sync.
func (r *SyncResult) Total() int {
	return len(r.New) + len(r.Removed) + len(r.Reactivated)
}
