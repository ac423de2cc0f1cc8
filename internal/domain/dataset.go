package domain

import "time"

// Dataset is a locally cached mirror of a registry dataset. The registry
// remains the source of truth; rows are refreshed on every detail view.
type Dataset struct {
	ID            int64
	HFID          string // "owner/name"
	Description   *string
	SizeBytes     *int64
	NumSamples    *int64
	DownloadCount *int64
	ImpactScore   *float64
	LastUpdated   *time.Time
}

// Follow links a user to a dataset they track. At most one edge exists
// per (user, dataset) pair.
type Follow struct {
	UserID     int64
	DatasetID  int64
	FollowedAt time.Time
}
