package domain

// Target is a listing page chosen for one ingestion run.
type Target struct {
	Topic string
	URL   string
}
