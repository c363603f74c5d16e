package upstream

// Tag is an upstream tag record.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
