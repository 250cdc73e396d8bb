package types

// Status is the lifecycle status of any persisted entity
type Status string

const (
	StatusPublished Status = "published"
	StatusDeleted   Status = "deleted"
	StatusArchived  Status = "archived"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Validate() bool {
	switch s {
	case StatusPublished, StatusDeleted, StatusArchived:
		return true
	}
	return false
}
