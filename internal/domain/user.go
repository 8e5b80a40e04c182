package domain

// User is a login account. It shares the document store but takes no part
// in processing.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

// NewUser carries the fields required to create a User.
type NewUser struct {
	Username string
	Password string
}
