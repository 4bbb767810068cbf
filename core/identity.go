package core

import "fmt"

// Identity identifies who performed an operation. It is taken from JWT
// claims by the server and used as the author of archive commits.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (identity Identity) String() string {
	return fmt.Sprintf("%s <%s>", identity.Name, identity.Email)
}
