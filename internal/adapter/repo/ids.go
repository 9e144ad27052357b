package repo

import "github.com/google/uuid"

func newID() string {
	return uuid.NewString()
}

// validUUID guards uuid-typed parameters so a malformed id reads as a miss
// instead of a cast error from the database.
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
