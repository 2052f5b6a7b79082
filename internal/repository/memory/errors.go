package memory

import "fmt"

func errNoProfile(userID string) error {
	return fmt.Errorf("memory: no profile for user %s", userID)
}
