package credentials

import (
	"crypto/rand"
	"math/big"
)

// Word lists for generating default display names
var adjectives = []string{
	"curious", "brave", "bright", "patient", "swift", "clever", "keen", "bold",
	"careful", "daring", "eager", "gentle", "humble", "jolly", "kindly", "lively",
	"merry", "noble", "quick", "steady", "wise", "wandering", "quiet", "golden",
}

var nouns = []string{
	"archivist", "explorer", "historian", "curator", "scribe", "cartographer",
	"storyteller", "traveller", "collector", "chronicler", "pilgrim", "scholar",
	"keeper", "wanderer", "antiquarian", "guide", "lamplighter", "bellringer",
}

// GenerateDisplayName generates a random name in the format "adjective-noun"
// for profiles created before the user picks one
func GenerateDisplayName() (string, error) {
	adjective, err := randomElement(adjectives)
	if err != nil {
		return "", err
	}

	noun, err := randomElement(nouns)
	if err != nil {
		return "", err
	}

	return adjective + "-" + noun, nil
}

// randomElement picks a random element from a string slice
func randomElement(slice []string) (string, error) {
	if len(slice) == 0 {
		return "", nil
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(len(slice))))
	if err != nil {
		return "", err
	}

	return slice[num.Int64()], nil
}
