package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns a short unique id used to disambiguate stored upload
// filenames.
func GenerateID() string {
	return strings.Split(uuid.NewString(), "-")[0]
}
