package conversation

import (
	"fmt"
	"path/filepath"
	"regexp"

	tabiErrors "github.com/harunnryd/tabi/internal/errors"
)

const (
	indexFile = "index.json"
	lockFile  = "store.lock"
)

// Conversation ids double as file names. Adapter ids look like
// "slack:C0123" and generated ones are ULIDs.
var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_:\-]{0,127}$`)

func ValidateID(id string) error {
	if !validID.MatchString(id) {
		return tabiErrors.InvalidInput(fmt.Sprintf("invalid conversation id %q", id))
	}
	return nil
}

func transcriptPath(basePath, id string) string {
	return filepath.Join(basePath, id+".jsonl")
}

func indexPath(basePath string) string {
	return filepath.Join(basePath, indexFile)
}

func lockPath(basePath string) string {
	return filepath.Join(basePath, lockFile)
}
