package attend

import (
	"io"
	"os"
	"strings"
)

// openLocal opens a captured photo by its local resource reference. The
// camera collaborator hands over file paths, optionally with a file://
// scheme.
func openLocal(uri string) (io.ReadCloser, error) {
	return os.Open(strings.TrimPrefix(uri, "file://"))
}
