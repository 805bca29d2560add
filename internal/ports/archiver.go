package ports

import "time"

// Archiver keeps a verbatim copy of every received request body. Archive must
// not block the caller and must not report failures back to it.
type Archiver interface {
	Archive(received time.Time, raw []byte)
}
