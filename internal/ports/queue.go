package ports

import "github.com/ghalamif/MotionFlow/internal/domain"

type QueuedReading struct {
	ID      WALEntryID
	Reading *domain.Reading
}

type ReadingQueue interface {
	Enqueue(id WALEntryID, r *domain.Reading) bool
	DequeueBatch(max int) []QueuedReading
	Len() int
}
