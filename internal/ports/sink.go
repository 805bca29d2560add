package ports

import "github.com/ghalamif/MotionFlow/internal/domain"

type Sink interface {
	WriteBatch(readings []*domain.Reading) error
	Name() string
}
