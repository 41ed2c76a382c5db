package models

// SamplingMode определяет, как агрегатор отбирает статьи из источников.
type SamplingMode string

const (
	// ModeExhaustive - все статьи выбранных источников, отсортированные по дате
	ModeExhaustive SamplingMode = "exhaustive"
	// ModeBalanced - небольшая случайная выборка из каждого источника
	ModeBalanced SamplingMode = "balanced"
)

// Valid сообщает, известен ли режим.
func (m SamplingMode) Valid() bool {
	return m == ModeExhaustive || m == ModeBalanced
}

// AggregationRequest - один логический запрос к агрегатору.
// Limit = 0 означает без ограничения. SourceName важнее Category.
type AggregationRequest struct {
	Category   string
	SourceName string
	Limit      int
	Mode       SamplingMode
}
