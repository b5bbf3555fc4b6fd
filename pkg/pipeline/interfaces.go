package pipeline

// DatasetAppender receives the dataset records a run emits
type DatasetAppender interface {
	Append(record interface{}) error
}
