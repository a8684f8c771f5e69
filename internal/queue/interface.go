package queue

type PublisherHandler interface {
	Enqueue(subject string, cmd Command) error
	Close()
}
