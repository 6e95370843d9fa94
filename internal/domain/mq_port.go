package domain

type Message struct {
	Key   []byte
	Value []byte
}

// PublisherPort and SubscriberPort are the cross-context messaging channel
// used between related contexts (builder and its opened preview). Only
// envelopes with a known type tag are acted on; see EnvelopeType.
type PublisherPort interface {
	Publish(topic string, msgs ...Message) error
}

type SubscriberPort interface {
	Subscribe(topic, groupID string) (<-chan Message, error)
}
