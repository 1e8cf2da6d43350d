package messages

// Envelope is one encoded event as it travels through a broker. ID is unique per
// event; Key groups events that must stay ordered.
type Envelope struct {
	ID    string
	Key   []byte
	Value []byte
}
