package domain

// Event is an inbound event for the router. The set of implementations is closed.
type Event interface {
	isEvent()
}

// NewMail reports a batch of messages that arrived in a folder.
type NewMail struct {
	Folder   Folder
	Messages []Message
}

// ChangedProperties lists the properties that changed on a message.
type ChangedProperties struct {
	// Read is true when the message transitioned to read.
	Read    bool
	Flagged *bool
}

// MessageUpdated reports a property change on a message.
type MessageUpdated struct {
	Message Message
	Changed ChangedProperties
}

// MessageDeleted reports a message removed from its folder.
type MessageDeleted struct {
	Message Message
}

// ControlMessage is sent in-process when the persisted options may have changed.
type ControlMessage struct {
	OptionsChanged bool
}

// SessionStart is emitted once when the engine boots.
type SessionStart struct{}

func (NewMail) isEvent()        {}
func (MessageUpdated) isEvent() {}
func (MessageDeleted) isEvent() {}
func (ControlMessage) isEvent() {}
func (SessionStart) isEvent()   {}
