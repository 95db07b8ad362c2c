package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message delivery status values
const (
	StatusSent     = 1
	StatusReceived = 2
	StatusRead     = 3
)

// Message direction values
const (
	DirectionIncoming = "INCOMING"
	DirectionOutgoing = "OUTGOING"
)

// ProtocolWS tags messages that arrived over the websocket channel.
const ProtocolWS = "WS"

var statusDisplay = map[int]string{
	StatusSent:     "SENT",
	StatusReceived: "RECEIVED",
	StatusRead:     "READ",
}

// StatusDisplay returns the wire representation of a delivery status.
func StatusDisplay(status int) string {
	return statusDisplay[status]
}

// Message represents a chat message in MongoDB. One logical send persists
// one row per recipient; Previous chains rows of the same room into an
// append-only history.
type Message struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	SenderID    string              `json:"senderId" bson:"sender_id"`
	RecipientID string              `json:"recipientId" bson:"recipient_id"`
	Content     string              `json:"content" bson:"content"`
	Context     MessageContext      `json:"context" bson:"context"`
	Status      int                 `json:"status" bson:"status"`
	Previous    *primitive.ObjectID `json:"previous" bson:"previous"`
	Direction   string              `json:"direction" bson:"direction"`
	Protocol    string              `json:"protocol" bson:"protocol"`
	CreatedOn   time.Time           `json:"createdOn" bson:"created_on"`
}

// MessageContext carries the room the message belongs to.
type MessageContext struct {
	Room string `json:"room" bson:"room"`
}
