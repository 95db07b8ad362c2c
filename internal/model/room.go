package model

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Room represents a fixed-membership conversation container in MongoDB.
// Membership is immutable after creation; the unique index on member_key
// guarantees at most one room per participant set.
type Room struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Active    bool               `json:"active" bson:"active"`
	MemberKey string             `json:"-" bson:"member_key"`
	Members   []RoomMember       `json:"members" bson:"members"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

// RoomMember is the membership edge between a user and a room.
type RoomMember struct {
	MemberID  string `json:"memberId" bson:"member_id"`
	UserID    string `json:"userId" bson:"user_id"`
	FirstName string `json:"firstName" bson:"first_name"`
	LastName  string `json:"lastName" bson:"last_name"`
}

// MemberKey computes the canonical key for a participant set: sorted,
// de-duplicated user ids joined with ":".
func MemberKey(userIDs []string) string {
	seen := make(map[string]struct{}, len(userIDs))
	uids := make([]string, 0, len(userIDs))
	for _, uid := range userIDs {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return strings.Join(uids, ":")
}

// MemberIDs returns the user ids of all room members.
func (r *Room) MemberIDs() []string {
	ids := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// HasMember reports whether the given user belongs to the room.
func (r *Room) HasMember(userID string) bool {
	for _, m := range r.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// Participants returns the wire shape of the room roster.
func (r *Room) Participants() []ParticipantInfo {
	out := make([]ParticipantInfo, 0, len(r.Members))
	for _, m := range r.Members {
		out = append(out, ParticipantInfo{
			UserID:    m.UserID,
			FirstName: m.FirstName,
			LastName:  m.LastName,
		})
	}
	return out
}
