package model

import "testing"

func TestMemberKey(t *testing.T) {
	tests := []struct {
		name    string
		userIDs []string
		want    string
	}{
		{
			name:    "already sorted",
			userIDs: []string{"a", "b", "c"},
			want:    "a:b:c",
		},
		{
			name:    "order does not matter",
			userIDs: []string{"c", "a", "b"},
			want:    "a:b:c",
		},
		{
			name:    "duplicates collapse",
			userIDs: []string{"b", "a", "b", "a"},
			want:    "a:b",
		},
		{
			name:    "single member",
			userIDs: []string{"solo"},
			want:    "solo",
		},
		{
			name:    "empty set",
			userIDs: nil,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MemberKey(tt.userIDs); got != tt.want {
				t.Errorf("MemberKey(%v) = %q, want %q", tt.userIDs, got, tt.want)
			}
		})
	}
}

func TestRoomMembership(t *testing.T) {
	room := &Room{Members: []RoomMember{
		{MemberID: "m1", UserID: "u1", FirstName: "Ada", LastName: "Adams"},
		{MemberID: "m2", UserID: "u2", FirstName: "Bob", LastName: "Byrne"},
	}}

	if !room.HasMember("u1") || !room.HasMember("u2") {
		t.Error("expected both users to be members")
	}
	if room.HasMember("u3") {
		t.Error("u3 should not be a member")
	}

	ids := room.MemberIDs()
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "u2" {
		t.Errorf("unexpected member ids: %v", ids)
	}

	participants := room.Participants()
	if len(participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(participants))
	}
	if participants[0].UserID != "u1" || participants[0].FirstName != "Ada" {
		t.Errorf("unexpected participant projection: %+v", participants[0])
	}
}

func TestStatusDisplay(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{StatusSent, "SENT"},
		{StatusReceived, "RECEIVED"},
		{StatusRead, "READ"},
		{99, ""},
	}

	for _, tt := range tests {
		if got := StatusDisplay(tt.status); got != tt.want {
			t.Errorf("StatusDisplay(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
