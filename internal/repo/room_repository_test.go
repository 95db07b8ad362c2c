package repo

import (
	"testing"

	"parley/internal/model"
)

func set(ids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func TestIntersect(t *testing.T) {
	tests := []struct {
		name string
		sets []map[string]struct{}
		want []string
	}{
		{
			name: "no sets",
			sets: nil,
			want: nil,
		},
		{
			name: "single set passes through",
			sets: []map[string]struct{}{set("r1", "r2")},
			want: []string{"r1", "r2"},
		},
		{
			name: "common element survives",
			sets: []map[string]struct{}{set("r1", "r2"), set("r2", "r3")},
			want: []string{"r2"},
		},
		{
			name: "disjoint sets",
			sets: []map[string]struct{}{set("r1"), set("r2")},
			want: nil,
		},
		{
			name: "three way",
			sets: []map[string]struct{}{set("r1", "r2"), set("r2", "r3"), set("r2")},
			want: []string{"r2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := intersect(tt.sets)
			if len(got) != len(tt.want) {
				t.Fatalf("intersect() has %d elements, want %d", len(got), len(tt.want))
			}
			for _, id := range tt.want {
				if _, ok := got[id]; !ok {
					t.Errorf("intersect() missing %q", id)
				}
			}
		})
	}
}

func TestMembersEqual(t *testing.T) {
	room := &model.Room{Members: []model.RoomMember{
		{UserID: "u1"},
		{UserID: "u2"},
	}}

	tests := []struct {
		name    string
		room    *model.Room
		userIDs []string
		want    bool
	}{
		{
			name:    "exact match",
			room:    room,
			userIDs: []string{"u1", "u2"},
			want:    true,
		},
		{
			name:    "order does not matter",
			room:    room,
			userIDs: []string{"u2", "u1"},
			want:    true,
		},
		{
			name:    "duplicate ids collapse",
			room:    room,
			userIDs: []string{"u1", "u2", "u1"},
			want:    true,
		},
		{
			name:    "subset is not equal",
			room:    room,
			userIDs: []string{"u1"},
			want:    false,
		},
		{
			name:    "superset is not equal",
			room:    room,
			userIDs: []string{"u1", "u2", "u3"},
			want:    false,
		},
		{
			name:    "different member",
			room:    room,
			userIDs: []string{"u1", "u3"},
			want:    false,
		},
		{
			name:    "nil room",
			room:    nil,
			userIDs: []string{"u1"},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := membersEqual(tt.room, tt.userIDs); got != tt.want {
				t.Errorf("membersEqual(%v) = %v, want %v", tt.userIDs, got, tt.want)
			}
		})
	}
}
