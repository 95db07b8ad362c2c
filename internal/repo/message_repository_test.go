package repo

import (
	"errors"
	"testing"

	"parley/internal/model"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		current int
		next    int
		wantErr bool
	}{
		{
			name:    "sent to received",
			current: model.StatusSent,
			next:    model.StatusReceived,
			wantErr: false,
		},
		{
			name:    "received to read",
			current: model.StatusReceived,
			next:    model.StatusRead,
			wantErr: false,
		},
		{
			name:    "sent straight to read",
			current: model.StatusSent,
			next:    model.StatusRead,
			wantErr: true,
		},
		{
			name:    "repeated status",
			current: model.StatusReceived,
			next:    model.StatusReceived,
			wantErr: true,
		},
		{
			name:    "backwards",
			current: model.StatusRead,
			next:    model.StatusReceived,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkTransition(tt.current, tt.next)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("checkTransition(%d, %d) = %v, want ErrInvalidTransition",
						tt.current, tt.next, err)
				}
				return
			}
			if err != nil {
				t.Errorf("checkTransition(%d, %d) = %v, want nil", tt.current, tt.next, err)
			}
		})
	}
}
