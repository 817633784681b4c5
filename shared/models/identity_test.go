package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIdentity_Validate(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name     string
		identity Identity
		wantKey  string
		wantErr  error
	}{
		{name: "user", identity: Identity{UserID: &userID}, wantKey: "user:" + userID.String()},
		{name: "user wins over token", identity: Identity{UserID: &userID, SessionKey: "tok"}, wantKey: "user:" + userID.String()},
		{name: "anonymous token", identity: Identity{SessionKey: " tok-1 "}, wantKey: "anon:tok-1"},
		{name: "empty", identity: Identity{SessionKey: "   "}, wantErr: ErrInvalidIdentity},
		{name: "nil user id", identity: Identity{UserID: &uuid.Nil}, wantErr: ErrInvalidIdentity},
		{name: "token at the limit", identity: Identity{SessionKey: strings.Repeat("a", MaxSessionKeyLength)}, wantKey: "anon:" + strings.Repeat("a", MaxSessionKeyLength)},
		{name: "token over the limit", identity: Identity{SessionKey: strings.Repeat("a", MaxSessionKeyLength+1)}, wantErr: ErrInvalidIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.identity.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantKey, tt.identity.Key())
		})
	}
}
