package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sultumov/allergyTracker/internal/common"
)

func TestDecodeAllergy(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid",
			payload: `{"id":"a1","name":"Peanuts","category":"food","severity":"high","isActive":true,"createdAt":100,"lastModified":100}`,
		},
		{
			name:    "missing id",
			payload: `{"name":"Peanuts","category":"food","severity":"high"}`,
			wantErr: true,
		},
		{
			name:    "unknown category",
			payload: `{"id":"a1","name":"Peanuts","category":"cosmic","severity":"high"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			payload: `{{`,
			wantErr: true,
		},
		{
			name:    "wrong shape",
			payload: `["a1"]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := DecodeAllergy(json.RawMessage(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errors.Is(err, common.ErrInvalidEntity))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a1", a.ID)
			assert.Equal(t, CategoryFood, a.Category)
			assert.True(t, a.IsActive)
		})
	}
}

func TestDecodeReaction(t *testing.T) {
	valid := `{"id":"r1","allergyId":"a1","date":10,"severity":"mild","symptoms":["hives"],"lastModified":10}`
	r, err := DecodeReaction(json.RawMessage(valid))
	require.NoError(t, err)
	assert.Equal(t, "a1", r.AllergyID)
	assert.Equal(t, []string{"hives"}, r.Symptoms)

	_, err = DecodeReaction(json.RawMessage(`{"id":"r1","severity":"mild"}`))
	require.ErrorIs(t, err, common.ErrInvalidEntity)

	_, err = DecodeReaction(json.RawMessage(`{"id":"r1","allergyId":"a1","severity":"catastrophic"}`))
	require.ErrorIs(t, err, common.ErrInvalidEntity)
}

func TestDecodeProductAndHistory(t *testing.T) {
	p, err := DecodeProduct(json.RawMessage(`{"barcode":"4600","name":"Cookies","allergens":["peanut"],"lastModified":5}`))
	require.NoError(t, err)
	assert.Equal(t, "4600", p.Key())
	assert.EqualValues(t, 5, p.Modified())

	_, err = DecodeProduct(json.RawMessage(`{"name":"Cookies"}`))
	require.ErrorIs(t, err, common.ErrInvalidEntity)

	h, err := DecodeHistoryItem(json.RawMessage(`{"id":"h1","productBarcode":"4600","scanDate":42}`))
	require.NoError(t, err)
	// history has no lastModified of its own, the scan date orders it
	assert.EqualValues(t, 42, h.Modified())

	_, err = DecodeHistoryItem(json.RawMessage(`{"id":"h1"}`))
	require.ErrorIs(t, err, common.ErrInvalidEntity)
}
