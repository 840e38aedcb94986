package storage

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/oceanbase/remindsense-go/pkg/model"
)

// EncodeState serializes a user state for a StateStore.
func EncodeState(state *model.UserState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("EncodeState: %w", err)
	}
	return data, nil
}

// DecodeState deserializes a user state written by EncodeState.
func DecodeState(data []byte) (*model.UserState, error) {
	var state model.UserState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("DecodeState: %w", err)
	}
	return &state, nil
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTableName rejects table names that cannot be safely interpolated
// into SQL.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}
