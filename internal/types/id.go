// README: Identifier type shared by all aggregates.
package types

import "github.com/google/uuid"

type ID string

func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string {
	return string(id)
}

// Ptr returns nil for the empty ID so optional columns stay NULL.
func (id ID) Ptr() *ID {
	if id == "" {
		return nil
	}
	v := id
	return &v
}
