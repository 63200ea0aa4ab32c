// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package callback

import "github.com/google/uuid"

// ID identifies a registered callable. The zero ID is never issued.
type ID uuid.UUID

func newID() ID { return ID(uuid.New()) }

// ParseID parses the canonical textual form of an ID.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, err
	}
	return ID(u), nil
}

// IsZero reports whether id is the zero ID.
func (id ID) IsZero() bool { return id == ID{} }

func (id ID) String() string { return uuid.UUID(id).String() }

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
