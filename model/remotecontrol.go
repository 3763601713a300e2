package model

import (
	"bytes"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// RemoteControl is a two-variant flag: remote control confirmed, or unknown.
// A report can confirm remote control or reset it to unknown, but "known
// local" is not representable — the wire form is JSON true or null.
type RemoteControl struct {
	confirmed bool
}

func RemoteConfirmed() RemoteControl {
	return RemoteControl{confirmed: true}
}

func RemoteUnknown() RemoteControl {
	return RemoteControl{}
}

func (r RemoteControl) IsConfirmed() bool {
	return r.confirmed
}

func (r RemoteControl) MarshalJSON() ([]byte, error) {
	if r.confirmed {
		return []byte("true"), nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON treats anything other than literal true as unknown, so
// documents written by older revisions (false, strings) load cleanly.
func (r *RemoteControl) UnmarshalJSON(data []byte) error {
	r.confirmed = bytes.Equal(bytes.TrimSpace(data), []byte("true"))
	return nil
}

func (r RemoteControl) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if r.confirmed {
		return bson.MarshalValue(true)
	}
	return bson.TypeNull, nil, nil
}

func (r *RemoteControl) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	r.confirmed = false
	if t == bson.TypeBoolean {
		var v bool
		if err := bson.UnmarshalValue(t, data, &v); err != nil {
			return err
		}
		r.confirmed = v
	}
	return nil
}
