package message

import (
	"encoding/json"
	"fmt"

	"github.com/wagiedev/procbridge-go/internal/errors"
)

// Parse decodes one wire line into a validated Message.
//
// Lines that are not JSON objects return a *errors.MessageParseError that
// preserves the raw data. Well-formed objects that fail Validate return an
// error wrapping errors.ErrInvalidMessage.
func Parse(data []byte) (*Message, error) {
	var msg Message

	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &errors.MessageParseError{
			RawData: string(data),
			Err:     err,
		}
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	return &msg, nil
}

// Encode marshals a Message into a single wire line without the trailing
// newline.
func Encode(msg *Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message %s: %w", msg.ID, err)
	}

	return data, nil
}
