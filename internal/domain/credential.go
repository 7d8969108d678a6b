package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// Credential is the opaque per-account authentication payload, one per input
// line. It is a query-string-shaped blob whose "user" field carries a JSON
// object with the stable account identifier.
type Credential string

type credentialUser struct {
	ID json.Number `json:"id"`
}

// AccountID extracts the stable identity embedded in the credential payload.
// The identity keys persisted token and user-agent records, so a credential
// without one is unusable.
func (c Credential) AccountID() (string, error) {
	values, err := url.ParseQuery(string(c))
	if err != nil {
		return "", fmt.Errorf("parse credential payload: %w", err)
	}

	raw := values.Get("user")
	if raw == "" {
		return "", errors.New("credential payload has no user field")
	}

	var user credentialUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return "", fmt.Errorf("decode credential user field: %w", err)
	}
	if user.ID.String() == "" {
		return "", errors.New("credential user field has no id")
	}

	return user.ID.String(), nil
}
