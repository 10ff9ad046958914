package scpi

import (
	"context"
	"fmt"
	"strings"
)

// ErrRemoteDisabled reports that the instrument rejected the identification
// query because its LAN remote interface is off.
var ErrRemoteDisabled = fmt.Errorf("%w: instrument rejected the command, "+
	"check Utility -> IO Setting -> RemoteIO -> LAN is ON", ErrProtocol)

// commandErrorReply is what Rigol instruments send when remote LAN control is disabled.
const commandErrorReply = "command error"

// minIdentityFields is the number of "*IDN?" fields a capture depends on.
const minIdentityFields = 3

// Identity is the parsed reply to "*IDN?".
type Identity struct {
	Manufacturer string
	Model        string
	Serial       string
	Revision     string // firmware version; empty when the instrument omits it
}

// ParseIdentity parses a comma-separated "*IDN?" reply.
//
// The reply must carry at least manufacturer, model and serial fields.
// Surrounding whitespace, including the trailing newline, is removed from
// every field.
func ParseIdentity(reply string) (Identity, error) {
	fields := strings.Split(strings.TrimSpace(reply), ",")
	if len(fields) < minIdentityFields {
		return Identity{}, fmt.Errorf("%w: identification %q has %d fields, want at least %d",
			ErrProtocol, reply, len(fields), minIdentityFields)
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	id := Identity{
		Manufacturer: fields[0],
		Model:        fields[1],
		Serial:       fields[2],
	}
	if len(fields) > minIdentityFields {
		id.Revision = strings.Join(fields[minIdentityFields:], ",")
	}

	if id.Manufacturer == "" || id.Model == "" || id.Serial == "" {
		return Identity{}, fmt.Errorf("%w: identification %q has empty fields", ErrProtocol, reply)
	}

	return id, nil
}

// Validate checks that the identity belongs to the expected instrument class.
func (id Identity) Validate(manufacturer, model string) error {
	if id.Manufacturer != manufacturer || id.Model != model {
		return fmt.Errorf("%w: found instrument model %q from %q, want %q from %q",
			ErrProtocol, id.Model, id.Manufacturer, model, manufacturer)
	}

	return nil
}

func (id Identity) String() string {
	s := id.Manufacturer + "," + id.Model + "," + id.Serial
	if id.Revision != "" {
		s += "," + id.Revision
	}

	return s
}

// Identify queries "*IDN?" and parses the reply.
func (c *Channel) Identify(ctx context.Context) (Identity, error) {
	reply, err := c.QueryText(ctx, CmdIdentify)
	if err != nil {
		return Identity{}, err
	}

	if strings.TrimSpace(reply) == commandErrorReply {
		return Identity{}, ErrRemoteDisabled
	}

	id, err := ParseIdentity(reply)
	if err != nil {
		return Identity{}, err
	}

	c.cfg.logger.Info("scpi: instrument identified",
		"manufacturer", id.Manufacturer,
		"model", id.Model,
		"serial", id.Serial,
		"revision", id.Revision,
	)

	return id, nil
}
