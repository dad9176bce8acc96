package types

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_WEBHOOK_EVENT        = "evt"
	UUID_PREFIX_LEDGER               = "mbl"
	UUID_PREFIX_TOKENIZATION_ATTEMPT = "tok"
	UUID_PREFIX_ORDER                = "ord"
	UUID_PREFIX_RESTAURANT           = "rest"
)

// GenerateUUID returns a lowercase ULID.
func GenerateUUID() string {
	return strings.ToLower(ulid.Make().String())
}

// GenerateUUIDWithPrefix returns a prefixed ULID, e.g. evt_01h2xcejq....
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}
