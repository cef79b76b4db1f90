package model

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewExecutionID generates an execution identifier: a lowercase ULID with an
// "exec_" prefix so identifiers are recognizable in logs and URLs.
func NewExecutionID() string {
	return "exec_" + strings.ToLower(ulid.Make().String())
}

// NewArtifactID generates a ULID string for use as an artifact identifier.
func NewArtifactID() string {
	return ulid.Make().String()
}
