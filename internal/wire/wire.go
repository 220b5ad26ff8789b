package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

func malformed(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformedMessage, protowire.ParseError(n))
}
