package tuplegen

import (
	"fmt"
	"strings"

	"github.com/jiayi-1994/tuplegen/pkg/types"
	"github.com/jiayi-1994/tuplegen/pkg/util"
)

// Tuple is the addressing of one generated flow.
type Tuple struct {
	// Client is the client IPv4 address
	Client uint32

	// ClientPort is the allocated ephemeral port, IllegalPort on failure
	ClientPort uint16

	// Server is the server IPv4 address
	Server uint32

	// ServerPort is set only when a template pins a fixed server
	ServerPort uint16

	// ExtraPorts holds additional ports allocated for the same client.
	// Slots that could not be allocated hold IllegalPort.
	ExtraPorts []uint16
}

// Failed reports whether any port of the tuple could not be allocated.
func (t Tuple) Failed() bool {
	if t.ClientPort == types.IllegalPort {
		return true
	}
	for _, p := range t.ExtraPorts {
		if p == types.IllegalPort {
			return true
		}
	}
	return false
}

func (t Tuple) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "C:%s:%d S:%s", util.FormatIPv4(t.Client), t.ClientPort, util.FormatIPv4(t.Server))
	if t.ServerPort != 0 {
		fmt.Fprintf(&b, ":%d", t.ServerPort)
	}
	if len(t.ExtraPorts) > 0 {
		fmt.Fprintf(&b, " X:%v", t.ExtraPorts)
	}
	return b.String()
}
