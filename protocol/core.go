package protocol

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"
)

//go:embed core.xml
var coreXML []byte

// Core returns the description of the core interfaces: the display,
// registry, callback, compositor, surface, shm, shm pool, buffer,
// shell and shell surface.
var Core = sync.OnceValue(func() Protocol {
	proto, err := Parse(bytes.NewReader(coreXML))
	if err != nil {
		panic(fmt.Errorf("embedded core protocol: %w", err))
	}
	return proto
})
