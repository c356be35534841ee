package tuplegen

// TemplateGenerator adds flow-template behaviour on top of a Generator:
//   - weight: reuse the same client (and server) for w consecutive tuples,
//     each with its own port, before moving on
//   - single server: replace the server of every tuple with a fixed one
//
// Without either setting every call goes straight to the Generator.
// The Generator is shared, not owned: several templates of one core may
// wrap the same Generator.
type TemplateGenerator struct {
	gen *Generator

	weight int

	// remaining is the number of repeats left on the cached client
	remaining int
	clientIdx int
	client    uint32
	server    uint32

	singleServer bool
	serverIP     uint32
	serverPort   uint16
}

// NewTemplateGenerator wraps gen.
func NewTemplateGenerator(gen *Generator) *TemplateGenerator {
	return &TemplateGenerator{gen: gen, weight: 1}
}

// SetWeight makes each client serve w tuples in a row. Values below 1 are
// treated as 1. Changing the weight drops any repetition in progress.
func (t *TemplateGenerator) SetWeight(w int) {
	if w < 1 {
		w = 1
	}
	t.weight = w
	t.remaining = 0
}

// Weight returns the configured weight.
func (t *TemplateGenerator) Weight() int {
	return t.weight
}

// SetSingleServer pins the server of every tuple to server:port when
// enabled. Client and port selection still come from the Generator.
func (t *TemplateGenerator) SetSingleServer(enabled bool, server uint32, port uint16) {
	t.singleServer = enabled
	t.serverIP = server
	t.serverPort = port
}

// SingleServer reports the pinned server, if any.
func (t *TemplateGenerator) SingleServer() (uint32, uint16, bool) {
	return t.serverIP, t.serverPort, t.singleServer
}

// ServerPort returns the pinned server port, 0 when no server is pinned.
func (t *TemplateGenerator) ServerPort() uint16 {
	if !t.singleServer {
		return 0
	}
	return t.serverPort
}

// Generator returns the wrapped engine.
func (t *TemplateGenerator) Generator() *Generator {
	return t.gen
}

// Generate produces the next tuple of the template.
func (t *TemplateGenerator) Generate() Tuple {
	return t.generate(nil)
}

// GenerateEx produces the next tuple with len(extra) additional ports.
func (t *TemplateGenerator) GenerateEx(extra []uint16) Tuple {
	if extra == nil {
		extra = []uint16{}
	}
	return t.generate(extra)
}

func (t *TemplateGenerator) generate(extra []uint16) Tuple {
	var tuple Tuple
	switch {
	case t.weight <= 1:
		tuple = t.gen.generate(extra)
	case t.remaining > 0:
		tuple = Tuple{Client: t.client, Server: t.server}
		t.gen.fill(t.clientIdx, &tuple, extra)
		t.remaining--
	default:
		t.clientIdx = t.gen.cur
		tuple = t.gen.generate(extra)
		t.client, t.server = tuple.Client, tuple.Server
		t.remaining = t.weight - 1
	}

	if t.singleServer {
		tuple.Server = t.serverIP
		tuple.ServerPort = t.serverPort
	}
	return tuple
}
