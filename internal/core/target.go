package core

type Mode int

const (
	ModeDev Mode = iota
	ModeProd
)

// Consumer says who runs an environment's output.
type Consumer string

const (
	ConsumerClient Consumer = "client"
	ConsumerServer Consumer = "server"
)

const ClientEnvironment = "client"

// Target describes the environment a module is being compiled for.
type Target struct {
	Environment string
	Consumer    Consumer
}

// SSR reports whether the target's output runs on the server.
func (t Target) SSR() bool {
	return t.Consumer == ConsumerServer
}

type TransformResult struct {
	Code    string
	Changed bool
}
