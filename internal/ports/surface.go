package ports

import "context"

// Surface is the interactive presentation boundary. It issues commands into
// the pipeline coordinator and consumes its events; the core never calls
// back into it.
type Surface interface {
	// Run drives the surface until the operator quits or ctx is done
	Run(ctx context.Context) error
}
