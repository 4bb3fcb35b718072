package bot

import (
	"context"

	"github.com/iamwavecut/antispambot/internal/platform"
)

// Handler is one stage of the update pipeline. Returning proceed=false
// stops the chain for the current message.
type Handler interface {
	Handle(ctx context.Context, msg *platform.Message) (proceed bool, err error)
}
