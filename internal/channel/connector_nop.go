package channel

import "context"

// NopConnector is the stand-in used when no messaging integration is
// linked. It keeps the session lifecycle exercisable (and the manager
// startable) without a live channel.
type NopConnector struct{}

func (NopConnector) Resume(context.Context, []byte) error { return nil }

func (NopConnector) Connect(context.Context) ([]byte, error) { return nil, nil }

func (NopConnector) Disconnect(context.Context) error { return nil }
