package types

// Handler processes an incoming request addressed to a PROCESS actor.
// It may answer synchronously or asynchronously by invoking reply;
// if it never calls reply, no response is ever sent.
type Handler func(ctx *Context, req *Request, reply ReplyFunc)

// SendOptions collects the optional arguments to Context.Send,
// replacing the dynamic "timeout may be a number, function or
// object" overload of the original JS contract with an explicit
// options bundle.
type SendOptions struct {
	Timeout int64
	Headers map[string]string
	Cb      func(err *Error, res *Response)
}

// SendOption mutates a SendOptions bundle.
type SendOption func(*SendOptions)

// WithTimeout overrides the default send timeout, in milliseconds.
func WithTimeout(ms int64) SendOption {
	return func(o *SendOptions) { o.Timeout = ms }
}

// WithHeaders attaches headers to the outgoing request.
func WithHeaders(h map[string]string) SendOption {
	return func(o *SendOptions) { o.Headers = h }
}

// WithCallback registers a callback invoked at most once with the
// request's outcome.
func WithCallback(cb func(err *Error, res *Response)) SendOption {
	return func(o *SendOptions) { o.Cb = cb }
}

// Context is handed to an actor's handler on every request it
// receives. It is a capability borrowed from the
// container, never owned by the actor, so the actor/container
// reference never needs to be cyclic in the actor's own struct.
type Context struct {
	ID        AID
	Container NetInfo
	Send      func(to string, content interface{}, opts ...SendOption)
}

// Actor is a registry entry: a handler hosted somewhere in the mesh.
// For entries this container hosts, Scope is always PROCESS and
// Container.ID is always this container's id.
type Actor struct {
	ID        AID
	Container NetInfo
	Scope     Scope
	OnMessage Handler
	// Extra carries caller-supplied fields opaque to the registry.
	Extra map[string]interface{}
}
