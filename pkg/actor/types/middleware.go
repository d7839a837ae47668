package types

// Envelope is the message flowing through the middleware chain at a
// given station. Exactly one of Req/Res is populated, matching Kind.
type Envelope struct {
	Kind Kind
	Req  *Request
	Res  *Response
}

// Middleware sees a message at one of the four stations. For REQ_IN
// and RES_OUT, reply is non-nil and callable to short-circuit the
// chain by answering directly; for REQ_OUT and RES_IN it is nil.
// Calling next continues the chain; never calling it silently drops
// the message — that is by design, it is how policy middleware
// enforces rejection.
type Middleware func(kind Kind, env *Envelope, reply ReplyFunc, next func())

// Chain runs a list of middleware in registration order for a single
// envelope, then calls done once every middleware has called next
// (or never calls done if one of them drops the message).
func Chain(chain []Middleware, kind Kind, env *Envelope, reply ReplyFunc, done func()) {
	var run func(i int)
	run = func(i int) {
		if i >= len(chain) {
			done()
			return
		}
		chain[i](kind, env, reply, func() { run(i + 1) })
	}
	run(0)
}
