package events

// AuthEventKind distinguishes sign-in from sign-out on the AuthMediator
// bus.
type AuthEventKind int

const (
	AuthSignIn AuthEventKind = iota
	AuthSignOut
)

// AuthEvent is published whenever the account provider's sign-in state
// changes. CacheManager subscribes to drive ClearCache on sign-out.
type AuthEvent struct {
	Kind AuthEventKind
}

// AuthMediator is the narrow fan-out point between AccountProvider and
// everything that reacts to sign-in/out, kept as its own type (rather
// than reusing the OnUpdate bus) so CacheManager's subscription survives
// independently of update-event churn.
type AuthMediator struct {
	bus *Bus[AuthEvent]
}

// NewAuthMediator constructs an AuthMediator.
func NewAuthMediator() *AuthMediator {
	return &AuthMediator{bus: NewBus[AuthEvent]()}
}

// Subscribe registers a handler for sign-in/out events.
func (m *AuthMediator) Subscribe(h Handler[AuthEvent]) Unsubscribe { return m.bus.Subscribe(h) }

// PublishSignIn notifies subscribers that the user signed in.
func (m *AuthMediator) PublishSignIn() { m.bus.Publish(AuthEvent{Kind: AuthSignIn}) }

// PublishSignOut notifies subscribers that the user signed out.
func (m *AuthMediator) PublishSignOut() { m.bus.Publish(AuthEvent{Kind: AuthSignOut}) }
