package messages

import "fmt"

const subscriptionManager = "subscription-manager"

// PoolAttachOptions holds the arguments of a pool attach. PoolID is required.
type PoolAttachOptions struct {
	PoolID *string
}

// PoolAttach asks subscription-manager to attach to a pool.
type PoolAttach struct {
	*Base
	poolID string
}

func NewPoolAttach(opts PoolAttachOptions) (*PoolAttach, error) {
	if opts.PoolID == nil {
		return nil, fmt.Errorf("%w: pool_id", ErrMissingArgument)
	}
	p := &PoolAttach{Base: NewBase("PoolAttach", TypeCommand), poolID: *opts.PoolID}
	p.SetCommand(subscriptionManager)
	p.AppendSubcommand("attach")
	p.AppendOption("pool", p.poolID)
	p.AppendExtra("opval_sep", "=")
	return p, nil
}

func (p *PoolAttach) PoolID() string { return p.poolID }

func (p *PoolAttach) String() string {
	return fmt.Sprintf("<%s %s>", p.Class(), p.poolID)
}

// RegisterOptions lists the optional registration arguments. A nil field
// produces no option at all; a pointer to "" produces an option with an empty value.
type RegisterOptions struct {
	Username      *string
	Password      *string
	Environment   *string
	ActivationKey *string
}

// SubscriptionRegister asks subscription-manager to register the system.
type SubscriptionRegister struct {
	*Base
}

func NewSubscriptionRegister(opts RegisterOptions) *SubscriptionRegister {
	r := &SubscriptionRegister{Base: NewBase("SubscriptionRegister", TypeCommand)}
	r.SetCommand(subscriptionManager)
	r.AppendSubcommand("register")
	r.AppendExtra("opval_sep", " ")

	if opts.Username != nil {
		r.SetUsername(*opts.Username)
	}
	if opts.Password != nil {
		r.SetPassword(*opts.Password)
	}
	if opts.Environment != nil {
		r.SetEnvironment(*opts.Environment)
	}
	if opts.ActivationKey != nil {
		r.SetActivationKey(*opts.ActivationKey)
	}
	return r
}

func (r *SubscriptionRegister) SetUsername(username string) {
	r.AppendOption("username", username)
}

func (r *SubscriptionRegister) SetPassword(password string) {
	r.AppendOption("password", password)
}

func (r *SubscriptionRegister) SetEnvironment(environment string) {
	r.AppendOption("environment", environment)
}

func (r *SubscriptionRegister) SetActivationKey(key string) {
	r.AppendOption("activationkey", key)
}

func (r *SubscriptionRegister) String() string {
	return "<subscription-manager register>"
}

// Opt returns a pointer to s, for filling option structs inline.
func Opt(s string) *string { return &s }
