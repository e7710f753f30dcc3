package messages

import "fmt"

// Message is implemented by every concrete variant. The unexported method seals
// the set to types embedding Base; String has no default, so a variant that
// forgets it does not compile as a Message.
type Message interface {
	fmt.Stringer
	Class() string
	Type() Type
	Body() Body
	Serialize() ([]byte, error)
	base() *Base
}

// Base owns the body of one message instance. Variants embed *Base and
// populate it from their constructors.
type Base struct {
	class string
	body  Body
}

// NewBase creates an empty body tagged with t. An empty t means TypeCommand.
func NewBase(class string, t Type) *Base {
	if t == "" {
		t = TypeCommand
	}
	return &Base{class: class, body: newBody(t)}
}

func (b *Base) base() *Base { return b }

// Class is the variant name, used for diagnostics only.
func (b *Base) Class() string { return b.class }

func (b *Base) Type() Type { return b.body.Type }

// Body returns a copy of the current body.
func (b *Base) Body() Body { return b.body.clone() }

func (b *Base) SetCommand(name string) {
	b.body.Command = name
}

func (b *Base) AppendSubcommand(name string) {
	b.body.Subcommand = append(b.body.Subcommand, name)
}

// AppendOption adds an option; pass "" for flags without a value.
// Duplicates are kept in call order.
func (b *Base) AppendOption(name, value string) {
	b.body.Options = append(b.body.Options, Pair{Name: name, Value: value})
}

func (b *Base) AppendExtra(name, value string) {
	b.body.Extras = append(b.body.Extras, Pair{Name: name, Value: value})
}

// Clear resets everything but the type.
func (b *Base) Clear() {
	b.body = newBody(b.body.Type)
}

func (b *Base) Serialize() ([]byte, error) {
	return b.body.Encode()
}

// Render returns the string form of v. Values without their own String
// method (a bare *Base, for instance) fail with ErrUnimplemented.
func Render(v interface{ Class() string }) (string, error) {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return "", fmt.Errorf("%w: %s does not implement string representation", ErrUnimplemented, v.Class())
}
