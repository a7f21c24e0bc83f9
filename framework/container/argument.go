package container

import (
	"fmt"
	"strings"
)

// ArgumentKind tells how an Argument is resolved when its service is built.
type ArgumentKind int

const (
	// LiteralArgument is passed to the constructor unchanged.
	LiteralArgument ArgumentKind = iota
	// ParameterArgument is replaced by the value of the named parameter.
	ParameterArgument
	// ServiceArgument is replaced by the instance of the named service.
	ServiceArgument
)

func (k ArgumentKind) String() string {
	switch k {
	case LiteralArgument:
		return "literal"
	case ParameterArgument:
		return "parameter"
	case ServiceArgument:
		return "service"
	default:
		return fmt.Sprintf("ArgumentKind(%d)", int(k))
	}
}

// Argument is one constructor argument of a Definition.
type Argument struct {
	Kind ArgumentKind
	// Value holds the literal for LiteralArgument.
	Value any
	// Name holds the parameter name or service identifier for references.
	Name string
}

// Value returns a literal argument.
//
//	def.AddArgument(container.Value(25))
func Value(v any) Argument { return Argument{Kind: LiteralArgument, Value: v} }

// Param returns a reference to the parameter name.
//
//	// PHP: ->addArgument('%mailer.transport%')
//	def.AddArgument(container.Param("mailer.transport"))
func Param(name string) Argument { return Argument{Kind: ParameterArgument, Name: name} }

// Ref returns a reference to the service id.
//
//	// PHP: ->addArgument(new Reference('mailer'))
//	def.AddArgument(container.Ref("mailer"))
func Ref(id string) Argument { return Argument{Kind: ServiceArgument, Name: id} }

// ParseArgument converts the text form used in definition files into an
// Argument. Only top-level strings are interpreted:
//
//	"%name%"  parameter reference
//	"@id"     service reference
//	"%%..."   literal starting with "%"
//	"@@..."   literal starting with "@"
//
// Any other value is a literal.
func ParseArgument(v any) Argument {
	s, ok := v.(string)
	if !ok {
		return Value(v)
	}
	switch {
	case strings.HasPrefix(s, "@@"), strings.HasPrefix(s, "%%"):
		return Value(s[1:])
	case strings.HasPrefix(s, "@") && len(s) > 1:
		return Ref(s[1:])
	case len(s) > 2 && strings.HasPrefix(s, "%") && strings.HasSuffix(s, "%") &&
		!strings.Contains(s[1:len(s)-1], "%"):
		return Param(s[1 : len(s)-1])
	}
	return Value(s)
}

// Text returns the definition-file form of a, the inverse of ParseArgument.
func (a Argument) Text() any {
	switch a.Kind {
	case ParameterArgument:
		return "%" + a.Name + "%"
	case ServiceArgument:
		return "@" + a.Name
	}
	if s, ok := a.Value.(string); ok && (strings.HasPrefix(s, "@") || strings.HasPrefix(s, "%")) {
		return s[:1] + s
	}
	return a.Value
}

func (a Argument) String() string {
	switch a.Kind {
	case ParameterArgument:
		return "%" + a.Name + "%"
	case ServiceArgument:
		return "@" + a.Name
	}
	return fmt.Sprintf("%v", a.Value)
}
