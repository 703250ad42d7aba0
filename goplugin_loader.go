package bootstrap

import (
	"fmt"
	"plugin"
)

// GoPluginSymbol is the symbol a Go plug-in exports to describe its modules.
// It must be a variable of type bootstrap.Assembly or *bootstrap.Assembly.
const GoPluginSymbol = "Assembly"

// GoPluginLoader loads Go plug-ins (.so files built with -buildmode=plugin).
type GoPluginLoader struct{}

func (GoPluginLoader) Load(path string) (*Assembly, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(GoPluginSymbol)
	if err != nil {
		return nil, err
	}

	var asm *Assembly
	switch v := sym.(type) {
	case *Assembly:
		asm = v
	case **Assembly:
		asm = *v
	default:
		return nil, fmt.Errorf("%w: symbol %s is %T", ErrUnsupportedAsset, GoPluginSymbol, sym)
	}
	if asm == nil {
		return nil, fmt.Errorf("%w: symbol %s is nil", ErrUnsupportedAsset, GoPluginSymbol)
	}
	if asm.Path == "" {
		asm.Path = path
	}
	return asm, nil
}
