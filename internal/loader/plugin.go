package loader

import "plugin"

// Library is an opened dynamic library.
type Library interface {
	Lookup(symbol string) (any, error)
}

// Opener opens the dynamic library at path.
type Opener func(path string) (Library, error)

type pluginLibrary struct {
	p *plugin.Plugin
}

func (l pluginLibrary) Lookup(symbol string) (any, error) {
	sym, err := l.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// OpenPlugin opens a Go plugin. Plugins are never unloaded by the runtime.
func OpenPlugin(path string) (Library, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return pluginLibrary{p: p}, nil
}
