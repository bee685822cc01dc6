// Package factory is a generic registry that builds pluggable backends from
// configuration. A module is selected by its type name and receives the raw
// settings map, which it decodes into its own typed struct.
//
//	reg := factory.NewRegistry[store.Store]()
//	_ = reg.Register("sqlite", func(conf map[string]any) (store.Store, error) {
//	    var c struct{ DSN string `json:"dsn"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return sqlstore.Open(ctx, "sqlite", c.DSN)
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"dsn": "la.db"}})
package factory
