package trigger

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// Registrar installs a method-specific route on a dispatcher.
type Registrar interface {
	Handle(method, path string, h http.Handler)
}

// RegistrarFunc adapts a function to Registrar.
type RegistrarFunc func(method, path string, h http.Handler)

func (f RegistrarFunc) Handle(method, path string, h http.Handler) {
	f(method, path, h)
}

// MuxRegistrar registers routes on a gorilla/mux router.
type MuxRegistrar struct {
	Router *mux.Router
}

func (m MuxRegistrar) Handle(method, path string, h http.Handler) {
	m.Router.Handle(path, h).Methods(method)
}

// ServeMuxRegistrar registers routes using net/http method patterns.
type ServeMuxRegistrar struct {
	Mux *http.ServeMux
}

func (s ServeMuxRegistrar) Handle(method, path string, h http.Handler) {
	s.Mux.Handle(method+" "+path, h)
}

// RegistrarFor returns the Registrar for a known router type.
func RegistrarFor(router any) (Registrar, error) {
	switch r := router.(type) {
	case Registrar:
		return r, nil
	case *mux.Router:
		if r == nil {
			break
		}
		return MuxRegistrar{Router: r}, nil
	case *http.ServeMux:
		if r == nil {
			break
		}
		return ServeMuxRegistrar{Mux: r}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedRouter, router)
}
