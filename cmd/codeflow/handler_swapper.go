package main

import (
	"net/http"
	"sync/atomic"
)

// handlerSwapper serves through a handler that can be replaced while
// requests are in flight. serve swaps in a rebuilt API handler when SIGHUP
// reloads rules, logging or CORS settings.
type handlerSwapper struct {
	current atomic.Pointer[http.Handler]
}

func newHandlerSwapper(h http.Handler) *handlerSwapper {
	s := &handlerSwapper{}
	s.Swap(h)
	return s
}

func (s *handlerSwapper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.current.Load()).ServeHTTP(w, r)
}

// Swap replaces the handler used by subsequent requests.
func (s *handlerSwapper) Swap(h http.Handler) {
	s.current.Store(&h)
}
