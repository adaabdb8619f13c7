package web

import "context"

type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

type NoopServer struct{}

func (NoopServer) Start(ctx context.Context) error { return nil }
func (NoopServer) Stop() error                     { return nil }
