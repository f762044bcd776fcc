// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"sync"
	"testing"

	"github.com/mia-platform/webhookd/internal/server"
	"github.com/mia-platform/webhookd/internal/webhook"
)

var _ server.Server = &Server{}

// Server records the receivers added to it and lets tests drive its lifecycle.
type Server struct {
	tb testing.TB

	lock      sync.Mutex
	receivers []*webhook.Receiver

	startOnce   sync.Once
	stopOnce    sync.Once
	startedChan chan struct{}
	closedChan  chan struct{}
}

func NewFakeServer(tb testing.TB) *Server {
	tb.Helper()

	return &Server{
		tb:          tb,
		startedChan: make(chan struct{}),
		closedChan:  make(chan struct{}),
	}
}

func (s *Server) AddReceiver(receiver *webhook.Receiver) {
	s.tb.Helper()

	s.lock.Lock()
	defer s.lock.Unlock()
	s.receivers = append(s.receivers, receiver)
}

// Receivers returns the receivers added so far.
func (s *Server) Receivers() []*webhook.Receiver {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]*webhook.Receiver(nil), s.receivers...)
}

// Receiver returns the receiver added with name, or nil.
func (s *Server) Receiver(name string) *webhook.Receiver {
	for _, receiver := range s.Receivers() {
		if receiver.Name == name {
			return receiver
		}
	}
	return nil
}

func (s *Server) Start() error {
	s.tb.Helper()
	s.startOnce.Do(func() { close(s.startedChan) })
	<-s.closedChan
	return nil
}

func (s *Server) Stop() error {
	s.tb.Helper()
	s.stopOnce.Do(func() { close(s.closedChan) })
	return nil
}

func (s *Server) StartAsync(_ context.Context) {
	s.tb.Helper()
	go func() {
		_ = s.Start()
	}()
}

func (s *Server) StartedServer() <-chan struct{} {
	return s.startedChan
}

func (s *Server) StoppedServer() <-chan struct{} {
	return s.closedChan
}
