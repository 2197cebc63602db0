// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rapidaai/mimic/pkg/commons"
)

// Manager tracks live practice sessions by id. Each websocket client owns
// one session; sessions do not outlive the process, so there is no
// persistence behind this map.
type Manager struct {
	logger commons.Logger
	opts   []Option

	mu       sync.Mutex
	sessions map[string]*Coordinator
}

// NewManager creates an empty session registry. opts are applied to every
// coordinator it creates.
func NewManager(logger commons.Logger, opts ...Option) *Manager {
	return &Manager{
		logger:   logger,
		opts:     opts,
		sessions: make(map[string]*Coordinator),
	}
}

// Create registers a fresh session and returns its id.
func (m *Manager) Create() (string, *Coordinator) {
	id := uuid.NewString()
	c := NewCoordinator(m.logger, m.opts...)

	m.mu.Lock()
	m.sessions[id] = c
	m.mu.Unlock()

	m.logger.Infof("session: created %s", id)
	return id, c
}

// Get resolves a session id.
func (m *Manager) Get(id string) (*Coordinator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.sessions[id]
	return c, ok
}

// Delete tears a session down and removes it.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		c.Close()
		m.logger.Infof("session: deleted %s", id)
	}
}

// CloseAll tears down every session; called on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Coordinator)
	m.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
}
