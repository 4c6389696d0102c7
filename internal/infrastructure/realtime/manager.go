package realtime

import (
	"sync"

	"roamly/pkg/logger"
)

// Manager owns the live connection set and the topic-group membership
// table. All membership mutations serialize on its lock; publishing
// snapshots members under a read lock and never blocks on a slow peer.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*Connection            // connection id -> connection
	topics      map[string]map[string]*Connection // topic -> connection id -> connection
	memberships map[string]map[string]struct{}    // connection id -> joined topics

	presence *PresenceTracker
}

func NewManager(presence *PresenceTracker) *Manager {
	return &Manager{
		connections: make(map[string]*Connection),
		topics:      make(map[string]map[string]*Connection),
		memberships: make(map[string]map[string]struct{}),
		presence:    presence,
	}
}

// Register tracks an authenticated connection, places it in its
// per-user group and records the connect with presence.
func (m *Manager) Register(conn *Connection) {
	m.mu.Lock()
	m.connections[conn.ID] = conn
	m.memberships[conn.ID] = make(map[string]struct{})
	m.joinLocked(conn.UserID, conn)
	m.mu.Unlock()

	m.presence.Connect(conn.UserID)
	logger.Debug("Connection %s registered for user %s", conn.ID, conn.UserID)
}

// Unregister releases every group membership atomically and closes the
// connection. Safe to call more than once.
func (m *Manager) Unregister(conn *Connection) {
	m.mu.Lock()
	_, tracked := m.connections[conn.ID]
	if tracked {
		for topic := range m.memberships[conn.ID] {
			m.leaveLocked(topic, conn.ID)
		}
		delete(m.memberships, conn.ID)
		delete(m.connections, conn.ID)
	}
	m.mu.Unlock()

	conn.close()

	if tracked {
		m.presence.Disconnect(conn.UserID)
		logger.Debug("Connection %s released for user %s", conn.ID, conn.UserID)
	}
}

// Join adds the connection to a topic group. Idempotent; a no-op for
// connections that were never registered or already left.
func (m *Manager) Join(topic string, conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.connections[conn.ID]; !ok {
		return
	}
	m.joinLocked(topic, conn)
}

// Leave removes the connection from a topic group. Idempotent.
func (m *Manager) Leave(topic string, conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(topic, conn.ID)
}

// Publish delivers an event to every current member of the topic,
// best-effort and without replay. A member whose send buffer is full is
// torn down rather than allowed to stall the rest.
func (m *Manager) Publish(topic, event string, payload interface{}) {
	m.publish(topic, event, payload, "")
}

// PublishExcept is Publish minus one connection, used for typing events
// that must not echo to their producer.
func (m *Manager) PublishExcept(topic, event string, payload interface{}, exceptConnID string) {
	m.publish(topic, event, payload, exceptConnID)
}

// PublishToUser delivers to every device in the user's per-user group.
func (m *Manager) PublishToUser(userID, event string, payload interface{}) {
	m.publish(userID, event, payload, "")
}

// SendToConnection delivers to a single connection, for acks.
func (m *Manager) SendToConnection(conn *Connection, event string, payload interface{}) {
	frame, err := marshalEvent(event, payload)
	if err != nil {
		logger.Error("Failed to encode %s event: %v", event, err)
		return
	}
	if !conn.enqueue(frame) {
		m.Unregister(conn)
	}
}

func (m *Manager) publish(topic, event string, payload interface{}, exceptConnID string) {
	frame, err := marshalEvent(event, payload)
	if err != nil {
		logger.Error("Failed to encode %s event: %v", event, err)
		return
	}

	m.mu.RLock()
	members := make([]*Connection, 0, len(m.topics[topic]))
	for id, conn := range m.topics[topic] {
		if id == exceptConnID {
			continue
		}
		members = append(members, conn)
	}
	m.mu.RUnlock()

	var stalled []*Connection
	for _, conn := range members {
		if !conn.enqueue(frame) {
			stalled = append(stalled, conn)
		}
	}
	for _, conn := range stalled {
		logger.Warn("Dropping stalled connection %s (user %s) on topic %s", conn.ID, conn.UserID, topic)
		m.Unregister(conn)
	}
}

func (m *Manager) joinLocked(topic string, conn *Connection) {
	group := m.topics[topic]
	if group == nil {
		group = make(map[string]*Connection)
		m.topics[topic] = group
	}
	group[conn.ID] = conn
	m.memberships[conn.ID][topic] = struct{}{}
}

func (m *Manager) leaveLocked(topic, connID string) {
	group := m.topics[topic]
	if group == nil {
		return
	}
	delete(group, connID)
	if len(group) == 0 {
		delete(m.topics, topic)
	}
	if membership, ok := m.memberships[connID]; ok {
		delete(membership, topic)
	}
}
