package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager fans ledger notifications out to the clients subscribed to each
// document and routes inbound messages to the registered handler.
type Manager struct {
	clients        map[string]*Client
	documentIndex  map[string]map[string]bool // documentID -> clientID set
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	maxSubsPerConn int
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	messageHandler MessageHandler
	log            zerolog.Logger
}

type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
}

func NewManager(maxSubsPerConn int, writeWait, pongWait, pingPeriod time.Duration, log zerolog.Logger) *Manager {
	return &Manager{
		clients:        make(map[string]*Client),
		documentIndex:  make(map[string]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		maxSubsPerConn: maxSubsPerConn,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
		log:            log,
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	m.clients[client.ID] = client
	m.log.Info().Str("client_id", client.ID).Msg("client registered")
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		for documentID := range client.subscriptions {
			m.dropSubscription(documentID, client.ID)
		}
		delete(m.clients, client.ID)
		close(client.Send)
		m.log.Info().Str("client_id", client.ID).Msg("client unregistered")
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.log.Error().Err(err).Msg("error unmarshaling message")
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(clientMsg.Client, &msg); err != nil {
			m.log.Error().Err(err).Str("type", string(msg.Type)).Msg("error handling message")
		}
	}
}

// Subscribe adds a client to a document's notification set.
func (m *Manager) Subscribe(client *Client, documentID string) bool {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if len(client.subscriptions) >= m.maxSubsPerConn {
		m.log.Warn().Str("client_id", client.ID).Msg("max subscriptions reached")
		return false
	}

	if m.documentIndex[documentID] == nil {
		m.documentIndex[documentID] = make(map[string]bool)
	}
	m.documentIndex[documentID][client.ID] = true
	client.subscriptions[documentID] = true
	return true
}

// Unsubscribe removes a client from a document's notification set.
func (m *Manager) Unsubscribe(client *Client, documentID string) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	delete(client.subscriptions, documentID)
	m.dropSubscription(documentID, client.ID)
}

func (m *Manager) dropSubscription(documentID, clientID string) {
	delete(m.documentIndex[documentID], clientID)
	if len(m.documentIndex[documentID]) == 0 {
		delete(m.documentIndex, documentID)
	}
}

// BroadcastToDocument sends a message to every subscriber of a document,
// optionally excluding the originating client.
func (m *Manager) BroadcastToDocument(documentID string, message *Message, excludeClientID string) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	clientIDs, exists := m.documentIndex[documentID]
	if !exists {
		return nil
	}

	for clientID := range clientIDs {
		client := m.clients[clientID]
		if client == nil || clientID == excludeClientID {
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			m.log.Warn().Str("client_id", clientID).Msg("client send buffer full, closing connection")
			go func(c *Client) { m.Unregister <- c }(client)
		}
	}

	return nil
}

// SendToClient delivers a message to one client if it is still connected.
func (m *Manager) SendToClient(clientID string, message *Message) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.Send <- messageBytes:
	default:
		m.log.Warn().Str("client_id", clientID).Msg("client send buffer full")
	}

	return nil
}

// SubscriberCount returns how many clients follow a document.
func (m *Manager) SubscriberCount(documentID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	return len(m.documentIndex[documentID])
}
