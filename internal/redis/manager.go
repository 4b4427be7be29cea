package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/rueidis"
	"github.com/robalyx/lumi/internal/setup/config"
	"go.uber.org/zap"
)

const (
	// DedupeDBIndex holds short-lived claims on gateway events so replayed
	// events are processed once.
	DedupeDBIndex = 0

	clientName  = "lumi"
	pingTimeout = 5 * time.Second
)

// Manager hands out one rueidis client per logical database and owns their lifetime.
type Manager struct {
	clients map[int]rueidis.Client
	config  *config.Redis
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewManager creates a manager. Clients connect on first use.
func NewManager(config *config.Redis, logger *zap.Logger) *Manager {
	return &Manager{
		clients: make(map[int]rueidis.Client),
		config:  config,
		logger:  logger.Named("redis"),
	}
}

// GetClient returns the client for a database index, connecting and
// verifying it with a PING the first time the index is requested.
func (m *Manager) GetClient(ctx context.Context, dbIndex int) (rueidis.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.clients[dbIndex]; ok {
		return client, nil
	}

	client, err := rueidis.NewClient(m.clientOption(dbIndex))
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client for DB %d: %w", dbIndex, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach Redis DB %d: %w", dbIndex, err)
	}

	m.clients[dbIndex] = client
	m.logger.Info("Connected to Redis",
		zap.String("addr", m.addr()),
		zap.Int("dbIndex", dbIndex))

	return client, nil
}

// Close closes every client. Calling it again is a no-op.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for dbIndex, client := range m.clients {
		client.Close()
		delete(m.clients, dbIndex)
	}
	m.logger.Debug("Closed Redis clients")
}

func (m *Manager) clientOption(dbIndex int) rueidis.ClientOption {
	return rueidis.ClientOption{
		InitAddress:  []string{m.addr()},
		Username:     m.config.Username,
		Password:     m.config.Password,
		SelectDB:     dbIndex,
		ClientName:   clientName,
		DisableCache: true,
	}
}

func (m *Manager) addr() string {
	return net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))
}
