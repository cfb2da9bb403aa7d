package clients

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	clients map[string]*Client
	lock    sync.RWMutex
}

// NewInMemoryRepo creates an empty client registry
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		clients: make(map[string]*Client),
	}
}

func (r *InMemoryRepo) Upsert(client *Client) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	stored := *client
	stored.RedirectURIs = append([]string(nil), client.RedirectURIs...)
	r.clients[client.ID] = &stored
	return nil
}

func (r *InMemoryRepo) Delete(clientID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.clients, clientID)
	return nil
}

func (r *InMemoryRepo) Get(clientID string) (*Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	client, ok := r.clients[clientID]
	if !ok {
		return nil, ErrClientNotFound
	}
	c := *client
	return &c, nil
}

func (r *InMemoryRepo) List(offset, limit int) ([]*Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*Client, 0, len(r.clients))
	for _, v := range r.clients {
		c := *v
		list = append(list, &c)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})

	if offset >= len(list) {
		return nil, nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end], nil
}
