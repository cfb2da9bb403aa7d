package clients

import "errors"

var (
	ErrClientNotFound  = errors.New("client not found")
	ErrInvalidMetadata = errors.New("invalid client metadata")
)

type Repo interface {
	Upsert(client *Client) error
	Delete(clientID string) error
	Get(clientID string) (*Client, error)
	List(offset, limit int) ([]*Client, error)
}
