package eventhub_test

import (
	"sync/atomic"

	"roomresq/backend/internal/eventhub"
	"roomresq/backend/internal/models"
)

type MockClient struct {
	user        *models.User
	RecvChannel chan models.ComplaintEvent
	closed      atomic.Bool
	runs        atomic.Int32
}

func newMockClient(user *models.User, buffer int) *MockClient {
	return &MockClient{
		user:        user,
		RecvChannel: make(chan models.ComplaintEvent, buffer),
	}
}

func (c *MockClient) GetUserID() string { return c.user.ID }

func (c *MockClient) Wants(ev models.ComplaintEvent) bool { return eventhub.Visible(c.user, ev) }

func (c *MockClient) GetSendChannel() chan<- models.ComplaintEvent { return c.RecvChannel }

func (c *MockClient) Run() { c.runs.Add(1) }

func (c *MockClient) Close() { c.closed.Store(true) }
