package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/oktavaklaster/radario-amocrm/internal/usecase"
)

type MockSyncOrder struct {
	mock.Mock
}

func (m *MockSyncOrder) Execute(ctx context.Context, raw []byte) (*usecase.SyncOrderOutput, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SyncOrderOutput), args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

type stubConnection struct{ closed bool }

func (c stubConnection) IsClosed() bool { return c.closed }
