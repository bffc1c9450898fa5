//go:build wireinject
// +build wireinject

package main

import (
	"classroom/take-a-number/queue-server/pkg/account"
	"classroom/take-a-number/queue-server/pkg/config"
	"classroom/take-a-number/queue-server/pkg/infra"
	"classroom/take-a-number/queue-server/pkg/queue"

	"github.com/google/wire"
)

func Setup() (*Server, error) {
	wire.Build(wire.NewSet(
		ProvideServer,
		ProvideApplication,
		config.ProvideConfig,
		infra.ProvideLoggerFactory,
		infra.ProvideClock,
		account.ProvideStore,
		queue.ProvideQueue,
		queue.ProvideEngine,
		queue.ProvideStats,
	))
	return nil, nil
}
