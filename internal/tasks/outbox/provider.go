package outbox

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/rabbitmq"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
)

// ProviderSet exposes outbox relay constructors for DI.
var ProviderSet = wire.NewSet(ProvideRunner)

// ProvideRunner 将共享仓储与 RabbitMQ 组件包装为投递 Runner。
func ProvideRunner(
	repo *repositories.OutboxRepository,
	broker *rabbitmq.Component,
	cfg Config,
	logger log.Logger,
) *Runner {
	if repo == nil || broker == nil || logger == nil {
		return nil
	}
	runner, err := NewRunner(RunnerParams{
		Store:     repo,
		Publisher: broker,
		Config:    cfg,
		Logger:    logger,
	})
	if err != nil {
		log.NewHelper(logger).Errorw("msg", "init outbox runner failed", "error", err)
		return nil
	}
	return runner
}
