package result

import (
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/rabbitmq"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
)

// ProviderSet 暴露结果消费者的依赖注入入口。
var ProviderSet = wire.NewSet(ProvideRunner)

// ProvideRunner 装配结果消费 Runner。
func ProvideRunner(
	videos *repositories.VideoRepository,
	statuses *repositories.ProcessingStatusRepository,
	broker *rabbitmq.Component,
	tx txmanager.Manager,
	cfg Config,
	logger log.Logger,
) *Runner {
	if videos == nil || statuses == nil || broker == nil || tx == nil || logger == nil {
		return nil
	}
	m := newMetrics()
	handler := NewHandler(videos, statuses, tx, logger, m)
	runner, err := NewRunner(RunnerParams{
		Source:  broker,
		Handler: handler,
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		log.NewHelper(logger).Errorw("msg", "init result runner failed", "error", err)
		return nil
	}
	return runner
}
