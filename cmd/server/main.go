// Package main 提供媒体服务的启动入口。
// 负责加载配置、通过 Wire 装配依赖、启动 HTTP Server 与后台任务并优雅关闭。
package main

import (
	"context"
	"errors"
	"flag"
	"sync"

	configloader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/configloader"
	outboxtask "github.com/bionicotaku/lingo-services-media/internal/tasks/outbox"
	resulttask "github.com/bionicotaku/lingo-services-media/internal/tasks/result"
	obswire "github.com/bionicotaku/lingo-utils/observability"
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs" // 自动设置 GOMAXPROCS 为容器 CPU 配额
)

// newApp 组装 Kratos 应用：HTTP Server 随 App 生命周期启动，
// Outbox 投递循环与结果消费者挂载到 BeforeStart/AfterStop 钩子。
func newApp(
	_ *obswire.Component,
	logger log.Logger,
	hs *http.Server,
	meta configloader.ServiceInfo,
	relay *outboxtask.Runner,
	consumer *resulttask.Runner,
) *kratos.App {
	options := []kratos.Option{
		kratos.ID(meta.InstanceID),
		kratos.Name(meta.Name),
		kratos.Version(meta.Version),
		kratos.Metadata(map[string]string{"environment": meta.Environment}),
		kratos.Logger(logger),
		kratos.Server(hs),
	}

	type worker struct {
		name string
		run  func(context.Context) error
	}

	var workers []worker
	if relay != nil {
		workers = append(workers, worker{name: "outbox relay", run: relay.Run})
	}
	if consumer != nil {
		workers = append(workers, worker{name: "result consumer", run: consumer.Run})
	}
	if len(workers) > 0 {
		var (
			wg      sync.WaitGroup
			cancels []context.CancelFunc
		)
		helper := log.NewHelper(logger)

		options = append(options,
			kratos.BeforeStart(func(ctx context.Context) error {
				cancels = make([]context.CancelFunc, len(workers))
				for i := range workers {
					runCtx, cancel := context.WithCancel(ctx)
					cancels[i] = cancel
					wg.Add(1)
					worker := workers[i]
					go func() {
						defer wg.Done()
						if err := worker.run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
							helper.Warnf("%s stopped: %v", worker.name, err)
						}
					}()
				}
				return nil
			}),
			kratos.AfterStop(func(ctx context.Context) error {
				for _, cancel := range cancels {
					if cancel != nil {
						cancel()
					}
				}
				done := make(chan struct{})
				go func() {
					wg.Wait()
					close(done)
				}()
				select {
				case <-ctx.Done():
				case <-done:
				}
				return nil
			}),
		)
	}

	return kratos.New(options...)
}

func main() {
	ctx := context.Background()

	confFlag := flag.String("conf", "", "config path or directory, eg: -conf configs/config.yaml")
	flag.Parse()

	params := configloader.Params{
		ConfPath: *confFlag,
	}

	// wireApp 由 wire 生成，Provider 列表见 wire.go。
	app, cleanupApp, err := wireApp(ctx, params)
	if err != nil {
		panic(err)
	}
	defer cleanupApp()

	if err := app.Run(); err != nil {
		panic(err)
	}
}
