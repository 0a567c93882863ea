package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pricepulse-network/pricepulse-daemon/internal/config"
	"github.com/pricepulse-network/pricepulse-daemon/internal/core/application/pipeline"
	"github.com/pricepulse-network/pricepulse-daemon/internal/interfaces/ws"
	"github.com/pricepulse-network/pricepulse-daemon/pkg/feeder"
	bybitfeed "github.com/pricepulse-network/pricepulse-daemon/pkg/feeder/bybit"
	huobifeed "github.com/pricepulse-network/pricepulse-daemon/pkg/feeder/huobi"
	krakenfeed "github.com/pricepulse-network/pricepulse-daemon/pkg/feeder/kraken"
	"github.com/pricepulse-network/pricepulse-daemon/pkg/pricesource"
	"github.com/pricepulse-network/pricepulse-daemon/pkg/stats"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer cancel()

	priceSource := pricesource.NewKrakenSource(
		config.GetString(config.SpotPriceURLKey),
	)

	hubSvc := ws.NewService(ws.ServiceOpts{
		Port:        config.GetInt(config.HubListeningPortKey),
		PriceSource: priceSource,
	})

	pipelineSvc := pipeline.NewService(pipeline.Opts{
		Publisher:         hubSvc,
		TickSize:          decimal.NewFromFloat(config.GetFloat(config.TickSizeKey)),
		AggregateTickSize: decimal.NewFromFloat(config.GetFloat(config.AggregateTickSizeKey)),
		AggregateFeeds:    config.GetStringSlice(config.AggregateFeedsKey),
		TriggerFeed:       config.GetString(config.TriggerFeedKey),
		ReferenceFeed:     config.GetString(config.ReferenceFeedKey),
		Window:            config.GetDuration(config.TriggerWindowKey),
		UpperThreshold:    decimal.NewFromFloat(config.GetFloat(config.ImbalanceUpperThresholdKey)),
		LowerThreshold:    decimal.NewFromFloat(config.GetFloat(config.ImbalanceLowerThresholdKey)),
		Offset:            decimal.NewFromFloat(config.GetFloat(config.SyntheticPriceOffsetKey)),
	})

	drivers := []feeder.Driver{
		krakenfeed.NewDriver(config.GetString(config.KrakenPairKey)),
		bybitfeed.NewDriver(config.GetString(config.BybitSymbolKey)),
		huobifeed.NewDriver(config.GetString(config.HuobiSymbolKey)),
	}
	feeders := make([]*feeder.Service, 0, len(drivers))
	for _, driver := range drivers {
		feeders = append(feeders, feeder.NewService(feeder.Opts{
			Driver:         driver,
			EventChan:      pipelineSvc.EventChan(),
			ReconnectDelay: config.GetDuration(config.ReconnectDelayKey),
			PingInterval:   config.GetDuration(config.PingIntervalKey),
		}))
	}

	if err := hubSvc.Start(); err != nil {
		log.WithError(err).Fatal("error listening on subscriber interface")
	}
	pipelineSvc.Start()
	for _, feedSvc := range feeders {
		feedSvc.Start()
	}

	if interval := config.GetDuration(config.StatsIntervalKey); interval > 0 {
		stats.EnableMemoryStatistics(ctx, interval, config.GetDatadir())
	}

	log.Info("daemon started")

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()

		// Feed adapters go first so the pipeline can still drain their
		// connection-state events, the hub last so subscribers observe a
		// clean close.
		for _, feedSvc := range feeders {
			feedSvc.Stop()
		}
		pipelineSvc.Stop()
		hubSvc.Stop()
		return nil
	})
	g.Wait()

	log.Debug("exiting")
}
