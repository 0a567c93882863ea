package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// HubListeningPortKey is the port where the subscriber websocket interface will listen on
	HubListeningPortKey = "HUB_LISTENING_PORT"
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// TickSizeKey is the minimum price move of one feed worth forwarding downstream
	TickSizeKey = "TICK_SIZE"
	// AggregateTickSizeKey is the minimum move of the cross-feed average worth forwarding, usually coarser than TICK_SIZE
	AggregateTickSizeKey = "AGGREGATE_TICK_SIZE"
	// TriggerWindowKey is the duration of the window armed by a directional tick on the trigger feed
	TriggerWindowKey = "TRIGGER_WINDOW"
	// ImbalanceUpperThresholdKey is the book imbalance at or above which a BUY window fires
	ImbalanceUpperThresholdKey = "IMBALANCE_UPPER_THRESHOLD"
	// ImbalanceLowerThresholdKey is the book imbalance at or below which a SELL window fires
	ImbalanceLowerThresholdKey = "IMBALANCE_LOWER_THRESHOLD"
	// SyntheticPriceOffsetKey is the distance from the reference best price of a fired synthetic tick
	SyntheticPriceOffsetKey = "SYNTHETIC_PRICE_OFFSET"
	// ReconnectDelayKey is the fixed delay between reconnection attempts of a feed adapter
	ReconnectDelayKey = "RECONNECT_DELAY"
	// PingIntervalKey is the cadence of application-level pings for venues requiring them
	PingIntervalKey = "PING_INTERVAL"
	// TriggerFeedKey is the name of the feed whose directional ticks arm trigger windows
	TriggerFeedKey = "TRIGGER_FEED"
	// ReferenceFeedKey is the name of the feed whose book imbalance is evaluated inside a window
	ReferenceFeedKey = "REFERENCE_FEED"
	// AggregateFeedsKey lists the feeds contributing to the averaged logical price
	AggregateFeedsKey = "AGGREGATE_FEEDS"
	// KrakenPairKey is the market subscribed on kraken
	KrakenPairKey = "KRAKEN_PAIR"
	// BybitSymbolKey is the market subscribed on bybit
	BybitSymbolKey = "BYBIT_SYMBOL"
	// HuobiSymbolKey is the market subscribed on huobi
	HuobiSymbolKey = "HUOBI_SYMBOL"
	// SpotPriceURLKey is the REST endpoint answering out-of-band spot price requests
	SpotPriceURLKey = "SPOT_PRICE_URL"
	// StatsIntervalKey defines interval for printing basic daemon statistics, 0 disables them
	StatsIntervalKey = "STATS_INTERVAL"
	// EnableProfilerKey enables profiler that can be used to investigate performance issues
	EnableProfilerKey = "ENABLE_PROFILER"

	ProfilerLocation = "stats"
)

var vip *viper.Viper

func defaultDatadir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pricepulse"
	}
	return filepath.Join(home, ".pricepulse")
}

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("PRICEPULSE")
	vip.AutomaticEnv()

	vip.SetDefault(HubListeningPortKey, 8080)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DatadirKey, defaultDatadir())
	vip.SetDefault(TickSizeKey, 0.5)
	vip.SetDefault(AggregateTickSizeKey, 1.0)
	vip.SetDefault(TriggerWindowKey, 50*time.Millisecond)
	vip.SetDefault(ImbalanceUpperThresholdKey, 0.83)
	vip.SetDefault(ImbalanceLowerThresholdKey, 0.17)
	vip.SetDefault(SyntheticPriceOffsetKey, 1.0)
	vip.SetDefault(ReconnectDelayKey, 5*time.Second)
	vip.SetDefault(PingIntervalKey, 15*time.Second)
	vip.SetDefault(TriggerFeedKey, "kraken")
	vip.SetDefault(ReferenceFeedKey, "bybit")
	vip.SetDefault(AggregateFeedsKey, []string{"kraken", "huobi"})
	vip.SetDefault(KrakenPairKey, "XBT/USDT")
	vip.SetDefault(BybitSymbolKey, "BTCUSDT")
	vip.SetDefault(HuobiSymbolKey, "btcusdt")
	vip.SetDefault(SpotPriceURLKey, "")
	vip.SetDefault(StatsIntervalKey, 600*time.Second)
	vip.SetDefault(EnableProfilerKey, false)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetFloat(key string) float64 {
	return vip.GetFloat64(key)
}

func GetStringSlice(key string) []string {
	return vip.GetStringSlice(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	port := GetInt(HubListeningPortKey)
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be a valid port number", HubListeningPortKey)
	}

	if GetFloat(TickSizeKey) <= 0 {
		return fmt.Errorf("%s must be positive", TickSizeKey)
	}
	if GetFloat(AggregateTickSizeKey) <= 0 {
		return fmt.Errorf("%s must be positive", AggregateTickSizeKey)
	}

	upper := GetFloat(ImbalanceUpperThresholdKey)
	lower := GetFloat(ImbalanceLowerThresholdKey)
	if upper <= 0 || upper > 1 || lower < 0 || lower >= 1 {
		return fmt.Errorf("imbalance thresholds must stay within (0, 1)")
	}
	if upper <= lower {
		return fmt.Errorf(
			"%s must be greater than %s",
			ImbalanceUpperThresholdKey, ImbalanceLowerThresholdKey,
		)
	}

	if GetFloat(SyntheticPriceOffsetKey) < 0 {
		return fmt.Errorf("%s must not be negative", SyntheticPriceOffsetKey)
	}
	if GetDuration(TriggerWindowKey) <= 0 {
		return fmt.Errorf("%s must be positive", TriggerWindowKey)
	}
	if GetDuration(ReconnectDelayKey) <= 0 {
		return fmt.Errorf("%s must be positive", ReconnectDelayKey)
	}

	if len(GetString(TriggerFeedKey)) <= 0 || len(GetString(ReferenceFeedKey)) <= 0 {
		return fmt.Errorf("trigger and reference feeds must be set")
	}

	return nil
}

func initDatadir() error {
	if err := makeDirectoryIfNotExists(GetDatadir()); err != nil {
		return err
	}

	if GetBool(EnableProfilerKey) {
		return makeDirectoryIfNotExists(
			filepath.Join(GetDatadir(), ProfilerLocation),
		)
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
