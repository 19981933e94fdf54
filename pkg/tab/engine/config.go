package engine

import (
	"github.com/tabpay/tab-server/pkg/config"
	"github.com/tabpay/tab-server/pkg/config/env"
	"github.com/tabpay/tab-server/pkg/config/memory"
	"github.com/tabpay/tab-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "PAYOUT_SERVICE_"

	QueryBatchSizeConfigEnvName = envConfigPrefix + "QUERY_BATCH_SIZE"
	defaultQueryBatchSize       = 1000

	DisableBackgroundChecksConfigEnvName = envConfigPrefix + "DISABLE_BACKGROUND_CHECKS"
	defaultDisableBackgroundChecks       = false

	DefaultBolt11ExpiryDaysConfigEnvName = envConfigPrefix + "DEFAULT_BOLT11_EXPIRY_DAYS"
	defaultDefaultBolt11ExpiryDays       = 30
)

type conf struct {
	queryBatchSize          config.Uint64
	disableBackgroundChecks config.Bool
	defaultBolt11ExpiryDays config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			queryBatchSize:          env.NewUint64Config(QueryBatchSizeConfigEnvName, defaultQueryBatchSize),
			disableBackgroundChecks: env.NewBoolConfig(DisableBackgroundChecksConfigEnvName, defaultDisableBackgroundChecks),
			defaultBolt11ExpiryDays: env.NewUint64Config(DefaultBolt11ExpiryDaysConfigEnvName, defaultDefaultBolt11ExpiryDays),
		}
	}
}

type testOverrides struct {
	queryBatchSize          uint64
	disableBackgroundChecks bool
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		queryBatchSize := overrides.queryBatchSize
		if queryBatchSize == 0 {
			queryBatchSize = defaultQueryBatchSize
		}

		return &conf{
			queryBatchSize:          wrapper.NewUint64Config(memory.NewConfig(queryBatchSize), defaultQueryBatchSize),
			disableBackgroundChecks: wrapper.NewBoolConfig(memory.NewConfig(overrides.disableBackgroundChecks), defaultDisableBackgroundChecks),
			defaultBolt11ExpiryDays: wrapper.NewUint64Config(memory.NewConfig(uint64(defaultDefaultBolt11ExpiryDays)), defaultDefaultBolt11ExpiryDays),
		}
	}
}
