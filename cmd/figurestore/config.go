package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"figurestore/pkg/domain/service"
)

const appID = "figurestore"

const (
	storageMemory = "memory"
	storageMySQL  = "mysql"
)

type config struct {
	RESTAddress string `envconfig:"rest_address" default:":8080"`
	GRPCAddress string `envconfig:"grpc_address" default:":8081"`
	LogLevel    string `envconfig:"log_level" default:"info"`

	StorageDriver  string        `envconfig:"storage_driver" default:"memory"`
	MySQLDSN       string        `envconfig:"mysql_dsn" default:"figurestore:figurestore@tcp(localhost:3306)/figurestore"`
	ConnectTimeout time.Duration `envconfig:"connect_timeout" default:"1m"`

	// Events go to the log when no broker URL is set.
	AMQPURL      string `envconfig:"amqp_url"`
	AMQPExchange string `envconfig:"amqp_exchange" default:"figurestore"`

	CollectionNameLimit int    `envconfig:"collection_name_limit" default:"1"`
	OpenCartsPerUser    int    `envconfig:"open_carts_per_user" default:"1"`
	LowStockThreshold   int    `envconfig:"low_stock_threshold" default:"3"`
	WalletSeedBalance   string `envconfig:"wallet_seed_balance" default:"1000.00"`
}

func parseEnv() (*config, error) {
	c := new(config)
	if err := envconfig.Process(appID, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	if c.StorageDriver != storageMemory && c.StorageDriver != storageMySQL {
		return nil, errors.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	return c, nil
}

func (c *config) policy() service.Policy {
	return service.Policy{
		CollectionNameLimit: c.CollectionNameLimit,
		OpenCartsPerUser:    c.OpenCartsPerUser,
		LowStockThreshold:   c.LowStockThreshold,
	}
}

func (c *config) walletSeed() (decimal.Decimal, error) {
	seed, err := decimal.NewFromString(c.WalletSeedBalance)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "invalid wallet seed balance")
	}
	return seed, nil
}
